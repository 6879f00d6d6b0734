package room

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Elijah-cyy/mishi-server/internal/config"
	"github.com/Elijah-cyy/mishi-server/internal/history"
	"github.com/Elijah-cyy/mishi-server/internal/mapgen"
	"github.com/Elijah-cyy/mishi-server/internal/match"
	"github.com/Elijah-cyy/mishi-server/internal/protocol"
)

// Manager owns the room lifecycle: creation, membership, readiness, the
// hero-lock state machine, bot auto-fill and the transitions through
// waiting → character_select → playing → ended.
//
// Every mutator holds the room's advisory lock for its whole
// read-check-write, and a room fetched from the store is never mutated
// in place: mutators clone, edit the clone and save it back, so readers
// only ever see fully-formed snapshots.
type Manager struct {
	cfg      config.Config
	store    RoomStore
	users    UserLocator
	bc       Broadcaster
	gen      *mapgen.Generator
	runtime  *match.Runtime
	recorder history.Recorder
	logger   *slog.Logger
	locks    *lockTable
	picker   HeroPicker
	heroPool []string

	// Placeholders seeded when a room enters character_select; promoted
	// into real match state once every hero is locked.
	mu      sync.Mutex
	pending map[string][]match.Seat
}

func NewManager(
	cfg config.Config,
	roomStore RoomStore,
	users UserLocator,
	gen *mapgen.Generator,
	runtime *match.Runtime,
	recorder history.Recorder,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    roomStore,
		users:    users,
		gen:      gen,
		runtime:  runtime,
		recorder: recorder,
		logger:   logger,
		locks:    newLockTable(cfg.RoomLockTTL),
		picker:   RandomHeroPicker(rand.New(rand.NewSource(time.Now().UnixNano()))),
		heroPool: DefaultHeroPool,
		pending:  make(map[string][]match.Seat),
	}
}

// SetBroadcaster wires the dispatcher in after construction; the ws
// layer needs the manager first.
func (m *Manager) SetBroadcaster(bc Broadcaster) {
	m.bc = bc
}

// SetHeroPicker swaps the bot decision function.
func (m *Manager) SetHeroPicker(p HeroPicker) {
	m.picker = p
}

// CreateRoom seeds a new waiting room with the host as its only member.
// Capacity is clamped into the configured bounds.
func (m *Manager) CreateRoom(hostID, hostName, roomName string, capacity, timeLimit int, gameMode string, settings map[string]any) (*Room, error) {
	if hostID == "" || roomName == "" {
		return nil, fmt.Errorf("%w: host id and room name are required", ErrInvalidArg)
	}
	if existing, ok := m.users.RoomOf(hostID); ok {
		return nil, fmt.Errorf("%w: already in room %s", ErrInvalidArg, existing)
	}
	if capacity < m.cfg.MinCapacity {
		capacity = m.cfg.MinCapacity
	}
	if capacity > m.cfg.MaxCapacity {
		capacity = m.cfg.MaxCapacity
	}
	if timeLimit <= 0 {
		timeLimit = m.cfg.DefaultTimeLimit
	}
	if gameMode == "" {
		gameMode = string(mapgen.ModeClassic)
	}

	now := time.Now()
	r := &Room{
		ID:        uuid.NewString(),
		Name:      roomName,
		HostID:    hostID,
		Status:    StatusWaiting,
		Capacity:  capacity,
		TimeLimit: timeLimit,
		GameMode:  gameMode,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
		Members: []Member{{
			UserID:   hostID,
			Name:     hostName,
			IsHost:   true,
			JoinedAt: now,
		}},
	}
	m.store.Save(r)
	m.users.Bind(hostID, r.ID)
	m.logger.Info("room created",
		"room_id", r.ID, "host_id", hostID, "capacity", capacity, "mode", gameMode)
	return r.Clone(), nil
}

// JoinRoom adds a member to a waiting room. The multi-step read-then-
// write is guarded by the per-room advisory lock; a join against a
// locked room is rejected immediately with a retryable error. Re-joining
// an existing member is idempotent and returns current state.
func (m *Manager) JoinRoom(roomID, userID, name string) (*Room, error) {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Member(userID) != nil {
		return r.Clone(), nil
	}
	if r.Status != StatusWaiting {
		return nil, fmt.Errorf("%w: cannot join while %s", ErrAlreadyStarted, r.Status)
	}
	if len(r.Members) >= r.Capacity {
		return nil, ErrRoomFull
	}
	if existing, ok := m.users.RoomOf(userID); ok {
		return nil, fmt.Errorf("%w: already in room %s", ErrInvalidArg, existing)
	}

	r = r.Clone()
	r.Members = append(r.Members, Member{
		UserID:   userID,
		Name:     name,
		JoinedAt: time.Now(),
	})
	r.UpdatedAt = time.Now()
	m.store.Save(r)
	m.users.Bind(userID, roomID)

	m.logger.Info("member joined", "room_id", roomID, "user_id", userID)
	m.broadcast(roomID, protocol.NewMessage(protocol.TypePlayerJoined, map[string]any{
		"playerId":   userID,
		"playerName": name,
	}))
	m.broadcastRoomUpdate(r, "member_joined")
	return r.Clone(), nil
}

// LeaveRoom removes a member. Host status transfers to the earliest
// remaining joiner; the last member leaving ends the room and removes
// it from the store. Leaving a playing room is not a lobby operation
// (the socket path handles it as a disconnect).
func (m *Manager) LeaveRoom(roomID, userID string) (*Room, error) {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Status == StatusPlaying {
		return nil, fmt.Errorf("%w: leave is not valid while playing", ErrWrongStatus)
	}
	r = r.Clone()
	if !r.RemoveMember(userID) {
		return nil, ErrNotInRoom
	}
	m.users.Unbind(userID)
	r.UpdatedAt = time.Now()
	if r.Status == StatusCharacterSelect {
		// The seat seeded for the departing member must not survive into
		// the match.
		m.prunePending(roomID, userID)
	}

	if len(r.Members) == 0 {
		r.Status = StatusEnded
		m.dropPending(roomID)
		m.store.Delete(roomID)
		m.logger.Info("room removed, last member left", "room_id", roomID)
		return r, nil
	}

	m.store.Save(r)
	m.logger.Info("member left", "room_id", roomID, "user_id", userID, "host_id", r.HostID)
	m.broadcastRoomUpdate(r, "member_left")

	// A departure during character select can complete the all-locked
	// condition for those remaining.
	if r.Status == StatusCharacterSelect && r.AllLocked() {
		m.startPlaying(r)
	}
	return r.Clone(), nil
}

// SetReady flips a member's ready flag. Only valid while waiting.
// Reports whether the whole room is now ready. Setting the same value
// twice is idempotent.
func (m *Manager) SetReady(roomID, userID string, ready bool) (bool, error) {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return false, err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return false, ErrRoomNotFound
	}
	if r.Status != StatusWaiting {
		return false, fmt.Errorf("%w: ready toggle only valid while waiting", ErrWrongStatus)
	}
	r = r.Clone()
	member := r.Member(userID)
	if member == nil {
		return false, ErrNotInRoom
	}

	member.IsReady = ready
	r.UpdatedAt = time.Now()
	m.store.Save(r)

	m.broadcastRoomUpdate(r, "ready_changed")
	return r.AllReady(), nil
}

// StartCharacterSelect moves a full, all-ready room into hero picking.
// Policy: the host must also be ready — one uniform rule for every
// member. Start requires capacity to be exactly met; bots fill the gap.
// Per-member match placeholders are seeded here, but the map and clock
// only start once every hero is locked.
func (m *Manager) StartCharacterSelect(roomID, userID string) (*Room, error) {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.HostID != userID {
		return nil, ErrNotHost
	}
	if r.Status != StatusWaiting {
		return nil, fmt.Errorf("%w: room is %s", ErrAlreadyStarted, r.Status)
	}
	if len(r.Members) != r.Capacity {
		return nil, fmt.Errorf("%w: %d/%d members", ErrNotFull, len(r.Members), r.Capacity)
	}
	if !r.AllReady() {
		return nil, ErrNotReady
	}

	r = r.Clone()
	r.Status = StatusCharacterSelect
	r.UpdatedAt = time.Now()
	m.store.Save(r)

	seats := make([]match.Seat, 0, len(r.Members))
	for i := range r.Members {
		seats = append(seats, match.Seat{
			UserID: r.Members[i].UserID,
			IsBot:  r.Members[i].IsBot,
		})
	}
	m.mu.Lock()
	m.pending[roomID] = seats
	m.mu.Unlock()

	m.logger.Info("character select started", "room_id", roomID)
	m.broadcastRoomUpdate(r, "character_select_started")
	return r.Clone(), nil
}

// SetHeroLock locks or unlocks a member's hero. A hero may be locked by
// at most one member in the room; a lock request for a taken hero fails
// with a retryable error. The whole read-check-write runs under the
// per-room lock, so two simultaneous requests for the same hero can
// never both pass the uniqueness check. Every successful change
// broadcasts PLAYER_HERO_LOCKED, and each lock re-runs the bot
// auto-fill and all-locked checks.
func (m *Manager) SetHeroLock(roomID, userID string, locked bool, heroID string) error {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Status != StatusCharacterSelect {
		return fmt.Errorf("%w: hero lock only valid during character select", ErrWrongStatus)
	}
	r = r.Clone()
	member := r.Member(userID)
	if member == nil {
		return ErrNotInRoom
	}

	if locked {
		if heroID == "" {
			return fmt.Errorf("%w: hero id is required to lock", ErrInvalidArg)
		}
		if holder, taken := r.HeroHolder(heroID); taken {
			if holder == userID {
				return nil
			}
			return fmt.Errorf("%w: %s held by %s", ErrHeroTaken, heroID, holder)
		}
		member.HeroLocked = true
		member.HeroID = heroID
	} else {
		// Report the hero being released, not whatever the caller sent.
		heroID = member.HeroID
		member.HeroLocked = false
		member.HeroID = ""
	}
	r.UpdatedAt = time.Now()
	m.store.Save(r)

	m.broadcast(roomID, heroLockMessage(userID, heroID, locked))
	m.logger.Info("hero lock changed",
		"room_id", roomID, "user_id", userID, "hero_id", heroID, "locked", locked)

	if locked {
		m.afterLock(r)
	}
	return nil
}

// afterLock runs the two post-lock checks: bot auto-fill once every
// human is locked, then the playing transition once everyone is.
func (m *Manager) afterLock(r *Room) {
	if r.AllHumansLocked() {
		r = m.autoLockBots(r)
	}
	if r.AllLocked() {
		m.startPlaying(r)
	}
}

// autoLockBots assigns every unlocked bot a random hero not yet locked
// by anyone in the room, broadcasting the same lock event used for
// humans so bot decisions stay observable on the same channel. A saved
// room is never mutated in place, so the bots lock on a fresh copy.
func (m *Manager) autoLockBots(r *Room) *Room {
	r = r.Clone()
	for i := range r.Members {
		bot := &r.Members[i]
		if !bot.IsBot || bot.HeroLocked {
			continue
		}
		available := r.AvailableHeroes(m.heroPool)
		if len(available) == 0 {
			m.logger.Error("hero pool exhausted during bot auto-fill",
				"room_id", r.ID, "bot_id", bot.UserID)
			continue
		}
		bot.HeroLocked = true
		bot.HeroID = m.picker(available)
		m.broadcast(r.ID, heroLockMessage(bot.UserID, bot.HeroID, true))
		m.logger.Info("bot hero auto-locked",
			"room_id", r.ID, "bot_id", bot.UserID, "hero_id", bot.HeroID)
	}
	r.UpdatedAt = time.Now()
	m.store.Save(r)
	return r
}

// startPlaying generates the level, promotes the placeholders into real
// match state and broadcasts the start event with the final roster.
func (m *Manager) startPlaying(r *Room) {
	r = r.Clone()
	gm := m.gen.Generate(mapgen.Mode(r.GameMode), time.Now().UnixNano())

	seats := m.takePending(r.ID)
	if seats == nil {
		seats = make([]match.Seat, 0, len(r.Members))
		for i := range r.Members {
			seats = append(seats, match.Seat{UserID: r.Members[i].UserID, IsBot: r.Members[i].IsBot})
		}
	}
	for i := range seats {
		if member := r.Member(seats[i].UserID); member != nil {
			seats[i].HeroID = member.HeroID
		}
	}

	st := m.runtime.Create(r.ID, seats, gm, time.Duration(r.TimeLimit)*time.Second)

	r.Status = StatusPlaying
	r.MapID = gm.ID
	r.UpdatedAt = time.Now()
	m.store.Save(r)

	roster := make([]map[string]any, 0, len(r.Members))
	for i := range r.Members {
		roster = append(roster, map[string]any{
			"playerId": r.Members[i].UserID,
			"name":     r.Members[i].Name,
			"heroId":   r.Members[i].HeroID,
			"isBot":    r.Members[i].IsBot,
		})
	}
	m.broadcast(r.ID, protocol.NewMessage(protocol.TypeActualGameStart, map[string]any{
		"players":   roster,
		"startTime": st.StartTime.UnixMilli(),
		"timeLimit": r.TimeLimit,
		"mapId":     gm.ID,
		"map":       gm,
	}))
	m.logger.Info("match started",
		"room_id", r.ID, "map_id", gm.ID, "players", len(seats), "fallback_map", gm.Fallback)
}

// AddBot fills a seat with a caller-supplied bot identity. Host only,
// waiting rooms only. Bots are always ready.
func (m *Manager) AddBot(roomID, requesterID, botID, botName string) (*Room, error) {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.HostID != requesterID {
		return nil, ErrNotHost
	}
	if r.Status != StatusWaiting {
		return nil, fmt.Errorf("%w: cannot add bot while %s", ErrAlreadyStarted, r.Status)
	}
	if len(r.Members) >= r.Capacity {
		return nil, ErrRoomFull
	}
	if botID == "" {
		return nil, fmt.Errorf("%w: bot id is required", ErrInvalidArg)
	}
	if r.Member(botID) != nil {
		return r.Clone(), nil
	}
	if botName == "" {
		botName = "Bot"
	}

	r = r.Clone()
	r.Members = append(r.Members, Member{
		UserID:   botID,
		Name:     botName,
		IsBot:    true,
		IsReady:  true,
		JoinedAt: time.Now(),
	})
	r.UpdatedAt = time.Now()
	m.store.Save(r)

	m.logger.Info("bot added", "room_id", roomID, "bot_id", botID)
	m.broadcastRoomUpdate(r, "bot_added")
	return r.Clone(), nil
}

// EndMatch finishes a playing room: elapsed time is computed, each
// member's final score and inventory are collected off the match state,
// the results are stored on the room and appended to history, and the
// match state is discarded.
func (m *Manager) EndMatch(roomID, userID string) (*Result, error) {
	release, err := m.locks.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := m.store.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Status != StatusPlaying {
		return nil, fmt.Errorf("%w: end only valid while playing", ErrWrongStatus)
	}
	if userID != "" && r.Member(userID) == nil {
		return nil, ErrNotInRoom
	}
	r = r.Clone()

	st, ok := m.runtime.Get(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: match state missing", ErrWrongStatus)
	}

	elapsed := int(st.Elapsed().Seconds())
	finals := st.Results()
	result := &Result{
		ElapsedSeconds: elapsed,
		EndedAt:        time.Now(),
		Players:        make([]PlayerResult, 0, len(finals)),
	}
	entry := history.Entry{
		RoomID:         r.ID,
		RoomName:       r.Name,
		GameMode:       r.GameMode,
		ElapsedSeconds: elapsed,
		EndedAt:        result.EndedAt,
	}
	for _, f := range finals {
		result.Players = append(result.Players, PlayerResult{
			UserID:    f.UserID,
			HeroID:    f.HeroID,
			Score:     f.Score,
			Inventory: f.Inventory,
		})
		isBot := false
		if member := r.Member(f.UserID); member != nil {
			isBot = member.IsBot
		}
		entry.Players = append(entry.Players, history.PlayerEntry{
			UserID: f.UserID,
			HeroID: f.HeroID,
			Score:  f.Score,
			IsBot:  isBot,
		})
	}

	r.Result = result
	r.Status = StatusEnded
	r.UpdatedAt = time.Now()
	m.store.Save(r)
	m.runtime.Drop(roomID)

	if err := m.recorder.Record(entry); err != nil {
		m.logger.Error("failed to record room history", "room_id", roomID, "error", err)
	}

	m.broadcast(roomID, protocol.NewMessage(protocol.TypeGameEnded, map[string]any{
		"elapsedSeconds": elapsed,
		"players":        result.Players,
	}))
	m.logger.Info("match ended", "room_id", roomID, "elapsed_seconds", elapsed)
	return result, nil
}

// Snapshot returns a copy of the room for client resynchronization.
func (m *Manager) Snapshot(roomID string) (*Room, error) {
	r, ok := m.store.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.Clone(), nil
}

// ListRooms returns copies of every room, for the lobby browser.
func (m *Manager) ListRooms() []*Room {
	rooms := m.store.List()
	out := make([]*Room, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Clone())
	}
	return out
}

// RoomOf resolves which room a user currently occupies.
func (m *Manager) RoomOf(userID string) (string, bool) {
	return m.users.RoomOf(userID)
}

// HandleDisconnect reacts to a dead socket: in the lobby phases the
// member simply leaves; mid-match the seat is kept and marked offline so
// results still cover them.
func (m *Manager) HandleDisconnect(userID string) {
	roomID, ok := m.users.RoomOf(userID)
	if !ok {
		return
	}
	r, ok := m.store.Get(roomID)
	if !ok {
		m.users.Unbind(userID)
		return
	}
	switch r.Status {
	case StatusPlaying:
		if st, ok := m.runtime.Get(roomID); ok {
			st.SetStatus(userID, match.StatusOffline)
		}
		m.broadcast(roomID, protocol.NewMessage(protocol.TypeRoomUpdate, map[string]any{
			"eventType": "member_offline",
			"playerId":  userID,
		}), userID)
		m.logger.Info("member went offline mid-match", "room_id", roomID, "user_id", userID)
	default:
		if _, err := m.LeaveRoom(roomID, userID); err != nil {
			m.logger.Error("disconnect leave failed",
				"room_id", roomID, "user_id", userID, "error", err)
			m.users.Unbind(userID)
		}
	}
}

// HandleReconnect resyncs a returning socket. The member receives the
// full room state directly rather than waiting for the next broadcast,
// and a mid-match return flips their seat from offline back to alive.
func (m *Manager) HandleReconnect(userID string) {
	roomID, ok := m.users.RoomOf(userID)
	if !ok {
		return
	}
	r, ok := m.store.Get(roomID)
	if !ok {
		return
	}

	data := map[string]any{
		"eventType": "resync",
		"room":      r.Clone(),
	}
	if r.Status == StatusPlaying {
		if st, ok := m.runtime.Get(roomID); ok {
			st.SetStatus(userID, match.StatusAlive)
			data["match"] = st.Snapshot()
			m.broadcast(roomID, protocol.NewMessage(protocol.TypeRoomUpdate, map[string]any{
				"eventType": "member_online",
				"playerId":  userID,
			}), userID)
		}
	}
	if m.bc != nil {
		if err := m.bc.SendToUser(userID, protocol.NewMessage(protocol.TypeRoomUpdate, data)); err != nil {
			m.logger.Warn("resync delivery failed",
				"room_id", roomID, "user_id", userID, "error", err)
		}
	}
	m.logger.Info("member resynced", "room_id", roomID, "user_id", userID)
}

// HandleGameAction applies a gameplay action against the match runtime
// and relays the outcome to the room. An overrun match is ended on the
// spot instead of accepting the action.
func (m *Manager) HandleGameAction(roomID, userID string, data map[string]any) error {
	st, ok := m.runtime.Get(roomID)
	if !ok {
		return fmt.Errorf("%w: no active match", ErrWrongStatus)
	}
	if st.Expired() {
		if _, err := m.EndMatch(roomID, ""); err != nil {
			m.logger.Error("overrun match end failed", "room_id", roomID, "error", err)
		}
		return fmt.Errorf("%w: time limit exceeded", ErrWrongStatus)
	}

	action, _ := data["action"].(string)
	var err error
	var ps match.PlayerState
	var moved bool
	switch action {
	case "move":
		dir, _ := data["direction"].(string)
		ps, err = st.Move(userID, mapgen.Direction(dir))
		moved = err == nil
	case "pickup_key":
		err = st.PickupKey(userID)
	case "unlock_exit":
		err = st.UnlockExit(userID)
	case "escape":
		err = st.Escape(userID)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidArg, action)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArg, err)
	}

	payload := map[string]any{
		"playerId": userID,
		"action":   action,
	}
	if !moved {
		if snap, ok := st.Player(userID); ok {
			ps, moved = snap, true
		}
	}
	if moved {
		payload["player"] = ps
	}
	m.broadcast(roomID, protocol.NewMessage(protocol.TypeGameAction, payload))
	return nil
}

// HandleGameEvent appends a client-reported event to the match log and
// relays it.
func (m *Manager) HandleGameEvent(roomID, userID string, data map[string]any) error {
	st, ok := m.runtime.Get(roomID)
	if !ok {
		return fmt.Errorf("%w: no active match", ErrWrongStatus)
	}
	evType, _ := data["eventType"].(string)
	if evType == "" {
		return fmt.Errorf("%w: eventType is required", ErrInvalidArg)
	}
	st.AppendEvent(evType, userID, data)
	m.broadcast(roomID, protocol.NewMessage(protocol.TypeGameEvent, map[string]any{
		"playerId":  userID,
		"eventType": evType,
		"data":      data,
	}), userID)
	return nil
}

// HandleChat relays a chat line to the rest of the room.
func (m *Manager) HandleChat(roomID, userID, name, text string) error {
	r, ok := m.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Member(userID) == nil {
		return ErrNotInRoom
	}
	m.broadcast(roomID, protocol.NewMessage(protocol.TypeChatMessage, map[string]any{
		"playerId": userID,
		"name":     name,
		"text":     text,
	}), userID)
	return nil
}

// MatchSnapshot returns the live match view for resync.
func (m *Manager) MatchSnapshot(roomID string) (map[string]any, error) {
	st, ok := m.runtime.Get(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: no active match", ErrWrongStatus)
	}
	return st.Snapshot(), nil
}

func (m *Manager) takePending(roomID string) []match.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	seats := m.pending[roomID]
	delete(m.pending, roomID)
	return seats
}

func (m *Manager) dropPending(roomID string) {
	m.mu.Lock()
	delete(m.pending, roomID)
	m.mu.Unlock()
}

func (m *Manager) prunePending(roomID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seats := m.pending[roomID]
	for i := range seats {
		if seats[i].UserID == userID {
			m.pending[roomID] = append(seats[:i], seats[i+1:]...)
			return
		}
	}
}

func (m *Manager) broadcast(roomID string, msg protocol.Message, excluding ...string) {
	if m.bc == nil {
		return
	}
	m.bc.BroadcastToRoom(roomID, msg, excluding...)
}

func (m *Manager) broadcastRoomUpdate(r *Room, eventType string) {
	m.broadcast(r.ID, protocol.NewMessage(protocol.TypeRoomUpdate, map[string]any{
		"eventType": eventType,
		"room":      r.Clone(),
	}))
}

func heroLockMessage(userID, heroID string, locked bool) protocol.Message {
	return protocol.NewMessage(protocol.TypePlayerHeroLock, map[string]any{
		"playerId": userID,
		"heroId":   heroID,
		"isLocked": locked,
	})
}
