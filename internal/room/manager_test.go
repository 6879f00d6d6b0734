package room_test

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elijah-cyy/mishi-server/internal/config"
	"github.com/Elijah-cyy/mishi-server/internal/history"
	"github.com/Elijah-cyy/mishi-server/internal/mapgen"
	"github.com/Elijah-cyy/mishi-server/internal/match"
	"github.com/Elijah-cyy/mishi-server/internal/protocol"
	"github.com/Elijah-cyy/mishi-server/internal/room"
	"github.com/Elijah-cyy/mishi-server/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeBroadcaster records every room broadcast and direct send for
// assertions.
type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []protocol.Message
	direct   []protocol.Message
}

func (f *fakeBroadcaster) BroadcastToRoom(roomID string, msg protocol.Message, excluding ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return 0
}

func (f *fakeBroadcaster) SendToUser(userID string, msg protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, msg)
	return nil
}

func (f *fakeBroadcaster) directMessages() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Message(nil), f.direct...)
}

func (f *fakeBroadcaster) byType(msgType string) []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Message
	for _, m := range f.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		MinCapacity:       2,
		MaxCapacity:       10,
		RoomLockTTL:       time.Second,
		MapSize:           7,
		DefaultTimeLimit:  600,
		HeartbeatInterval: time.Second,
	}
}

func newTestManager(t *testing.T) (*room.Manager, *fakeBroadcaster) {
	t.Helper()
	logger := testLogger()
	m := room.NewManager(
		testConfig(),
		store.NewMemoryStore(),
		store.NewUserIndex(),
		mapgen.NewGenerator(7, logger),
		match.NewRuntime(),
		history.NopRecorder{},
		logger,
	)
	bc := &fakeBroadcaster{}
	m.SetBroadcaster(bc)
	// Deterministic bot picks for assertions.
	m.SetHeroPicker(room.FirstHeroPicker())
	return m, bc
}

func TestCreateRoom(t *testing.T) {
	tests := []struct {
		name         string
		hostID       string
		roomName     string
		capacity     int
		wantErr      error
		wantCapacity int
	}{
		{
			name:         "valid room",
			hostID:       "host-1",
			roomName:     "escape crew",
			capacity:     4,
			wantCapacity: 4,
		},
		{
			name:         "capacity clamped up",
			hostID:       "host-2",
			roomName:     "tiny",
			capacity:     1,
			wantCapacity: 2,
		},
		{
			name:         "capacity clamped down",
			hostID:       "host-3",
			roomName:     "huge",
			capacity:     50,
			wantCapacity: 10,
		},
		{
			name:     "missing name rejected",
			hostID:   "host-4",
			roomName: "",
			wantErr:  room.ErrInvalidArg,
		},
		{
			name:     "missing host rejected",
			hostID:   "",
			roomName: "nameless host",
			wantErr:  room.ErrInvalidArg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			r, err := m.CreateRoom(tt.hostID, "Host", tt.roomName, tt.capacity, 0, "", nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, room.StatusWaiting, r.Status)
			assert.Equal(t, tt.wantCapacity, r.Capacity)
			require.Len(t, r.Members, 1)
			assert.True(t, r.Members[0].IsHost)
			assert.False(t, r.Members[0].IsReady)
			assert.False(t, r.Members[0].HeroLocked)
			assert.Equal(t, tt.hostID, r.HostID)
		})
	}
}

func TestJoinRoom(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)

	t.Run("unknown room", func(t *testing.T) {
		_, err := m.JoinRoom("nope", "u1", "U1")
		assert.ErrorIs(t, err, room.ErrRoomNotFound)
	})

	t.Run("join succeeds", func(t *testing.T) {
		got, err := m.JoinRoom(r.ID, "u1", "U1")
		require.NoError(t, err)
		assert.Len(t, got.Members, 2)
	})

	t.Run("rejoin is idempotent", func(t *testing.T) {
		got, err := m.JoinRoom(r.ID, "u1", "U1")
		require.NoError(t, err)
		assert.Len(t, got.Members, 2)
	})

	t.Run("full room rejected", func(t *testing.T) {
		_, err := m.JoinRoom(r.ID, "u2", "U2")
		assert.ErrorIs(t, err, room.ErrRoomFull)
	})
}

func TestJoinRejectedWhileInAnotherRoom(t *testing.T) {
	m, _ := newTestManager(t)
	r1, err := m.CreateRoom("host1", "H1", "one", 3, 0, "", nil)
	require.NoError(t, err)
	r2, err := m.CreateRoom("host2", "H2", "two", 3, 0, "", nil)
	require.NoError(t, err)

	_, err = m.JoinRoom(r1.ID, "u1", "U1")
	require.NoError(t, err)
	_, err = m.JoinRoom(r2.ID, "u1", "U1")
	assert.ErrorIs(t, err, room.ErrInvalidArg)
}

func TestReadyToggle(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)

	allReady, err := m.SetReady(r.ID, "u1", true)
	require.NoError(t, err)
	assert.False(t, allReady, "host not ready yet")

	// Same value twice: no error, no state change.
	allReady, err = m.SetReady(r.ID, "u1", true)
	require.NoError(t, err)
	assert.False(t, allReady)

	allReady, err = m.SetReady(r.ID, "host", true)
	require.NoError(t, err)
	assert.True(t, allReady)

	_, err = m.SetReady(r.ID, "ghost", true)
	assert.ErrorIs(t, err, room.ErrNotInRoom)
}

func TestStartCharacterSelectValidation(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)

	_, err = m.StartCharacterSelect(r.ID, "host")
	assert.ErrorIs(t, err, room.ErrNotFull, "capacity must be exactly met")

	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)

	_, err = m.StartCharacterSelect(r.ID, "u1")
	assert.ErrorIs(t, err, room.ErrNotHost)

	_, err = m.StartCharacterSelect(r.ID, "host")
	assert.ErrorIs(t, err, room.ErrNotReady, "host readiness counts too")

	_, err = m.SetReady(r.ID, "u1", true)
	require.NoError(t, err)
	_, err = m.SetReady(r.ID, "host", true)
	require.NoError(t, err)

	got, err := m.StartCharacterSelect(r.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, room.StatusCharacterSelect, got.Status)

	_, err = m.StartCharacterSelect(r.ID, "host")
	assert.ErrorIs(t, err, room.ErrAlreadyStarted)
}

// startTwoHumanSelect drives a 2-member room into character select.
func startTwoHumanSelect(t *testing.T, m *room.Manager) string {
	t.Helper()
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)
	_, err = m.SetReady(r.ID, "u1", true)
	require.NoError(t, err)
	_, err = m.SetReady(r.ID, "host", true)
	require.NoError(t, err)
	_, err = m.StartCharacterSelect(r.ID, "host")
	require.NoError(t, err)
	return r.ID
}

func TestFullFlowToPlaying(t *testing.T) {
	m, bc := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)

	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))

	r, err := m.Snapshot(roomID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusCharacterSelect, r.Status, "one human still unlocked")

	require.NoError(t, m.SetHeroLock(roomID, "u1", true, "prometheus"))

	r, err = m.Snapshot(roomID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusPlaying, r.Status)
	assert.NotEmpty(t, r.MapID)

	starts := bc.byType(protocol.TypeActualGameStart)
	require.Len(t, starts, 1)
	roster, ok := starts[0].Data["players"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, roster, 2)
	heroes := map[string]bool{}
	for _, p := range roster {
		heroes[p["heroId"].(string)] = true
	}
	assert.True(t, heroes["fox"])
	assert.True(t, heroes["prometheus"])

	locks := bc.byType(protocol.TypePlayerHeroLock)
	assert.Len(t, locks, 2, "every lock is broadcast")
}

func TestHeroLockConflict(t *testing.T) {
	m, _ := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)

	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))

	err := m.SetHeroLock(roomID, "u1", true, "fox")
	assert.ErrorIs(t, err, room.ErrHeroTaken)

	r, err := m.Snapshot(roomID)
	require.NoError(t, err)
	member := r.Member("u1")
	require.NotNil(t, member)
	assert.False(t, member.HeroLocked)
	assert.Empty(t, member.HeroID)
}

func TestHeroLockIdempotentAndUnlock(t *testing.T) {
	m, bc := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)

	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))
	// Relocking the same hero by the same member is a no-op.
	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))
	assert.Len(t, bc.byType(protocol.TypePlayerHeroLock), 1)

	require.NoError(t, m.SetHeroLock(roomID, "host", false, ""))
	r, err := m.Snapshot(roomID)
	require.NoError(t, err)
	member := r.Member("host")
	assert.False(t, member.HeroLocked)
	assert.Empty(t, member.HeroID)

	// The unlock broadcast names the hero that was released.
	locks := bc.byType(protocol.TypePlayerHeroLock)
	require.Len(t, locks, 2)
	assert.Equal(t, "fox", locks[1].Data["heroId"])
	assert.Equal(t, false, locks[1].Data["isLocked"])

	// The freed hero can be taken by the other member.
	require.NoError(t, m.SetHeroLock(roomID, "u1", true, "fox"))
}

func TestBotAutoFill(t *testing.T) {
	m, bc := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)
	_, err = m.AddBot(r.ID, "host", "bot-1", "Bot One")
	require.NoError(t, err)

	_, err = m.SetReady(r.ID, "host", true)
	require.NoError(t, err)
	_, err = m.StartCharacterSelect(r.ID, "host")
	require.NoError(t, err)

	// The single human locking triggers the bot fill and the playing
	// transition with no further client input.
	require.NoError(t, m.SetHeroLock(r.ID, "host", true, "fox"))

	got, err := m.Snapshot(r.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusPlaying, got.Status)

	bot := got.Member("bot-1")
	require.NotNil(t, bot)
	assert.True(t, bot.HeroLocked)
	assert.NotEmpty(t, bot.HeroID)
	assert.NotEqual(t, "fox", bot.HeroID, "bot hero must be distinct")

	locks := bc.byType(protocol.TypePlayerHeroLock)
	assert.Len(t, locks, 2, "bot lock uses the same event channel")
}

func TestAddBotValidation(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)

	_, err = m.AddBot(r.ID, "someone-else", "bot-1", "")
	assert.ErrorIs(t, err, room.ErrNotHost)

	_, err = m.AddBot(r.ID, "host", "", "")
	assert.ErrorIs(t, err, room.ErrInvalidArg)

	got, err := m.AddBot(r.ID, "host", "bot-1", "")
	require.NoError(t, err)
	require.Len(t, got.Members, 2)
	assert.True(t, got.Members[1].IsBot)
	assert.True(t, got.Members[1].IsReady, "bots are always ready")

	_, err = m.AddBot(r.ID, "host", "bot-2", "")
	assert.ErrorIs(t, err, room.ErrRoomFull)
}

func TestHostTransferOnLeave(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 3, 0, "", nil)
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u2", "U2")
	require.NoError(t, err)

	got, err := m.LeaveRoom(r.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.HostID, "earliest remaining joiner becomes host")
	require.Len(t, got.Members, 2)
	assert.True(t, got.Members[0].IsHost)
}

func TestLastLeaveEndsRoom(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)

	got, err := m.LeaveRoom(r.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, room.StatusEnded, got.Status)
	assert.Empty(t, got.Members)

	// The emptied room is removed from the store entirely.
	_, err = m.Snapshot(r.ID)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	// The departed host is free to create or join again.
	_, err = m.CreateRoom("host", "Host", "again", 2, 0, "", nil)
	assert.NoError(t, err)
}

func TestEndMatch(t *testing.T) {
	m, bc := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)
	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))
	require.NoError(t, m.SetHeroLock(roomID, "u1", true, "prometheus"))

	result, err := m.EndMatch(roomID, "host")
	require.NoError(t, err)
	require.Len(t, result.Players, 2)

	r, err := m.Snapshot(roomID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusEnded, r.Status)
	require.NotNil(t, r.Result)

	_, err = m.EndMatch(roomID, "host")
	assert.ErrorIs(t, err, room.ErrWrongStatus, "end only valid from playing")

	assert.Len(t, bc.byType(protocol.TypeGameEnded), 1)
}

func TestGameActionFlow(t *testing.T) {
	m, _ := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)
	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))
	require.NoError(t, m.SetHeroLock(roomID, "u1", true, "prometheus"))

	err := m.HandleGameAction(roomID, "host", map[string]any{"action": "teleport"})
	assert.ErrorIs(t, err, room.ErrInvalidArg)

	snap, err := m.MatchSnapshot(roomID)
	require.NoError(t, err)
	assert.Equal(t, roomID, snap["roomId"])
}

func TestConcurrentHeroLockSingleWinner(t *testing.T) {
	m, _ := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)

	users := []string{"host", "u1"}
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, id := range users {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			for {
				err := m.SetHeroLock(roomID, id, true, "fox")
				if errors.Is(err, room.ErrRoomBusy) {
					continue
				}
				errs[i] = err
				return
			}
		}(i, id)
	}
	wg.Wait()

	var won, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, room.ErrHeroTaken):
			taken++
		default:
			t.Fatalf("unexpected hero lock error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, taken)

	r, err := m.Snapshot(roomID)
	require.NoError(t, err)
	holders := 0
	for _, member := range r.Members {
		if member.HeroLocked && member.HeroID == "fox" {
			holders++
		}
	}
	assert.Equal(t, 1, holders, "a hero is held by at most one member")
}

func TestLeaveDuringSelectDropsSeat(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 3, 0, "", nil)
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u2", "U2")
	require.NoError(t, err)
	for _, id := range []string{"host", "u1", "u2"} {
		_, err = m.SetReady(r.ID, id, true)
		require.NoError(t, err)
	}
	_, err = m.StartCharacterSelect(r.ID, "host")
	require.NoError(t, err)

	require.NoError(t, m.SetHeroLock(r.ID, "host", true, "fox"))
	require.NoError(t, m.SetHeroLock(r.ID, "u1", true, "prometheus"))

	// The departure completes the all-locked condition for the rest.
	_, err = m.LeaveRoom(r.ID, "u2")
	require.NoError(t, err)

	got, err := m.Snapshot(r.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusPlaying, got.Status)

	snap, err := m.MatchSnapshot(r.ID)
	require.NoError(t, err)
	players, ok := snap["players"].([]match.PlayerState)
	require.True(t, ok)
	require.Len(t, players, 2, "the departed member holds no seat")
	for _, p := range players {
		assert.NotEqual(t, "u2", p.UserID)
	}
}

func TestHandleReconnect(t *testing.T) {
	m, bc := newTestManager(t)
	roomID := startTwoHumanSelect(t, m)
	require.NoError(t, m.SetHeroLock(roomID, "host", true, "fox"))
	require.NoError(t, m.SetHeroLock(roomID, "u1", true, "prometheus"))

	playerStatus := func(userID string) match.PlayerStatus {
		snap, err := m.MatchSnapshot(roomID)
		require.NoError(t, err)
		players, ok := snap["players"].([]match.PlayerState)
		require.True(t, ok)
		for _, p := range players {
			if p.UserID == userID {
				return p.Status
			}
		}
		t.Fatalf("player %s not in match", userID)
		return ""
	}

	m.HandleDisconnect("u1")
	assert.Equal(t, match.StatusOffline, playerStatus("u1"))

	m.HandleReconnect("u1")
	assert.Equal(t, match.StatusAlive, playerStatus("u1"))

	// The returning member gets the full state directly, match included.
	direct := bc.directMessages()
	require.NotEmpty(t, direct)
	resync := direct[len(direct)-1]
	assert.Equal(t, protocol.TypeRoomUpdate, resync.Type)
	assert.Equal(t, "resync", resync.Data["eventType"])
	assert.NotNil(t, resync.Data["room"])
	assert.NotNil(t, resync.Data["match"])
}

func TestMatchTimeLimitEndsRoom(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 1, "", nil)
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)
	_, err = m.SetReady(r.ID, "u1", true)
	require.NoError(t, err)
	_, err = m.SetReady(r.ID, "host", true)
	require.NoError(t, err)
	_, err = m.StartCharacterSelect(r.ID, "host")
	require.NoError(t, err)
	require.NoError(t, m.SetHeroLock(r.ID, "host", true, "fox"))
	require.NoError(t, m.SetHeroLock(r.ID, "u1", true, "prometheus"))

	time.Sleep(1100 * time.Millisecond)

	// An action against an overrun match ends it instead.
	err = m.HandleGameAction(r.ID, "host", map[string]any{"action": "move", "direction": "up"})
	assert.ErrorIs(t, err, room.ErrWrongStatus)

	got, err := m.Snapshot(r.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusEnded, got.Status)
	require.NotNil(t, got.Result)
}

func TestHandleDisconnect(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.CreateRoom("host", "Host", "room", 2, 0, "", nil)
	require.NoError(t, err)
	_, err = m.JoinRoom(r.ID, "u1", "U1")
	require.NoError(t, err)

	// In the lobby a disconnect is a plain leave.
	m.HandleDisconnect("u1")
	got, err := m.Snapshot(r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
	_, inRoom := m.RoomOf("u1")
	assert.False(t, inRoom)

	// Unknown identities are ignored.
	m.HandleDisconnect("stranger")
}
