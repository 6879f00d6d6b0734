// Package match owns the ephemeral per-room gameplay state that exists
// only while a room is playing. Rooms reference match state by room id;
// nothing outside this package holds direct references to it.
package match

import (
	"errors"
	"sync"
	"time"

	"github.com/Elijah-cyy/mishi-server/internal/mapgen"
)

var (
	ErrNoMatch      = errors.New("no active match for room")
	ErrUnknownActor = errors.New("actor not in match")
	ErrBlockedMove  = errors.New("no connected exit in that direction")
	ErrNothingHere  = errors.New("nothing to interact with in this cell")
	ErrExitLocked   = errors.New("exit is locked")
)

type PlayerStatus string

const (
	StatusAlive   PlayerStatus = "alive"
	StatusEscaped PlayerStatus = "escaped"
	StatusOffline PlayerStatus = "offline"
)

// Seat is the roster entry a match is created from.
type Seat struct {
	UserID string
	HeroID string
	IsBot  bool
}

// PlayerState is one participant's in-match state.
type PlayerState struct {
	UserID    string       `json:"userId"`
	HeroID    string       `json:"heroId"`
	IsBot     bool         `json:"isBot"`
	X         int          `json:"x"`
	Y         int          `json:"y"`
	Inventory []string     `json:"inventory"`
	Score     int          `json:"score"`
	Status    PlayerStatus `json:"status"`
}

// Event is one entry in the match's append-only event log.
type Event struct {
	Type   string         `json:"type"`
	UserID string         `json:"userId,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}

// Point values for match scoring.
const (
	scoreVisit  = 5
	scoreKey    = 50
	scoreUnlock = 30
	scoreEscape = 100
	scoreTrap   = -20
)

// maxEvents bounds the event log so a long match cannot grow memory
// without limit; the oldest entries are dropped first.
const maxEvents = 2048

// State is the runtime state of one match.
type State struct {
	RoomID    string
	StartTime time.Time
	TimeLimit time.Duration
	Map       *mapgen.GameMap

	mu      sync.RWMutex
	players map[string]*PlayerState
	events  []Event
}

// New places every seat in the hall with an empty inventory and zero
// score.
func New(roomID string, seats []Seat, m *mapgen.GameMap, limit time.Duration) *State {
	hall := m.Hall()
	s := &State{
		RoomID:    roomID,
		StartTime: time.Now(),
		TimeLimit: limit,
		Map:       m,
		players:   make(map[string]*PlayerState, len(seats)),
	}
	for _, seat := range seats {
		s.players[seat.UserID] = &PlayerState{
			UserID:    seat.UserID,
			HeroID:    seat.HeroID,
			IsBot:     seat.IsBot,
			X:         hall.X,
			Y:         hall.Y,
			Inventory: []string{},
			Status:    StatusAlive,
		}
	}
	return s
}

// Move walks a player one cell in the given direction. The move is only
// legal over a mutual exit pair. Entering an untouched cell reveals it
// and scores the visit; a trapped cell fires its trap once.
func (s *State) Move(userID string, dir mapgen.Direction) (PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[userID]
	if !ok {
		return PlayerState{}, ErrUnknownActor
	}
	if !s.Map.Connected(p.X, p.Y, dir) {
		return PlayerState{}, ErrBlockedMove
	}
	dx, dy := mapgen.Delta(dir)
	p.X += dx
	p.Y += dy

	cell := s.Map.CellAt(p.X, p.Y)
	cell.Revealed = true
	if !cell.Visited {
		cell.Visited = true
		p.Score += scoreVisit
	}
	if cell.HasTrap {
		cell.HasTrap = false
		p.Score += scoreTrap
		s.appendEventLocked(Event{
			Type:   "TRAP_TRIGGERED",
			UserID: userID,
			Data:   map[string]any{"x": cell.X, "y": cell.Y},
			At:     time.Now(),
		})
	}
	cp := *p
	cp.Inventory = append([]string(nil), p.Inventory...)
	return cp, nil
}

// PickupKey takes the key in the player's current cell.
func (s *State) PickupKey(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[userID]
	if !ok {
		return ErrUnknownActor
	}
	cell := s.Map.CellAt(p.X, p.Y)
	if cell == nil || !cell.HasKey {
		return ErrNothingHere
	}
	cell.HasKey = false
	p.Inventory = append(p.Inventory, "key")
	p.Score += scoreKey
	s.appendEventLocked(Event{
		Type:   "KEY_PICKED_UP",
		UserID: userID,
		At:     time.Now(),
	})
	return nil
}

// UnlockExit spends a key to unlock the exit cell the player stands on.
func (s *State) UnlockExit(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[userID]
	if !ok {
		return ErrUnknownActor
	}
	cell := s.Map.CellAt(p.X, p.Y)
	if cell == nil || !cell.IsExit {
		return ErrNothingHere
	}
	if !cell.IsLocked {
		return ErrNothingHere
	}
	keyIdx := -1
	for i, item := range p.Inventory {
		if item == "key" {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return ErrExitLocked
	}
	p.Inventory = append(p.Inventory[:keyIdx], p.Inventory[keyIdx+1:]...)
	cell.IsLocked = false
	p.Score += scoreUnlock
	s.appendEventLocked(Event{
		Type:   "EXIT_UNLOCKED",
		UserID: userID,
		At:     time.Now(),
	})
	return nil
}

// Escape marks a player escaped through an unlocked exit cell.
func (s *State) Escape(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[userID]
	if !ok {
		return ErrUnknownActor
	}
	cell := s.Map.CellAt(p.X, p.Y)
	if cell == nil || !cell.IsExit {
		return ErrNothingHere
	}
	if cell.IsLocked {
		return ErrExitLocked
	}
	if p.Status != StatusEscaped {
		p.Status = StatusEscaped
		p.Score += scoreEscape
		s.appendEventLocked(Event{
			Type:   "PLAYER_ESCAPED",
			UserID: userID,
			At:     time.Now(),
		})
	}
	return nil
}

// SetStatus overrides a player's status, used when a socket dies
// mid-match.
func (s *State) SetStatus(userID string, status PlayerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[userID]; ok {
		p.Status = status
	}
}

// AppendEvent records a free-form gameplay event from a client.
func (s *State) AppendEvent(evType, userID string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendEventLocked(Event{Type: evType, UserID: userID, Data: data, At: time.Now()})
}

func (s *State) appendEventLocked(e Event) {
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// Player returns a copy of one participant's state.
func (s *State) Player(userID string) (PlayerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[userID]
	if !ok {
		return PlayerState{}, false
	}
	cp := *p
	cp.Inventory = append([]string(nil), p.Inventory...)
	return cp, true
}

// Elapsed is the time since match start.
func (s *State) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// Expired reports whether the match has outlived its time limit.
func (s *State) Expired() bool {
	return s.TimeLimit > 0 && s.Elapsed() > s.TimeLimit
}

// Snapshot returns the roster and recent events for client resync.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]PlayerState, 0, len(s.players))
	for _, p := range s.players {
		cp := *p
		cp.Inventory = append([]string(nil), p.Inventory...)
		players = append(players, cp)
	}
	events := append([]Event(nil), s.events...)
	return map[string]any{
		"roomId":    s.RoomID,
		"startTime": s.StartTime.UnixMilli(),
		"timeLimit": int(s.TimeLimit.Seconds()),
		"mapId":     s.Map.ID,
		"players":   players,
		"events":    events,
	}
}

// FinalResult is one participant's standing when the match ends.
type FinalResult struct {
	UserID    string
	HeroID    string
	Score     int
	Inventory []string
	Status    PlayerStatus
}

// Results snapshots every participant's final state.
func (s *State) Results() []FinalResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FinalResult, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, FinalResult{
			UserID:    p.UserID,
			HeroID:    p.HeroID,
			Score:     p.Score,
			Inventory: append([]string(nil), p.Inventory...),
			Status:    p.Status,
		})
	}
	return out
}

// Runtime owns every live match, keyed by room id.
type Runtime struct {
	mu      sync.RWMutex
	matches map[string]*State
}

func NewRuntime() *Runtime {
	return &Runtime{matches: map[string]*State{}}
}

// Create builds and registers the match for a room, replacing any
// leftover state for the same id.
func (rt *Runtime) Create(roomID string, seats []Seat, m *mapgen.GameMap, limit time.Duration) *State {
	s := New(roomID, seats, m, limit)
	rt.mu.Lock()
	rt.matches[roomID] = s
	rt.mu.Unlock()
	return s
}

func (rt *Runtime) Get(roomID string) (*State, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	s, ok := rt.matches[roomID]
	return s, ok
}

// Drop discards a room's match state.
func (rt *Runtime) Drop(roomID string) {
	rt.mu.Lock()
	delete(rt.matches, roomID)
	rt.mu.Unlock()
}
