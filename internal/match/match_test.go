package match_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elijah-cyy/mishi-server/internal/mapgen"
	"github.com/Elijah-cyy/mishi-server/internal/match"
)

// corridorMap hand-builds a 3x1-style strip on a 3x3 grid:
//
//	locked exit (0,1) ↔ hall (1,1) ↔ key room (2,1)
func corridorMap() *mapgen.GameMap {
	m := &mapgen.GameMap{
		ID:   "test-map",
		Mode: mapgen.ModeNightmare,
		Size: 3,
	}
	m.Cells = make([][]*mapgen.Cell, 3)
	for y := 0; y < 3; y++ {
		m.Cells[y] = make([]*mapgen.Cell, 3)
		for x := 0; x < 3; x++ {
			m.Cells[y][x] = &mapgen.Cell{X: x, Y: y, Exits: map[mapgen.Direction]bool{}}
		}
	}

	hall := m.CellAt(1, 1)
	hall.Type = mapgen.TypeHall
	hall.Revealed = true
	hall.Visited = true
	hall.Exits[mapgen.DirLeft] = true
	hall.Exits[mapgen.DirRight] = true

	exit := m.CellAt(0, 1)
	exit.Type = mapgen.TypeExit
	exit.IsExit = true
	exit.IsLocked = true
	exit.Exits[mapgen.DirRight] = true

	key := m.CellAt(2, 1)
	key.Type = mapgen.TypeKeyroom
	key.HasKey = true
	key.Exits[mapgen.DirLeft] = true

	return m
}

func newTestState() *match.State {
	seats := []match.Seat{
		{UserID: "u1", HeroID: "fox"},
		{UserID: "bot-1", HeroID: "prometheus", IsBot: true},
	}
	return match.New("room-1", seats, corridorMap(), time.Hour)
}

func TestNewPlacesSeatsInHall(t *testing.T) {
	s := newTestState()

	p, ok := s.Player("u1")
	require.True(t, ok)
	assert.Equal(t, 1, p.X)
	assert.Equal(t, 1, p.Y)
	assert.Empty(t, p.Inventory)
	assert.Zero(t, p.Score)
	assert.Equal(t, match.StatusAlive, p.Status)
}

func TestMoveValidation(t *testing.T) {
	s := newTestState()

	// No mutual exit upward from the hall.
	_, err := s.Move("u1", mapgen.DirUp)
	assert.ErrorIs(t, err, match.ErrBlockedMove)

	_, err = s.Move("ghost", mapgen.DirRight)
	assert.ErrorIs(t, err, match.ErrUnknownActor)

	p, err := s.Move("u1", mapgen.DirRight)
	require.NoError(t, err)
	assert.Equal(t, 2, p.X)
	assert.Equal(t, 5, p.Score, "first visit scores")

	// Walking back over a visited cell scores nothing further.
	p, err = s.Move("u1", mapgen.DirLeft)
	require.NoError(t, err)
	assert.Equal(t, 1, p.X)
	assert.Equal(t, 5, p.Score)

	// The returned state is a detached copy, never a window into the
	// match's own bookkeeping.
	p.Inventory = append(p.Inventory, "key")
	got, ok := s.Player("u1")
	require.True(t, ok)
	assert.NotContains(t, got.Inventory, "key")
}

func TestExpired(t *testing.T) {
	s := match.New("room-1", []match.Seat{{UserID: "u1", HeroID: "fox"}},
		corridorMap(), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, s.Expired())

	// A zero limit means the match never times out.
	unlimited := match.New("room-2", []match.Seat{{UserID: "u1", HeroID: "fox"}},
		corridorMap(), 0)
	assert.False(t, unlimited.Expired())
}

func TestKeyUnlockEscapeFlow(t *testing.T) {
	s := newTestState()

	// Key pickup requires standing on the key cell.
	err := s.PickupKey("u1")
	assert.ErrorIs(t, err, match.ErrNothingHere)

	_, err = s.Move("u1", mapgen.DirRight)
	require.NoError(t, err)
	require.NoError(t, s.PickupKey("u1"))

	p, _ := s.Player("u1")
	assert.Contains(t, p.Inventory, "key")

	// A second pickup finds nothing.
	assert.ErrorIs(t, s.PickupKey("u1"), match.ErrNothingHere)

	// Walk to the exit cell.
	_, err = s.Move("u1", mapgen.DirLeft)
	require.NoError(t, err)
	_, err = s.Move("u1", mapgen.DirLeft)
	require.NoError(t, err)

	// Escape is blocked until the exit is unlocked.
	assert.ErrorIs(t, s.Escape("u1"), match.ErrExitLocked)

	require.NoError(t, s.UnlockExit("u1"))
	p, _ = s.Player("u1")
	assert.NotContains(t, p.Inventory, "key", "unlocking spends the key")

	require.NoError(t, s.Escape("u1"))
	p, _ = s.Player("u1")
	assert.Equal(t, match.StatusEscaped, p.Status)

	// Escaping twice does not double-score.
	score := p.Score
	require.NoError(t, s.Escape("u1"))
	p, _ = s.Player("u1")
	assert.Equal(t, score, p.Score)
}

func TestUnlockWithoutKey(t *testing.T) {
	s := newTestState()
	_, err := s.Move("u1", mapgen.DirLeft)
	require.NoError(t, err)

	assert.ErrorIs(t, s.UnlockExit("u1"), match.ErrExitLocked)
}

func TestResultsAndSnapshot(t *testing.T) {
	s := newTestState()
	_, err := s.Move("u1", mapgen.DirRight)
	require.NoError(t, err)
	require.NoError(t, s.PickupKey("u1"))
	s.AppendEvent("TAUNT", "u1", map[string]any{"emote": "wave"})

	results := s.Results()
	require.Len(t, results, 2)
	byID := map[string]match.FinalResult{}
	for _, r := range results {
		byID[r.UserID] = r
	}
	assert.Equal(t, 55, byID["u1"].Score)
	assert.Contains(t, byID["u1"].Inventory, "key")
	assert.Zero(t, byID["bot-1"].Score)

	snap := s.Snapshot()
	assert.Equal(t, "room-1", snap["roomId"])
	assert.Equal(t, "test-map", snap["mapId"])
	events, ok := snap["events"].([]match.Event)
	require.True(t, ok)
	assert.NotEmpty(t, events)
}

func TestRuntimeOwnership(t *testing.T) {
	rt := match.NewRuntime()
	seats := []match.Seat{{UserID: "u1", HeroID: "fox"}}

	s := rt.Create("room-1", seats, corridorMap(), time.Minute)
	got, ok := rt.Get("room-1")
	require.True(t, ok)
	assert.Same(t, s, got)

	rt.Drop("room-1")
	_, ok = rt.Get("room-1")
	assert.False(t, ok)
}

func TestSetStatusOffline(t *testing.T) {
	s := newTestState()
	s.SetStatus("u1", match.StatusOffline)
	p, _ := s.Player("u1")
	assert.Equal(t, match.StatusOffline, p.Status)
}
