// Package mapgen procedurally builds the playable level: a square grid
// of typed rooms joined by exits, with every room guaranteed reachable
// from the central hall.
package mapgen

import (
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeClassic   Mode = "classic"
	ModeNightmare Mode = "nightmare"
)

type RoomType string

const (
	TypeHall     RoomType = "hall"
	TypeBedroom  RoomType = "bedroom"
	TypeGameroom RoomType = "gameroom"
	TypeCorridor RoomType = "corridor"
	TypeStorage  RoomType = "storage"
	TypeExit     RoomType = "exit"
	TypeKeyroom  RoomType = "keyroom"
)

type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

var directions = []Direction{DirUp, DirDown, DirLeft, DirRight}

// Opposite returns the reciprocal direction. An exit only connects two
// cells when the neighbor declares the opposite exit.
func Opposite(d Direction) Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	default:
		return DirLeft
	}
}

// Delta returns the grid offset for a direction. Up decreases y.
func Delta(d Direction) (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	default:
		return 1, 0
	}
}

// Cell is one generated room on the grid.
type Cell struct {
	X        int                `json:"x"`
	Y        int                `json:"y"`
	Type     RoomType           `json:"type"`
	Exits    map[Direction]bool `json:"exits"`
	Revealed bool               `json:"revealed"`
	Visited  bool               `json:"visited"`
	HasKey   bool               `json:"hasKey"`
	HasTrap  bool               `json:"hasTrap"`
	IsExit   bool               `json:"isExit"`
	IsLocked bool               `json:"isLocked"`
}

func (c *Cell) addExit(d Direction) {
	c.Exits[d] = true
}

// GameMap is a generated level. Cells is indexed [y][x].
type GameMap struct {
	ID       string    `json:"id"`
	Mode     Mode      `json:"mode"`
	Size     int       `json:"size"`
	Seed     int64     `json:"seed"`
	Cells    [][]*Cell `json:"cells"`
	Fallback bool      `json:"fallback,omitempty"`
}

func (m *GameMap) CellAt(x, y int) *Cell {
	if y < 0 || y >= len(m.Cells) || x < 0 || x >= len(m.Cells[y]) {
		return nil
	}
	return m.Cells[y][x]
}

// Hall returns the fixed center cell.
func (m *GameMap) Hall() *Cell {
	return m.CellAt(m.Size/2, m.Size/2)
}

// Connected reports whether the exit from (x, y) toward d is mutual.
func (m *GameMap) Connected(x, y int, d Direction) bool {
	from := m.CellAt(x, y)
	if from == nil || !from.Exits[d] {
		return false
	}
	dx, dy := Delta(d)
	to := m.CellAt(x+dx, y+dy)
	return to != nil && to.Exits[Opposite(d)]
}

// typeWeights is the draw table for ordinary cells. Nightmare mode
// shifts weight toward storage and corridor rooms.
func typeWeights(mode Mode) []weightedType {
	if mode == ModeNightmare {
		return []weightedType{
			{TypeBedroom, 20},
			{TypeGameroom, 10},
			{TypeCorridor, 35},
			{TypeStorage, 30},
			{TypeHall, 5},
		}
	}
	return []weightedType{
		{TypeBedroom, 30},
		{TypeGameroom, 20},
		{TypeCorridor, 25},
		{TypeStorage, 15},
		{TypeHall, 10},
	}
}

type weightedType struct {
	t RoomType
	w int
}

func drawType(rng *rand.Rand, table []weightedType) RoomType {
	total := 0
	for _, e := range table {
		total += e.w
	}
	n := rng.Intn(total)
	for _, e := range table {
		n -= e.w
		if n < 0 {
			return e.t
		}
	}
	return table[len(table)-1].t
}

// Generator builds maps of a fixed grid size.
type Generator struct {
	size   int
	logger *slog.Logger
}

// NewGenerator requires an odd size so the hall lands on a center cell;
// even sizes are bumped up by one.
func NewGenerator(size int, logger *slog.Logger) *Generator {
	if size < 3 {
		size = 7
	}
	if size%2 == 0 {
		size++
	}
	return &Generator{size: size, logger: logger}
}

// Generate builds a fully-connected map for the given mode. Any internal
// failure is contained: the room-creation path must never crash, so a
// panic here degrades to a one-room hall-only fallback.
func (g *Generator) Generate(mode Mode, seed int64) (m *GameMap) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("map generation failed, using fallback",
				"mode", mode, "seed", seed, "panic", r)
			m = g.fallbackMap(mode, seed)
		}
	}()

	rng := rand.New(rand.NewSource(seed))
	m = g.emptyMap(mode, seed)
	center := g.size / 2

	// Hall: center, all four exits, always revealed.
	hall := m.CellAt(center, center)
	hall.Type = TypeHall
	hall.Revealed = true
	for _, d := range directions {
		hall.addExit(d)
	}

	// Exit room: one border cell, exits derived from the border(s) it
	// touches so it never points off-grid.
	exitCell := g.pickBorderCell(rng, m)
	exitCell.Type = TypeExit
	exitCell.IsExit = true
	for _, d := range inwardDirections(exitCell.X, exitCell.Y, g.size) {
		exitCell.addExit(d)
	}
	if mode == ModeNightmare {
		exitCell.IsLocked = true
	}

	// Key room (nightmare only): interior, not the hall. Its exits are
	// left to the connectivity pass.
	if mode == ModeNightmare {
		key := g.pickInteriorCell(rng, m, center)
		key.Type = TypeKeyroom
		key.HasKey = true
	}

	// Ordinary cells: weighted type, random exit subset.
	table := typeWeights(mode)
	trapChance := 15
	if mode == ModeNightmare {
		trapChance = 25
	}
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			c := m.CellAt(x, y)
			if c.Type != "" {
				continue
			}
			c.Type = drawType(rng, table)
			if c.Type == TypeHall {
				for _, d := range directions {
					c.addExit(d)
				}
			} else {
				g.assignRandomExits(rng, c)
			}
			if rng.Intn(100) < trapChance {
				c.HasTrap = true
			}
		}
	}

	g.repairConnectivity(m)
	return m
}

func (g *Generator) emptyMap(mode Mode, seed int64) *GameMap {
	m := &GameMap{
		ID:   uuid.NewString(),
		Mode: mode,
		Size: g.size,
		Seed: seed,
	}
	m.Cells = make([][]*Cell, g.size)
	for y := 0; y < g.size; y++ {
		m.Cells[y] = make([]*Cell, g.size)
		for x := 0; x < g.size; x++ {
			m.Cells[y][x] = &Cell{X: x, Y: y, Exits: map[Direction]bool{}}
		}
	}
	return m
}

// fallbackMap is the minimal hall-only level returned when generation
// fails.
func (g *Generator) fallbackMap(mode Mode, seed int64) *GameMap {
	hall := &Cell{
		X:        0,
		Y:        0,
		Type:     TypeHall,
		Exits:    map[Direction]bool{},
		Revealed: true,
	}
	return &GameMap{
		ID:       uuid.NewString(),
		Mode:     mode,
		Size:     1,
		Seed:     seed,
		Cells:    [][]*Cell{{hall}},
		Fallback: true,
	}
}

func (g *Generator) pickBorderCell(rng *rand.Rand, m *GameMap) *Cell {
	var border []*Cell
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			if x == 0 || y == 0 || x == g.size-1 || y == g.size-1 {
				border = append(border, m.CellAt(x, y))
			}
		}
	}
	return border[rng.Intn(len(border))]
}

func (g *Generator) pickInteriorCell(rng *rand.Rand, m *GameMap, center int) *Cell {
	var interior []*Cell
	for y := 1; y < g.size-1; y++ {
		for x := 1; x < g.size-1; x++ {
			if x == center && y == center {
				continue
			}
			c := m.CellAt(x, y)
			if c.Type == "" {
				interior = append(interior, c)
			}
		}
	}
	return interior[rng.Intn(len(interior))]
}

// inwardDirections lists the directions from (x, y) that stay on the
// grid.
func inwardDirections(x, y, size int) []Direction {
	var out []Direction
	for _, d := range directions {
		dx, dy := Delta(d)
		nx, ny := x+dx, y+dy
		if nx >= 0 && nx < size && ny >= 0 && ny < size {
			out = append(out, d)
		}
	}
	return out
}

// assignRandomExits gives an ordinary cell 1-3 exits, only toward cells
// that exist.
func (g *Generator) assignRandomExits(rng *rand.Rand, c *Cell) {
	candidates := inwardDirections(c.X, c.Y, g.size)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	n := 1 + rng.Intn(3)
	if n > len(candidates) {
		n = len(candidates)
	}
	for _, d := range candidates[:n] {
		c.addExit(d)
	}
}

// repairConnectivity guarantees every cell is reachable from the hall.
// Reachability only counts mutual exits. Each unreached cell is stitched
// to its nearest already-reached cell by walking greedily toward it and
// adding the missing exit pair at every step.
func (g *Generator) repairConnectivity(m *GameMap) {
	reached := g.bfsFromHall(m)

	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			c := m.CellAt(x, y)
			if reached[c] {
				continue
			}
			target := nearestReached(m, c, reached)
			g.stitch(m, c, target, reached)
			// Cells adjacent to the new corridor may have become
			// reachable through it as well.
			reached = g.bfsFromHall(m)
		}
	}
}

func (g *Generator) bfsFromHall(m *GameMap) map[*Cell]bool {
	reached := map[*Cell]bool{}
	hall := m.Hall()
	queue := []*Cell{hall}
	reached[hall] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			if !m.Connected(cur.X, cur.Y, d) {
				continue
			}
			dx, dy := Delta(d)
			next := m.CellAt(cur.X+dx, cur.Y+dy)
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reached
}

func nearestReached(m *GameMap, from *Cell, reached map[*Cell]bool) *Cell {
	var best *Cell
	bestDist := 1 << 30
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			c := m.CellAt(x, y)
			if !reached[c] {
				continue
			}
			d := abs(c.X-from.X) + abs(c.Y-from.Y)
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
	}
	return best
}

// stitch walks from c toward target one cell at a time, opening the
// missing exit pair at each step. Horizontal distance is closed first;
// the choice is arbitrary but keeps the walk deterministic.
func (g *Generator) stitch(m *GameMap, c, target *Cell, reached map[*Cell]bool) {
	cur := c
	for cur != target {
		var d Direction
		switch {
		case cur.X < target.X:
			d = DirRight
		case cur.X > target.X:
			d = DirLeft
		case cur.Y < target.Y:
			d = DirDown
		default:
			d = DirUp
		}
		dx, dy := Delta(d)
		next := m.CellAt(cur.X+dx, cur.Y+dy)
		cur.addExit(d)
		next.addExit(Opposite(d))
		if reached[next] {
			return
		}
		cur = next
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
