// Package slam holds a robot's own occupancy belief about the map, the
// half-resolution view used for planning, and the path finder over it.
package slam

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

var (
	ErrOutOfBounds = errors.New("slam: out of bounds")
	ErrNoPath      = errors.New("slam: no path")
	ErrMismatch    = errors.New("slam: map dimensions differ")
)

// Status is the belief about one SLAM cell.
type Status uint8

const (
	Unseen Status = iota
	Open
	Solid
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case Solid:
		return "solid"
	default:
		return "unseen"
	}
}

// Map is one robot's occupancy grid. A cell is a quarter of a collision tile
// (one quadrant), so the map is twice the collision map in each direction.
type Map struct {
	geo    tilemap.Geometry
	width  int
	height int
	cells  []Status

	inaccuracy float64
	rng        *rand.Rand
	position   geom.Vec2 // approximate, world space
	heading    float64

	coarse *CoarseMap
}

// NewMap creates an all-Unseen map over the collision geometry. The position
// estimate deviates from the truth by up to inaccuracy world units per axis,
// drawn from a PRNG seeded with seed.
func NewMap(geo tilemap.Geometry, inaccuracy float64, seed uint64) *Map {
	m := &Map{
		geo:        geo,
		width:      geo.Width() * 2,
		height:     geo.Height() * 2,
		inaccuracy: inaccuracy,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	m.cells = make([]Status, m.width*m.height)
	m.coarse = newCoarseMap(m)
	return m
}

func (m *Map) Width() int                 { return m.width }
func (m *Map) Height() int                { return m.height }
func (m *Map) Geometry() tilemap.Geometry { return m.geo }
func (m *Map) Coarse() *CoarseMap         { return m.coarse }

func (m *Map) inBounds(c geom.Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < m.width && c.Y < m.height
}

// SetExploredByTriangle records an observation of collision triangle tri.
// Solid is absorbing: once a cell has been seen solid it stays solid.
func (m *Map) SetExploredByTriangle(tri int, isOpen bool) {
	if tri < 0 || tri >= m.geo.TriangleCount() {
		return
	}
	c, _ := m.geo.TriangleQuadrant(tri)
	if !m.inBounds(c) {
		return
	}
	i := c.Y*m.width + c.X
	if m.cells[i] == Solid {
		return
	}
	if isOpen {
		m.cells[i] = Open
	} else {
		m.cells[i] = Solid
	}
}

// Status returns the belief of SLAM cell c.
func (m *Map) Status(c geom.Coord) (Status, error) {
	if !m.inBounds(c) {
		return Unseen, fmt.Errorf("slam cell %v (%dx%d): %w", c, m.width, m.height, ErrOutOfBounds)
	}
	return m.cells[c.Y*m.width+c.X], nil
}

// SetStatus overwrites a belief directly.
func (m *Map) SetStatus(c geom.Coord, s Status) error {
	if !m.inBounds(c) {
		return fmt.Errorf("slam cell %v (%dx%d): %w", c, m.width, m.height, ErrOutOfBounds)
	}
	m.cells[c.Y*m.width+c.X] = s
	return nil
}

// Statuses returns a row-major copy of the grid.
func (m *Map) Statuses() []Status {
	out := make([]Status, len(m.cells))
	copy(out, m.cells)
	return out
}

// Counts returns how many cells hold each status.
func (m *Map) Counts() (unseen, open, solid int) {
	for _, s := range m.cells {
		switch s {
		case Open:
			open++
		case Solid:
			solid++
		default:
			unseen++
		}
	}
	return unseen, open, solid
}

// UpdatePosition stores a noisy estimate of the robot's true pose.
func (m *Map) UpdatePosition(truePos geom.Vec2, heading float64) {
	noise := geom.Vec2{}
	if m.inaccuracy > 0 {
		noise = geom.V(
			(m.rng.Float64()*2-1)*m.inaccuracy,
			(m.rng.Float64()*2-1)*m.inaccuracy,
		)
	}
	m.position = truePos.Add(noise)
	m.heading = geom.NormalizeDeg(heading)
}

// ApproximatePosition is the estimated world position of the robot.
func (m *Map) ApproximatePosition() geom.Vec2 { return m.position }

// Heading is the robot's global heading in degrees, counter-clockwise from east.
func (m *Map) Heading() float64 { return m.heading }

// Synchronize merges all maps cell by cell and writes the result into each
// of them. Maps must share dimensions.
func Synchronize(maps []*Map) error {
	if len(maps) < 2 {
		return nil
	}
	first := maps[0]
	for _, m := range maps[1:] {
		if m.width != first.width || m.height != first.height {
			return fmt.Errorf("%dx%d vs %dx%d: %w", m.width, m.height, first.width, first.height, ErrMismatch)
		}
	}
	merged := make([]Status, len(first.cells))
	for _, m := range maps {
		for i, s := range m.cells {
			merged[i] = Merge(merged[i], s)
		}
	}
	for _, m := range maps {
		copy(m.cells, merged)
	}
	return nil
}
