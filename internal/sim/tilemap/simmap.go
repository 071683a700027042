package tilemap

import (
	"errors"
	"fmt"
	"math"

	"swarmsim/internal/sim/geom"
)

var ErrOutOfBounds = errors.New("tilemap: out of bounds")

// TrianglesPerTile is the sub-resolution of one tile: 2x2 quadrants, each
// cut by one diagonal.
const TrianglesPerTile = 8

// Geometry is the shape of a tile grid: width x height tiles, local
// coordinates in tiles with (0,0) at the lower-left corner, world coordinates
// local*scale + offset. It never changes after construction.
type Geometry struct {
	width  int
	height int
	scale  float64
	offset geom.Vec2
}

func NewGeometry(width, height int, scale float64, offset geom.Vec2) (Geometry, error) {
	if width <= 0 || height <= 0 {
		return Geometry{}, fmt.Errorf("tilemap: invalid dimensions %dx%d", width, height)
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Geometry{}, fmt.Errorf("tilemap: invalid scale %v", scale)
	}
	return Geometry{width: width, height: height, scale: scale, offset: offset}, nil
}

// SimulationMap is a tile grid storing one T per triangle.
type SimulationMap[T any] struct {
	Geometry
	cells []T
}

// New builds a map whose triangle i holds fill(i). A nil fill leaves zero values.
func New[T any](width, height int, scale float64, offset geom.Vec2, fill func(tri int) T) (*SimulationMap[T], error) {
	g, err := NewGeometry(width, height, scale, offset)
	if err != nil {
		return nil, err
	}
	m := &SimulationMap[T]{
		Geometry: g,
		cells:    make([]T, width*height*TrianglesPerTile),
	}
	if fill != nil {
		for i := range m.cells {
			m.cells[i] = fill(i)
		}
	}
	return m, nil
}

// FMap returns a map with identical topology whose triangle i holds f(i, m[i]).
func FMap[T, U any](m *SimulationMap[T], f func(tri int, v T) U) *SimulationMap[U] {
	out := &SimulationMap[U]{
		Geometry: m.Geometry,
		cells:    make([]U, len(m.cells)),
	}
	for i, v := range m.cells {
		out.cells[i] = f(i, v)
	}
	return out
}

func (g Geometry) Width() int         { return g.width }
func (g Geometry) Height() int        { return g.height }
func (g Geometry) Scale() float64     { return g.scale }
func (g Geometry) Offset() geom.Vec2  { return g.offset }
func (g Geometry) TriangleCount() int { return g.width * g.height * TrianglesPerTile }

func (g Geometry) ToLocal(world geom.Vec2) geom.Vec2 {
	return world.Sub(g.offset).Scale(1 / g.scale)
}

func (g Geometry) ToWorld(local geom.Vec2) geom.Vec2 {
	return local.Scale(g.scale).Add(g.offset)
}

// InBounds reports whether a local point lies inside [0,width)x[0,height).
func (g Geometry) InBounds(local geom.Vec2) bool {
	return local.IsFinite() && local.X >= 0 && local.Y >= 0 &&
		local.X < float64(g.width) && local.Y < float64(g.height)
}

func (g Geometry) TileInBounds(c geom.Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

// Get returns the payload of triangle i. i must be in [0, TriangleCount()).
func (m *SimulationMap[T]) Get(i int) T { return m.cells[i] }

func (m *SimulationMap[T]) Set(i int, v T) { m.cells[i] = v }

// TriangleIndex returns the index of triangle t in quadrant (qx, qy) of tile c.
func (g Geometry) TriangleIndex(c geom.Coord, qx, qy, t int) int {
	return (c.Y*g.width+c.X)*TrianglesPerTile + qy*4 + qx*2 + t
}

// Tile returns the eight triangle payloads of tile c.
func (m *SimulationMap[T]) Tile(c geom.Coord) ([TrianglesPerTile]T, error) {
	var out [TrianglesPerTile]T
	if !m.TileInBounds(c) {
		return out, fmt.Errorf("tile %v: %w", c, ErrOutOfBounds)
	}
	base := (c.Y*m.width + c.X) * TrianglesPerTile
	copy(out[:], m.cells[base:base+TrianglesPerTile])
	return out, nil
}

// TriangleAt locates the triangle containing a local point.
func (g Geometry) TriangleAt(local geom.Vec2) (int, error) {
	if !g.InBounds(local) {
		return 0, fmt.Errorf("point %v: %w", local, ErrOutOfBounds)
	}
	cx := int(math.Floor(local.X * 2))
	cy := int(math.Floor(local.Y * 2))
	u := local.X*2 - float64(cx)
	v := local.Y*2 - float64(cy)
	return g.QuadrantTriangle(geom.C(cx, cy), u, v), nil
}

// QuadrantTriangle returns the triangle of quadrant cell q (half-tile grid)
// containing the point (u, v) given in the cell's unit square.
func (g Geometry) QuadrantTriangle(q geom.Coord, u, v float64) int {
	tile := geom.C(q.X/2, q.Y/2)
	return g.TriangleIndex(tile, q.X%2, q.Y%2, TriangleSide(q, u, v))
}

// TriangleQuadrant is the inverse of QuadrantTriangle: the half-tile cell
// and side of triangle i.
func (g Geometry) TriangleQuadrant(i int) (geom.Coord, int) {
	tile := i / TrianglesPerTile
	r := i % TrianglesPerTile
	tx, ty := tile%g.width, tile/g.width
	qy, qx, t := r/4, (r%4)/2, r%2
	return geom.C(tx*2+qx, ty*2+qy), t
}

// TriangleCenter is the centroid of triangle i in local coordinates.
func (g Geometry) TriangleCenter(i int) geom.Vec2 {
	q, t := g.TriangleQuadrant(i)
	var u, v float64
	switch {
	case SlashDiagonal(q) && t == 0:
		u, v = 2.0/3, 1.0/3
	case SlashDiagonal(q):
		u, v = 1.0/3, 2.0/3
	case t == 0:
		u, v = 1.0/3, 1.0/3
	default:
		u, v = 2.0/3, 2.0/3
	}
	return geom.V((float64(q.X)+u)/2, (float64(q.Y)+v)/2)
}

// SlashDiagonal reports whether quadrant cell q is cut from its lower-left to
// its upper-right corner. The lower-left and upper-right quadrants of a tile
// use '/', the other two '\'.
func SlashDiagonal(q geom.Coord) bool {
	return geom.Mod(q.X, 2) == geom.Mod(q.Y, 2)
}

// DiagonalSide is the signed side of (u, v) relative to the diagonal of q.
// Negative values belong to triangle 0 for '\' cells and triangle 1 for '/' cells.
func DiagonalSide(q geom.Coord, u, v float64) float64 {
	if SlashDiagonal(q) {
		return u - v
	}
	return u + v - 1
}

// TriangleSide returns 0 or 1: for '/' cells 0 is the lower-right triangle,
// for '\' cells 0 is the lower-left triangle.
func TriangleSide(q geom.Coord, u, v float64) int {
	return SideFromSign(q, DiagonalSide(q, u, v))
}

func SideFromSign(q geom.Coord, s float64) int {
	if SlashDiagonal(q) {
		if s > 0 {
			return 0
		}
		return 1
	}
	if s < 0 {
		return 0
	}
	return 1
}
