package geom

import "math"

// Vec2 is a point or direction in world (or local map) space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Len() }
func (v Vec2) IsFinite() bool       { return !math.IsNaN(v.X+v.Y) && !math.IsInf(v.X+v.Y, 0) }
func (v Vec2) Floor() Coord         { return Coord{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))} }
func (v Vec2) Trunc() Coord         { return Coord{X: int(v.X), Y: int(v.Y)} }

// Coord is an integer grid coordinate.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func C(x, y int) Coord { return Coord{X: x, Y: y} }

func (c Coord) Add(o Coord) Coord { return Coord{X: c.X + o.X, Y: c.Y + o.Y} }
func (c Coord) Mul(f int) Coord   { return Coord{X: c.X * f, Y: c.Y * f} }

// Div divides both components, truncating like integer division.
func (c Coord) Div(f int) Coord { return Coord{X: c.X / f, Y: c.Y / f} }

func (c Coord) Vec() Vec2 { return Vec2{X: float64(c.X), Y: float64(c.Y)} }

// Center returns the center point of the unit cell at c.
func (c Coord) Center() Vec2 { return Vec2{X: float64(c.X) + 0.5, Y: float64(c.Y) + 0.5} }

func Manhattan(a, b Coord) int { return AbsInt(a.X-b.X) + AbsInt(a.Y-b.Y) }

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Lerp(a, b, t float64) float64 { return a + (b-a)*t }
