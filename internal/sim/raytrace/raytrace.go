// Package raytrace walks straight lines across the triangle sub-grid of a
// tilemap.SimulationMap, visiting triangles in distance order.
package raytrace

import (
	"errors"
	"fmt"
	"math"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

var (
	ErrOriginOutOfBounds = errors.New("raytrace: origin out of bounds")
	ErrDegenerateRay     = errors.New("raytrace: degenerate ray")
)

// AnglePerturbation is added to rays that are (almost) exact multiples of 45
// degrees so they never run along a grid line or a triangle diagonal.
const AnglePerturbation = 0.005

const alignedTolerance = 1e-4

// Visitor is called once per traversed triangle. Returning false stops the trace.
type Visitor[T any] func(tri int, v T) bool

// Intersection is where a FindIntersection trace stopped.
type Intersection struct {
	Point    geom.Vec2 // world space
	Distance float64   // world units from the origin

	// EdgeAngle is the angle of the edge the ray crossed to enter the stopping
	// triangle: 0 horizontal, 90 vertical, 45 for '/' and 135 for '\'.
	EdgeAngle float64
	Triangle  int
}

// Perturb nudges grid-aligned angles.
func Perturb(angleDeg float64) float64 {
	r := math.Mod(math.Abs(angleDeg), 45)
	if r < alignedTolerance || 45-r < alignedTolerance {
		return angleDeg + AnglePerturbation
	}
	return angleDeg
}

// Trace visits every triangle along the ray from the world-space origin,
// starting with the triangle containing it, until visit returns false,
// maxDist (world units) is reached or the ray leaves the map.
func Trace[T any](m *tilemap.SimulationMap[T], origin geom.Vec2, angleDeg, maxDist float64, visit Visitor[T]) error {
	_, _, err := walk(m, origin, angleDeg, maxDist, visit)
	return err
}

// FindIntersection traces until shouldContinue rejects a triangle and reports
// where that triangle was entered. found is false when the ray ran out of
// range or left the map first.
func FindIntersection[T any](m *tilemap.SimulationMap[T], origin geom.Vec2, angleDeg, maxDist float64, shouldContinue func(v T) bool) (Intersection, bool, error) {
	var hit Intersection
	stopped, st, err := walk(m, origin, angleDeg, maxDist, func(_ int, v T) bool {
		return shouldContinue(v)
	})
	if err != nil || !stopped {
		return hit, false, err
	}
	local := st.entry.Scale(0.5)
	hit.Point = m.ToWorld(local)
	hit.Distance = st.t / 2 * m.Scale()
	hit.EdgeAngle = st.edge
	hit.Triangle = st.tri
	return hit, true, nil
}

type stop struct {
	tri   int
	t     float64   // grid units
	entry geom.Vec2 // grid space
	edge  float64
}

// walk runs Amanatides-Woo over the half-tile (quadrant) grid and splits
// every quadrant at its diagonal.
func walk[T any](m *tilemap.SimulationMap[T], origin geom.Vec2, angleDeg, maxDist float64, visit Visitor[T]) (bool, stop, error) {
	var st stop
	if !origin.IsFinite() || math.IsNaN(angleDeg) || math.IsInf(angleDeg, 0) || math.IsNaN(maxDist) || maxDist < 0 {
		return false, st, fmt.Errorf("origin %v angle %v range %v: %w", origin, angleDeg, maxDist, ErrDegenerateRay)
	}
	local := m.ToLocal(origin)
	if !m.InBounds(local) {
		return false, st, fmt.Errorf("origin %v: %w", origin, ErrOriginOutOfBounds)
	}
	angleDeg = Perturb(angleDeg)
	dir := geom.Direction(angleDeg)
	p0 := local.Scale(2)
	maxT := maxDist / m.Scale() * 2
	if math.IsInf(maxT, 1) {
		maxT = math.MaxFloat64
	}

	cols, rows := m.Width()*2, m.Height()*2
	cell := p0.Floor()
	// Guard against points sitting exactly on the upper boundary after scaling.
	if cell.X >= cols {
		cell.X = cols - 1
	}
	if cell.Y >= rows {
		cell.Y = rows - 1
	}

	stepX, tMaxX, tDeltaX := axis(p0.X, dir.X, cell.X)
	stepY, tMaxY, tDeltaY := axis(p0.Y, dir.Y, cell.Y)

	tEnter := 0.0
	edge := 0.0
	for {
		tExit := math.Min(math.Min(tMaxX, tMaxY), maxT)
		if tExit < tEnter {
			tExit = tEnter
		}
		cellOrigin := cell.Vec()
		uvAt := func(t float64) (float64, float64) {
			p := p0.Add(dir.Scale(t)).Sub(cellOrigin)
			return p.X, p.Y
		}
		ue, ve := uvAt(tEnter)
		ux, vx := uvAt(tExit)
		sEnter := tilemap.DiagonalSide(cell, ue, ve)
		sExit := tilemap.DiagonalSide(cell, ux, vx)

		type part struct {
			side int
			t    float64
			edge float64
		}
		var parts [2]part
		n := 0
		if (sEnter < 0 && sExit > 0) || (sEnter > 0 && sExit < 0) {
			tc := tEnter + (tExit-tEnter)*sEnter/(sEnter-sExit)
			diag := 135.0
			if tilemap.SlashDiagonal(cell) {
				diag = 45
			}
			parts[0] = part{tilemap.SideFromSign(cell, sEnter), tEnter, edge}
			parts[1] = part{tilemap.SideFromSign(cell, sExit), tc, diag}
			n = 2
		} else {
			um, vm := uvAt((tEnter + tExit) / 2)
			parts[0] = part{tilemap.TriangleSide(cell, um, vm), tEnter, edge}
			n = 1
		}
		for _, p := range parts[:n] {
			tri := m.TriangleIndex(geom.C(cell.X/2, cell.Y/2), cell.X%2, cell.Y%2, p.side)
			if !visit(tri, m.Get(tri)) {
				st = stop{tri: tri, t: p.t, entry: p0.Add(dir.Scale(p.t)), edge: p.edge}
				return true, st, nil
			}
		}

		if tExit >= maxT {
			return false, st, nil
		}
		if tMaxX < tMaxY {
			cell.X += stepX
			tEnter = tMaxX
			tMaxX += tDeltaX
			edge = 90
		} else {
			cell.Y += stepY
			tEnter = tMaxY
			tMaxY += tDeltaY
			edge = 0
		}
		if cell.X < 0 || cell.Y < 0 || cell.X >= cols || cell.Y >= rows {
			return false, st, nil
		}
	}
}

func axis(p, d float64, cell int) (step int, tMax, tDelta float64) {
	switch {
	case d > 1e-12:
		return 1, (float64(cell+1) - p) / d, 1 / d
	case d < -1e-12:
		return -1, (float64(cell) - p) / d, -1 / d
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}
