package geom

import "math"

const (
	Deg2Rad = math.Pi / 180
	Rad2Deg = 180 / math.Pi
)

// NormalizeDeg maps any angle into [0, 360).
func NormalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// DeltaAngle returns the shortest signed difference target-current in (-180, 180].
func DeltaAngle(current, target float64) float64 {
	d := math.Mod(target-current, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

// AngleOf returns the counter-clockwise angle of v relative to the x axis in [0, 360).
func AngleOf(v Vec2) float64 {
	return NormalizeDeg(math.Atan2(v.Y, v.X) * Rad2Deg)
}

// SignedAngle returns the signed counter-clockwise angle from a to b in (-180, 180].
func SignedAngle(from, to Vec2) float64 {
	return DeltaAngle(AngleOf(from), AngleOf(to))
}

// FromDegrees returns a vector of the given magnitude pointing at deg.
func FromDegrees(deg, magnitude float64) Vec2 {
	r := deg * Deg2Rad
	return Vec2{X: math.Cos(r) * magnitude, Y: math.Sin(r) * magnitude}
}

// Direction is a unit vector pointing at deg.
func Direction(deg float64) Vec2 { return FromDegrees(deg, 1) }
