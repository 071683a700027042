// Package motion is a small kinematic stand-in for a physics engine. It moves
// a round robot body according to wheel directives, with velocities that
// decay exponentially once force stops, and stops it at walls.
package motion

import (
	"math"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/robot"
	"swarmsim/internal/sim/tilemap"
)

var decay = math.Exp(-1 / robot.DecayTicks)

// Gains turn one tick of unit force into velocity. At full force the body
// settles at RotationStopMargin degrees per tick and tilesPerTick tiles per tick.
var (
	AngularGain = robot.RotationStopMargin * (1 - decay)
	linearGain  = 1 - decay
)

const (
	restLinear  = 0.001
	restAngular = 0.01
	probePoints = 12
)

// Events reports collision edges produced by one Step.
type Events struct {
	Collided bool
	Exited   bool
}

type Body struct {
	collision *tilemap.SimulationMap[tilemap.Tile]
	radius    float64
	maxSpeed  float64

	position geom.Vec2
	heading  float64
	linear   float64
	angular  float64

	colliding bool
}

// NewBody places a body of the given diameter (in tiles) at a world position.
// tilesPerTick is the top speed at full force.
func NewBody(collision *tilemap.SimulationMap[tilemap.Tile], position geom.Vec2, heading, diameter, tilesPerTick float64) *Body {
	scale := collision.Scale()
	return &Body{
		collision: collision,
		radius:    diameter / 2 * scale,
		maxSpeed:  tilesPerTick * scale,
		position:  position,
		heading:   geom.NormalizeDeg(heading),
	}
}

func (b *Body) Position() geom.Vec2 { return b.position }
func (b *Body) Heading() float64    { return b.heading }
func (b *Body) Colliding() bool     { return b.colliding }

// IsMoving reports whether the body has not yet come to rest.
func (b *Body) IsMoving() bool {
	return math.Abs(b.linear) > restLinear*b.collision.Scale() || math.Abs(b.angular) > restAngular
}

// Velocity returns the linear (world units per tick) and angular (degrees
// per tick, counter-clockwise) velocity.
func (b *Body) Velocity() (float64, float64) { return b.linear, b.angular }

// Step applies one tick of d and moves the body.
func (b *Body) Step(d robot.Directive) Events {
	b.angular = b.angular*decay + d.Angular()*AngularGain
	b.linear = b.linear*decay + d.Linear()*linearGain*b.maxSpeed
	b.heading = geom.NormalizeDeg(b.heading + b.angular)

	var ev Events
	next := b.position.Add(geom.FromDegrees(b.heading, b.linear))
	if b.blocked(next, b.radius) {
		b.linear = 0
		if !b.colliding {
			b.colliding = true
			ev.Collided = true
		}
		return ev
	}
	b.position = next
	// Contact ends once the body is a full-speed step clear of every obstacle.
	if b.colliding && !b.blocked(b.position, b.radius+b.maxSpeed) {
		b.colliding = false
		ev.Exited = true
	}
	return ev
}

// blocked reports whether a disc at center overlaps a wall or leaves the map.
func (b *Body) blocked(center geom.Vec2, radius float64) bool {
	if b.solidAt(center) {
		return true
	}
	for i := 0; i < probePoints; i++ {
		p := center.Add(geom.FromDegrees(float64(i)*360/probePoints, radius))
		if b.solidAt(p) {
			return true
		}
	}
	return false
}

func (b *Body) solidAt(world geom.Vec2) bool {
	tri, err := b.collision.TriangleAt(b.collision.ToLocal(world))
	if err != nil {
		return true
	}
	return b.collision.Get(tri).IsWall()
}
