package robot

import (
	"math"

	"swarmsim/internal/sim/geom"
)

// Motion model shared by the finite tasks: once force stops, speed decays by
// e^(-1/DecayTicks) every tick.
const (
	DecayTicks = 3.81

	// RotationStopMargin is the extra rotation in degrees caused by one tick of
	// full rotational force.
	RotationStopMargin = 2.28
	rotationEpsilon    = 0.1

	// Force inside the stopping margin is scaled down a little more than linear
	// interpolation suggests so the robot settles short rather than past the target.
	marginForceScale = 0.85

	movementEpsilon = 0.01
)

// Pose is the robot's true position (world space) and heading (degrees).
type Pose struct {
	Position geom.Vec2
	Heading  float64
}

// Task is one outstanding motion intent. The set of tasks is closed: the
// implementations below are the only ones.
type Task interface {
	NextDirective(p Pose) Directive
	Completed() bool
	Name() string
	task()
}

// stopTicks is the number of ticks until a motion at rate settles below floor.
func stopTicks(rate, floor float64) int {
	if rate <= floor {
		return 0
	}
	return int(-DecayTicks * math.Log(floor/rate))
}

// coastDistance is how far a motion at rate still travels over ticks ticks
// without force.
func coastDistance(rate float64, ticks int) float64 {
	total := 0.0
	for i := 1; i <= ticks; i++ {
		total += rate * math.Exp(-float64(i)/DecayTicks)
	}
	return total
}

// marginForce scales force down when the predicted stopping point is within
// margin of the target and reports whether the task is done.
func marginForce(targetDelta, margin, epsilon float64) (float64, bool) {
	force := 1.0
	if targetDelta < margin {
		force = targetDelta / margin * marginForceScale
	}
	if targetDelta < epsilon {
		return 0, true
	}
	return force, false
}

// FiniteRotationTask turns the robot by a fixed number of degrees,
// counter-clockwise for positive values.
type FiniteRotationTask struct {
	degrees   float64
	force     float64
	started   bool
	last      float64
	rotated   float64
	prevTotal float64
	done      bool
}

func NewFiniteRotationTask(degrees, force float64) *FiniteRotationTask {
	return &FiniteRotationTask{degrees: degrees, force: math.Abs(force)}
}

func (t *FiniteRotationTask) NextDirective(p Pose) Directive {
	if t.done {
		return NoMovement
	}
	if !t.started {
		t.started = true
		t.last = p.Heading
	}
	t.rotated += math.Abs(geom.DeltaAngle(t.last, p.Heading))
	t.last = p.Heading

	rate := t.rotated - t.prevTotal
	t.prevTotal = t.rotated
	remaining := math.Abs(t.degrees) - t.rotated
	targetDelta := remaining - coastDistance(rate, stopTicks(rate, 0.01))

	f, done := marginForce(targetDelta, RotationStopMargin, rotationEpsilon)
	if done {
		t.done = true
		return NoMovement
	}
	f *= t.force
	if t.degrees < 0 {
		f = -f
	}
	return Directive{Left: -f, Right: f}
}

func (t *FiniteRotationTask) Completed() bool { return t.done }
func (t *FiniteRotationTask) Name() string    { return "finite-rotation" }
func (t *FiniteRotationTask) task()           {}

// Degrees is the requested rotation.
func (t *FiniteRotationTask) Degrees() float64 { return t.degrees }

// InfiniteRotationTask turns in place until stopped. Positive force turns
// clockwise.
type InfiniteRotationTask struct {
	Force float64
}

func (t *InfiniteRotationTask) NextDirective(Pose) Directive {
	return Directive{Left: t.Force, Right: -t.Force}
}
func (t *InfiniteRotationTask) Completed() bool { return false }
func (t *InfiniteRotationTask) Name() string    { return "infinite-rotation" }
func (t *InfiniteRotationTask) task()           {}

// MovementTask drives straight until stopped. Negative force reverses.
type MovementTask struct {
	Force float64
}

func (t *MovementTask) NextDirective(Pose) Directive {
	return Directive{Left: t.Force, Right: t.Force}
}
func (t *MovementTask) Completed() bool { return false }
func (t *MovementTask) Name() string    { return "movement" }
func (t *MovementTask) task()           {}

// FiniteMovementTask drives a fixed distance in world units.
type FiniteMovementTask struct {
	distance float64
	force    float64
	margin   float64
	start    geom.Vec2
	started  bool
	prev     float64
	done     bool
}

// NewFiniteMovementTask drives distance world units at force (negative to
// reverse). margin is the distance covered by one tick of full force.
func NewFiniteMovementTask(distance, force, margin float64) *FiniteMovementTask {
	return &FiniteMovementTask{distance: math.Abs(distance), force: force, margin: margin}
}

func (t *FiniteMovementTask) NextDirective(p Pose) Directive {
	if t.done {
		return NoMovement
	}
	if !t.started {
		t.started = true
		t.start = p.Position
	}
	traveled := p.Position.Dist(t.start)
	rate := traveled - t.prev
	t.prev = traveled
	remaining := t.distance - traveled
	targetDelta := remaining - coastDistance(rate, stopTicks(rate, movementEpsilon/100))

	f, done := marginForce(targetDelta, t.margin, movementEpsilon)
	if done {
		t.done = true
		return NoMovement
	}
	f *= t.force
	return Directive{Left: f, Right: f}
}

func (t *FiniteMovementTask) Completed() bool { return t.done }
func (t *FiniteMovementTask) Name() string    { return "finite-movement" }
func (t *FiniteMovementTask) task()           {}

// Distance is the requested travel distance.
func (t *FiniteMovementTask) Distance() float64 { return t.distance }

// InfiniteDifferentialMovementTask drives each wheel separately until stopped.
type InfiniteDifferentialMovementTask struct {
	LeftForce  float64
	RightForce float64
}

func (t *InfiniteDifferentialMovementTask) UpdateWheelForces(left, right float64) {
	t.LeftForce, t.RightForce = left, right
}

func (t *InfiniteDifferentialMovementTask) NextDirective(Pose) Directive {
	return Directive{Left: t.LeftForce, Right: t.RightForce}
}
func (t *InfiniteDifferentialMovementTask) Completed() bool { return false }
func (t *InfiniteDifferentialMovementTask) Name() string    { return "differential-movement" }
func (t *InfiniteDifferentialMovementTask) task()           {}
