// Package robot turns high-level motion instructions into per-tick wheel
// directives and exposes what a single robot can sense and say.
package robot

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/logging"
	"swarmsim/internal/sim/comm"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/slam"
)

var (
	ErrNotIdle         = errors.New("robot is not idle")
	ErrInvalidArgument = errors.New("invalid argument")
)

// movementUpdatesBeforeRedeclaringCollision is how many physics ticks a robot
// may keep pushing into an obstacle before the collision is reported again.
const movementUpdatesBeforeRedeclaringCollision = 2

// Body is the physical robot the controller drives. Position is in world
// units, heading in degrees counter-clockwise from east.
type Body interface {
	Position() geom.Vec2
	Heading() float64
	IsMoving() bool
}

type Controller struct {
	id          int
	body        Body
	slam        *slam.Map
	comm        *comm.Manager
	constraints params.RobotConstraints
	log         logrus.FieldLogger

	status Status
	task   Task

	colliding    bool
	newCollision bool
	stallTicks   int

	last Directive
}

func NewController(id int, body Body, slamMap *slam.Map, manager *comm.Manager, constraints params.RobotConstraints, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{
		id:          id,
		body:        body,
		slam:        slamMap,
		comm:        manager,
		constraints: constraints,
		log:         log.WithFields(logrus.Fields{"component": "robot", "robot_id": id}),
	}
}

func (c *Controller) ID() int                  { return c.id }
func (c *Controller) SlamMap() *slam.Map       { return c.slam }
func (c *Controller) Position() geom.Vec2      { return c.body.Position() }
func (c *Controller) Heading() float64         { return c.body.Heading() }
func (c *Controller) GlobalAngle() float64     { return geom.NormalizeDeg(c.body.Heading()) }
func (c *Controller) CurrentTask() Task        { return c.task }
func (c *Controller) LastDirective() Directive { return c.last }

// Status reports Moving whenever a task is pending, even before the first
// physics tick has picked it up.
func (c *Controller) Status() Status {
	if c.status == Idle && c.task != nil {
		return Moving
	}
	return c.status
}

func (c *Controller) assertIdle(action string) error {
	if s := c.Status(); s != Idle {
		return fmt.Errorf("%s: status is %s: %w", action, s, ErrNotIdle)
	}
	return nil
}

func checkForceFactor(name string, f float64) error {
	if f < -1 || f > 1 || math.IsNaN(f) {
		return fmt.Errorf("%s %.3f outside [-1, 1]: %w", name, f, ErrInvalidArgument)
	}
	return nil
}

func (c *Controller) speed() float64 { return c.constraints.RelativeMoveSpeed }

func (c *Controller) scale() float64 { return c.slam.Geometry().Scale() }

// Move drives distance world units forward, or backwards when reverse is set.
func (c *Controller) Move(distance float64, reverse bool) error {
	if err := c.assertIdle(fmt.Sprintf("move %.2f", distance)); err != nil {
		return err
	}
	if distance < 0 || math.IsNaN(distance) {
		return fmt.Errorf("move distance %.2f: %w", distance, ErrInvalidArgument)
	}
	force := c.speed()
	if reverse {
		force = -force
	}
	margin := c.constraints.TilesPerTickAtFullSpeed * c.scale()
	c.task = NewFiniteMovementTask(distance, force, margin)
	return nil
}

// StartMoving drives until stopped.
func (c *Controller) StartMoving(reverse bool) error {
	if err := c.assertIdle("start moving"); err != nil {
		return err
	}
	force := c.speed()
	if reverse {
		force = -force
	}
	c.task = &MovementTask{Force: force}
	return nil
}

// Rotate turns by degrees, counter-clockwise when positive.
func (c *Controller) Rotate(degrees float64) error {
	if err := c.assertIdle(fmt.Sprintf("rotate %.1f", degrees)); err != nil {
		return err
	}
	if math.IsNaN(degrees) {
		return fmt.Errorf("rotate: %w", ErrInvalidArgument)
	}
	c.task = NewFiniteRotationTask(degrees, c.speed())
	return nil
}

// StartRotating turns in place until stopped.
func (c *Controller) StartRotating(counterClockwise bool) error {
	if err := c.assertIdle("start rotating"); err != nil {
		return err
	}
	force := c.speed()
	if counterClockwise {
		force = -force
	}
	c.task = &InfiniteRotationTask{Force: force}
	return nil
}

// RotateAtRate starts an infinite rotation, or retunes the running one.
// Positive factors turn clockwise.
func (c *Controller) RotateAtRate(factor float64) error {
	if err := checkForceFactor("rotation factor", factor); err != nil {
		return err
	}
	if t, ok := c.task.(*InfiniteRotationTask); ok {
		t.Force = c.speed() * factor
		return nil
	}
	if err := c.assertIdle("rotate at rate"); err != nil {
		return err
	}
	c.task = &InfiniteRotationTask{Force: c.speed() * factor}
	return nil
}

// MoveAtRate starts an infinite movement, or retunes the running one.
func (c *Controller) MoveAtRate(factor float64) error {
	if err := checkForceFactor("movement factor", factor); err != nil {
		return err
	}
	if t, ok := c.task.(*MovementTask); ok {
		t.Force = c.speed() * factor
		return nil
	}
	if err := c.assertIdle("move at rate"); err != nil {
		return err
	}
	c.task = &MovementTask{Force: c.speed() * factor}
	return nil
}

// SetWheelForceFactors drives each wheel separately.
func (c *Controller) SetWheelForceFactors(left, right float64) error {
	if err := checkForceFactor("left wheel factor", left); err != nil {
		return err
	}
	if err := checkForceFactor("right wheel factor", right); err != nil {
		return err
	}
	left *= c.speed()
	right *= c.speed()
	if t, ok := c.task.(*InfiniteDifferentialMovementTask); ok {
		t.UpdateWheelForces(left, right)
		return nil
	}
	if err := c.assertIdle("differential movement"); err != nil {
		return err
	}
	c.task = &InfiniteDifferentialMovementTask{LeftForce: left, RightForce: right}
	return nil
}

// StartRotatingAroundPoint circles the given coarse tile, keeping the wheel
// ratio that matches the current distance to it.
func (c *Controller) StartRotatingAroundPoint(point geom.Coord, counterClockwise bool) error {
	radius := c.slam.Coarse().ApproximatePosition().Dist(point.Center())
	half := c.constraints.AgentRelativeSize / 2
	if radius <= half {
		return fmt.Errorf("rotate around %v: radius %.2f inside robot: %w", point, radius, ErrInvalidArgument)
	}
	ratio := (radius - half) / (radius + half)
	if counterClockwise {
		return c.SetWheelForceFactors(ratio, 1)
	}
	return c.SetWheelForceFactors(1, ratio)
}

// StopCurrentTask drops the active task. The body may still be coasting.
func (c *Controller) StopCurrentTask() { c.task = nil }

// NotifyCollided is called by the motion layer when the body hits something.
func (c *Controller) NotifyCollided() {
	c.newCollision = true
	c.colliding = true
	c.StopCurrentTask()
}

func (c *Controller) NotifyCollisionExit() { c.colliding = false }

func (c *Controller) HasCollidedSinceLastLogicTick() bool { return c.newCollision }
func (c *Controller) IsCurrentlyColliding() bool          { return c.colliding }

func (c *Controller) IsRotating() bool {
	switch c.task.(type) {
	case *FiniteRotationTask, *InfiniteRotationTask:
		return true
	}
	return false
}

func (c *Controller) IsRotatingIndefinitely() bool {
	_, ok := c.task.(*InfiniteRotationTask)
	return ok
}

func (c *Controller) IsPerformingDifferentialDriveTask() bool {
	_, ok := c.task.(*InfiniteDifferentialMovementTask)
	return ok
}

// UpdateLogic runs once per logic tick before the robot's algorithm.
func (c *Controller) UpdateLogic() {
	c.newCollision = false
	if c.constraints.AutomaticallyUpdateSlam {
		c.slam.UpdatePosition(c.body.Position(), c.body.Heading())
	}
}

func (c *Controller) isMovementTask() bool {
	switch c.task.(type) {
	case *MovementTask, *FiniteMovementTask:
		return true
	}
	return false
}

// UpdateMotorPhysics advances the state machine by one physics tick and
// returns the wheel directive for the motion layer.
func (c *Controller) UpdateMotorPhysics() Directive {
	switch {
	case c.task != nil:
		c.status = Moving
	case c.body.IsMoving():
		c.status = Stopping
	default:
		c.status = Idle
	}

	if c.colliding && c.isMovementTask() {
		if c.stallTicks > movementUpdatesBeforeRedeclaringCollision {
			c.log.WithField("ticks", c.stallTicks).Debug("still pushing into obstacle, collision re-declared")
			c.NotifyCollided()
		}
		c.stallTicks++
	} else {
		c.stallTicks = 0
	}

	d := NoMovement
	if c.task != nil {
		d = c.task.NextDirective(Pose{Position: c.body.Position(), Heading: c.body.Heading()})
		if c.task.Completed() {
			c.task = nil
		}
	}
	c.last = d
	return d
}
