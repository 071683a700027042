package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/comm"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/robot"
	"swarmsim/internal/sim/slam"
	"swarmsim/internal/sim/tilemap"
)

var forward = robot.Directive{Left: 1, Right: 1}

func corridor() *tilemap.SimulationMap[tilemap.Tile] {
	return tilemap.MustParse(
		"......",
		"...#..",
		"......",
	)
}

func TestStep_DrivesAlongHeading(t *testing.T) {
	b := NewBody(corridor(), geom.V(0.5, 0.5), 0, 0.6, 0.166)
	for i := 0; i < 10; i++ {
		ev := b.Step(forward)
		assert.Equal(t, Events{}, ev)
	}
	assert.Greater(t, b.Position().X, 0.5)
	assert.InDelta(t, 0.5, b.Position().Y, 1e-9)
	assert.Equal(t, 0.0, b.Heading())
	assert.True(t, b.IsMoving())

	for i := 0; i < 60; i++ {
		b.Step(robot.NoMovement)
	}
	assert.False(t, b.IsMoving())
}

func TestStep_ReachesTopSpeed(t *testing.T) {
	b := NewBody(tilemap.MustParse("........................................"), geom.V(0.5, 0.5), 0, 0.6, 0.166)
	for i := 0; i < 40; i++ {
		b.Step(forward)
	}
	linear, angular := b.Velocity()
	assert.InDelta(t, 0.166, linear, 0.001)
	assert.Zero(t, angular)
}

func TestStep_RotatesCounterClockwise(t *testing.T) {
	b := NewBody(corridor(), geom.V(0.5, 0.5), 350, 0.6, 0.166)
	b.Step(robot.Directive{Left: -1, Right: 1})
	assert.InDelta(t, 350+AngularGain, b.Heading(), 1e-9)

	for i := 0; i < 40; i++ {
		b.Step(robot.Directive{Left: -1, Right: 1})
	}
	_, angular := b.Velocity()
	assert.InDelta(t, robot.RotationStopMargin, angular, 0.01)
	assert.Less(t, b.Heading(), 350.0, "wrapped past 360")
}

func TestStep_CollisionEdges(t *testing.T) {
	b := NewBody(corridor(), geom.V(1.5, 1.5), 0, 0.6, 0.166)

	collided := 0
	for i := 0; i < 60; i++ {
		ev := b.Step(forward)
		if ev.Collided {
			collided++
		}
		assert.False(t, ev.Exited)
	}
	assert.Equal(t, 1, collided, "continuous pushing reports one collision")
	assert.True(t, b.Colliding())
	assert.Less(t, b.Position().X+0.3, 3.0)

	exited := false
	for i := 0; i < 20 && !exited; i++ {
		exited = b.Step(robot.Directive{Left: -1, Right: -1}).Exited
	}
	assert.True(t, exited)
	assert.False(t, b.Colliding())
}

func TestStep_MapEdgeBlocks(t *testing.T) {
	b := NewBody(corridor(), geom.V(0.5, 2.5), 90, 0.6, 0.166)
	var ev Events
	for i := 0; i < 20 && !ev.Collided; i++ {
		ev = b.Step(forward)
	}
	assert.True(t, ev.Collided)
	assert.LessOrEqual(t, b.Position().Y+0.3, 3.0)
}

func TestControllerClosedLoop_Rotate(t *testing.T) {
	m := corridor()
	c := params.DefaultRobotConstraints()
	c.SlamPositionInaccuracy = 0
	mgr := comm.NewManager(m, c, params.Simulation{}, nil)
	b := NewBody(m, geom.V(0.5, 0.5), 0, c.AgentRelativeSize, c.TilesPerTickAtFullSpeed)
	ctrl := robot.NewController(0, b, slam.NewMap(m.Geometry, 0, 1), mgr, c, nil)
	mgr.SetPeers([]comm.Peer{ctrl})

	require.NoError(t, ctrl.Rotate(90))
	for i := 0; i < 200; i++ {
		ctrl.UpdateLogic()
		b.Step(ctrl.UpdateMotorPhysics())
		if ctrl.Status() == robot.Idle && !b.IsMoving() {
			break
		}
	}
	assert.Equal(t, robot.Idle, ctrl.Status())
	assert.InDelta(t, 90, b.Heading(), 0.5)
}
