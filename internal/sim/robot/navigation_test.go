package robot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/slam"
)

func corridor() []geom.Coord {
	return []geom.Coord{geom.C(1, 1), geom.C(2, 1), geom.C(3, 1), geom.C(4, 1)}
}

func TestMoveTo_DrivesTowardsNextTile(t *testing.T) {
	body := &fakeBody{pos: geom.V(1.5, 1.5)}
	_, ctrls := rig(t, room(6, 3), testConstraints(), body)
	c := ctrls[0]
	markOpen(c.SlamMap(), true, corridor()...)

	require.NoError(t, c.MoveTo(geom.C(3, 1)))
	task, ok := c.CurrentTask().(*FiniteMovementTask)
	require.True(t, ok)
	assert.InDelta(t, 1.0, task.Distance(), 1e-9)

	// Busy: nothing new is issued.
	require.NoError(t, c.MoveTo(geom.C(4, 1)))
	assert.Same(t, task, c.CurrentTask())
}

func TestMoveTo_TurnsFirst(t *testing.T) {
	body := &fakeBody{pos: geom.V(1.5, 1.5), heading: 90}
	_, ctrls := rig(t, room(6, 3), testConstraints(), body)
	c := ctrls[0]
	markOpen(c.SlamMap(), true, corridor()...)

	require.NoError(t, c.MoveTo(geom.C(3, 1)))
	task, ok := c.CurrentTask().(*FiniteRotationTask)
	require.True(t, ok)
	assert.InDelta(t, -90, task.Degrees(), 1e-9)
}

func TestMoveTo_ArrivesAlongPath(t *testing.T) {
	body := &fakeBody{pos: geom.V(1.5, 1.5), heading: 30}
	_, ctrls := rig(t, room(6, 3), testConstraints(), body)
	c := ctrls[0]
	markOpen(c.SlamMap(), true, corridor()...)

	target := geom.C(4, 1)
	for i := 0; i < 500 && !c.ReachedTile(target); i++ {
		c.UpdateLogic()
		require.NoError(t, c.MoveTo(target))
		body.step(c.UpdateMotorPhysics())
	}
	assert.True(t, c.ReachedTile(target))
}

func TestMoveTo_UncertainTerritory(t *testing.T) {
	body := &fakeBody{pos: geom.V(1.5, 1.5)}
	_, ctrls := rig(t, room(6, 3), testConstraints(), body)
	c := ctrls[0]
	// One open SLAM cell per tile: open optimistically, unseen pessimistically.
	markOpen(c.SlamMap(), false, corridor()...)

	err := c.MoveTo(geom.C(3, 1))
	assert.ErrorIs(t, err, slam.ErrNoPath)
	assert.Nil(t, c.CurrentTask())

	require.NoError(t, c.PathAndMoveTo(geom.C(3, 1)))
	assert.NotNil(t, c.CurrentTask())
}

func TestEstimates(t *testing.T) {
	body := &fakeBody{pos: geom.V(1.5, 1.5)}
	_, ctrls := rig(t, room(6, 3), testConstraints(), body)
	c := ctrls[0]
	markOpen(c.SlamMap(), true, corridor()...)

	dist, err := c.EstimateDistanceToTarget(geom.C(4, 1), false)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, dist, 1e-9)

	ticks, err := c.EstimateTimeToTarget(geom.C(4, 1), false)
	require.NoError(t, err)
	assert.Equal(t, 19, ticks)

	_, err = c.EstimateTimeToTarget(geom.C(4, 2), false)
	assert.ErrorIs(t, err, slam.ErrNoPath)
}
