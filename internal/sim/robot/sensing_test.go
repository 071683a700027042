package robot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/geom"
)

func TestSenseNearbyRobots_RelativeToHeading(t *testing.T) {
	a := &fakeBody{pos: geom.V(2.5, 2.5)}
	b := &fakeBody{pos: geom.V(2.5, 4.5), heading: 180}
	_, ctrls := rig(t, room(6, 7), testConstraints(), a, b)

	got := ctrls[0].SenseNearbyRobots()
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Item)
	assert.InDelta(t, 2.0, got[0].Distance, 1e-9)
	assert.InDelta(t, 90, got[0].RelativeAngle, 0.01)

	got = ctrls[1].SenseNearbyRobots()
	require.Len(t, got, 1)
	assert.InDelta(t, 90, got[0].RelativeAngle, 0.01)
}

func TestBroadcastThroughController(t *testing.T) {
	a := &fakeBody{pos: geom.V(1.5, 1.5)}
	b := &fakeBody{pos: geom.V(3.5, 1.5)}
	mgr, ctrls := rig(t, room(6, 3), testConstraints(), a, b)

	require.NoError(t, ctrls[0].Broadcast("ping"))
	assert.Empty(t, ctrls[1].ReceiveBroadcast())
	mgr.LogicUpdate()
	msgs := ctrls[1].ReceiveBroadcast()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Contents)
	assert.Empty(t, ctrls[0].ReceiveBroadcast())
}

func TestReadNearbyTags_Relative(t *testing.T) {
	a := &fakeBody{pos: geom.V(2.5, 2.5)}
	b := &fakeBody{pos: geom.V(2.5, 4.5)}
	_, ctrls := rig(t, room(6, 7), testConstraints(), a, b)

	_, err := ctrls[0].DepositTag("frontier")
	require.NoError(t, err)

	tags, err := ctrls[1].ReadNearbyTags()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "frontier", tags[0].Item.Content)
	assert.InDelta(t, 2.0, tags[0].Distance, 1e-9)
	assert.InDelta(t, -90, tags[0].RelativeAngle, 1e-9)
}

func TestDetectWall(t *testing.T) {
	body := &fakeBody{pos: geom.V(2.5, 2.5)}
	_, ctrls := rig(t, room(8, 5, 5), testConstraints(), body)
	c := ctrls[0]

	hit, ok, err := c.DetectWall(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.5, hit.Distance, 0.01)
	assert.InDelta(t, 90, hit.RelativeAngle, 0.01)

	body.heading = 90
	hit, ok, err = c.DetectWall(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, hit.RelativeAngle, 0.01)

	_, ok, err = c.DetectWall(180)
	require.NoError(t, err)
	assert.False(t, ok, "open space within range behind the robot")

	_, _, err = c.DetectWall(361)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = c.DetectWall(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSnapshotAndDebugInfo(t *testing.T) {
	body := &fakeBody{pos: geom.V(2.5, 1.5)}
	_, ctrls := rig(t, room(6, 3), testConstraints(), body)
	c := ctrls[0]

	require.NoError(t, c.StartMoving(false))
	c.UpdateMotorPhysics()
	s := c.Snapshot()
	assert.Equal(t, "moving", s.Status)
	assert.Equal(t, "movement", s.Task)
	assert.Equal(t, 1.0, s.Left)
	assert.Equal(t, geom.V(2.5, 1.5), s.ApproximatePosition)

	info := c.DebugInfo()
	assert.True(t, strings.HasPrefix(info, "id: 0\n"))
	assert.Contains(t, info, "Current task: movement")
	assert.Contains(t, info, "Coarse tile: {2 1}")
	assert.Contains(t, info, "Slam tile: {5 3}")
}
