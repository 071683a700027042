package algorithm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/comm"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/motion"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/robot"
	"swarmsim/internal/sim/slam"
	"swarmsim/internal/sim/tilemap"
)

func rig(t *testing.T, m *tilemap.SimulationMap[tilemap.Tile], positions ...geom.Vec2) (*comm.Manager, []*robot.Controller) {
	t.Helper()
	c := params.DefaultRobotConstraints()
	c.SlamPositionInaccuracy = 0
	mgr := comm.NewManager(m, c, params.Simulation{}, nil)
	var ctrls []*robot.Controller
	var peers []comm.Peer
	for i, p := range positions {
		b := motion.NewBody(m, p, 0, c.AgentRelativeSize, c.TilesPerTickAtFullSpeed)
		ctrl := robot.NewController(i, b, slam.NewMap(m.Geometry, 0, uint64(i)), mgr, c, nil)
		ctrl.UpdateLogic()
		ctrls = append(ctrls, ctrl)
		peers = append(peers, ctrl)
	}
	mgr.SetPeers(peers)
	return mgr, ctrls
}

func markTile(t *testing.T, m *slam.Map, full bool, tiles ...geom.Coord) {
	t.Helper()
	for _, tc := range tiles {
		s := slam.ToSlamCoord(tc)
		require.NoError(t, m.SetStatus(s, slam.Open))
		if full {
			for _, d := range []geom.Coord{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}} {
				_ = m.SetStatus(s.Add(d), slam.Open)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"frontier", "random"}, Names())
	f, err := Lookup("random")
	require.NoError(t, err)
	assert.IsType(t, &RandomExplorer{}, f(1))
	_, err = Lookup("wander")
	assert.Error(t, err)
}

func TestRandomExplorer_RotateThenMove(t *testing.T) {
	_, ctrls := rig(t, tilemap.MustParse(".....", ".....", "....."), geom.V(2.5, 1.5))
	c := ctrls[0]
	a := NewRandomExplorer(7)
	a.SetController(c)

	require.NoError(t, a.UpdateLogic())
	rot, ok := c.CurrentTask().(*robot.FiniteRotationTask)
	require.True(t, ok)
	deg := math.Abs(rot.Degrees())
	assert.GreaterOrEqual(t, deg, 30.0)
	assert.LessOrEqual(t, deg, 180.0)

	require.NoError(t, a.UpdateLogic())
	assert.Same(t, rot, c.CurrentTask(), "busy controllers are left alone")

	c.StopCurrentTask()
	c.UpdateMotorPhysics()
	require.NoError(t, a.UpdateLogic())
	assert.IsType(t, &robot.MovementTask{}, c.CurrentTask())
}

func TestRandomExplorer_Deterministic(t *testing.T) {
	a, b := NewRandomExplorer(42), NewRandomExplorer(42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.randomTurn(), b.randomTurn())
	}
}

func TestRandomExplorer_TurnsAfterCollision(t *testing.T) {
	_, ctrls := rig(t, tilemap.MustParse(".....", ".....", "....."), geom.V(2.5, 1.5))
	c := ctrls[0]
	a := NewRandomExplorer(3)
	a.SetController(c)
	a.justRotated = true
	require.NoError(t, a.UpdateLogic())
	require.IsType(t, &robot.MovementTask{}, c.CurrentTask())

	c.UpdateMotorPhysics()
	c.NotifyCollided()
	c.UpdateMotorPhysics()
	require.NoError(t, a.UpdateLogic())
	assert.IsType(t, &robot.FiniteRotationTask{}, c.CurrentTask())
}

func TestFrontierExplorer_ClaimsSpreadRobots(t *testing.T) {
	m := tilemap.MustParse("........", "........")
	mgr, ctrls := rig(t, m, geom.V(1.5, 1.5), geom.V(1.5, 1.5))
	for _, c := range ctrls {
		markTile(t, c.SlamMap(), true, geom.C(1, 1), geom.C(2, 1), geom.C(1, 0), geom.C(2, 0))
		markTile(t, c.SlamMap(), false, geom.C(3, 1), geom.C(3, 0))
	}

	first := NewFrontierExplorer(1)
	first.SetController(ctrls[0])
	require.NoError(t, first.UpdateLogic())
	target, ok := first.Target()
	require.True(t, ok)
	assert.Equal(t, geom.C(3, 1), target)
	mv, ok := ctrls[0].CurrentTask().(*robot.FiniteMovementTask)
	require.True(t, ok)
	assert.InDelta(t, 1.0, mv.Distance(), 1e-9)

	mgr.LogicUpdate()

	second := NewFrontierExplorer(2)
	second.SetController(ctrls[1])
	require.NoError(t, second.UpdateLogic())
	target, ok = second.Target()
	require.True(t, ok)
	assert.Equal(t, geom.C(3, 0), target)
}

func TestFrontierExplorer_SkipsUnreachable(t *testing.T) {
	m := tilemap.MustParse("........", "........")
	_, ctrls := rig(t, m, geom.V(1.5, 1.5))
	c := ctrls[0]
	markTile(t, c.SlamMap(), true, geom.C(1, 1))
	markTile(t, c.SlamMap(), false, geom.C(5, 1))

	a := NewFrontierExplorer(1)
	a.SetController(c)
	require.NoError(t, a.UpdateLogic())
	_, ok := a.Target()
	assert.False(t, ok)
	assert.Nil(t, c.CurrentTask())
	assert.True(t, a.skipped.Has(geom.C(5, 1)))

	require.NoError(t, a.UpdateLogic())
	assert.IsType(t, &robot.FiniteRotationTask{}, c.CurrentTask(), "falls back to random exploration")
}
