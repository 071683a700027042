package slam

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

func newTestMap(t *testing.T, w, h int) *Map {
	t.Helper()
	geo, err := tilemap.NewGeometry(w, h, 1, geom.Vec2{})
	require.NoError(t, err)
	return NewMap(geo, 0, 1)
}

func TestStatus_OutOfBounds(t *testing.T) {
	m := newTestMap(t, 3, 2)
	assert.Equal(t, 6, m.Width())
	assert.Equal(t, 4, m.Height())
	for _, c := range []geom.Coord{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 6, Y: 0}, {X: 0, Y: 4}} {
		_, err := m.Status(c)
		assert.True(t, errors.Is(err, ErrOutOfBounds), "cell %v", c)
	}
	for _, c := range []geom.Coord{{X: -1, Y: 0}, {X: 3, Y: 0}, {X: 0, Y: 2}} {
		_, err := m.Coarse().Status(c, true)
		assert.True(t, errors.Is(err, ErrOutOfBounds), "tile %v", c)
		_, err = m.Coarse().Status(c, false)
		assert.True(t, errors.Is(err, ErrOutOfBounds), "tile %v", c)
	}
	s, err := m.Status(geom.C(5, 3))
	require.NoError(t, err)
	assert.Equal(t, Unseen, s)
}

func TestSetExploredByTriangle(t *testing.T) {
	m := newTestMap(t, 2, 2)
	geo := m.Geometry()
	// Tile (1,0), upper-right quadrant, second triangle.
	tri := geo.TriangleIndex(geom.C(1, 0), 1, 1, 1)
	m.SetExploredByTriangle(tri, true)
	s, err := m.Status(geom.C(3, 1))
	require.NoError(t, err)
	assert.Equal(t, Open, s)

	m.SetExploredByTriangle(tri-1, false)
	s, _ = m.Status(geom.C(3, 1))
	assert.Equal(t, Solid, s)

	m.SetExploredByTriangle(tri, true)
	s, _ = m.Status(geom.C(3, 1))
	assert.Equal(t, Solid, s, "solid is never reverted")

	unseen, open, solid := m.Counts()
	assert.Equal(t, 15, unseen)
	assert.Equal(t, 0, open)
	assert.Equal(t, 1, solid)
}

func TestSetExploredByTriangle_IgnoresOutOfRange(t *testing.T) {
	m := newTestMap(t, 2, 2)
	for _, tri := range []int{-1, -7, -8, m.Geometry().TriangleCount()} {
		m.SetExploredByTriangle(tri, false)
	}
	unseen, open, solid := m.Counts()
	assert.Equal(t, 16, unseen)
	assert.Zero(t, open+solid)
}

func TestAggregation_SolidDominates(t *testing.T) {
	all := []Status{Unseen, Open, Solid}
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				for _, d := range all {
					block := []Status{a, b, c, d}
					hasSolid := a == Solid || b == Solid || c == Solid || d == Solid
					if hasSolid {
						assert.Equal(t, Solid, AggregateOptimistic(block...))
						assert.Equal(t, Solid, AggregatePessimistic(block...))
					}
				}
			}
		}
	}
	assert.Equal(t, Open, AggregateOptimistic(Open, Unseen, Unseen, Unseen))
	assert.Equal(t, Unseen, AggregatePessimistic(Open, Unseen, Open, Open))
	assert.Equal(t, Open, AggregatePessimistic(Open, Open, Open, Open))
	assert.Equal(t, Unseen, AggregateOptimistic(Unseen, Unseen, Unseen, Unseen))
}

func TestCoarseStatus(t *testing.T) {
	m := newTestMap(t, 2, 1)
	require.NoError(t, m.SetStatus(geom.C(0, 0), Open))
	c := m.Coarse()

	s, err := c.Status(geom.C(0, 0), true)
	require.NoError(t, err)
	assert.Equal(t, Open, s)
	s, err = c.Status(geom.C(0, 0), false)
	require.NoError(t, err)
	assert.Equal(t, Unseen, s)
	assert.True(t, c.IsSolid(geom.C(0, 0)))
	assert.False(t, c.IsOptimisticSolid(geom.C(0, 0)))

	require.NoError(t, m.SetStatus(geom.C(3, 1), Solid))
	s, _ = c.Status(geom.C(1, 0), true)
	assert.Equal(t, Solid, s)

	assert.Equal(t, geom.C(4, 2), ToSlamCoord(geom.C(2, 1)))
	assert.Equal(t, geom.C(2, 1), FromSlamCoord(geom.C(5, 3)))
	assert.Equal(t, geom.C(-1, 0), FromSlamCoord(geom.C(-1, 1)))
}

func TestMerge_Idempotence(t *testing.T) {
	a := newTestMap(t, 2, 2)
	require.NoError(t, a.SetStatus(geom.C(0, 0), Open))
	require.NoError(t, a.SetStatus(geom.C(1, 0), Solid))
	before := a.Statuses()

	require.NoError(t, Synchronize([]*Map{a}))
	assert.Equal(t, before, a.Statuses())

	require.NoError(t, Synchronize([]*Map{a, a}))
	assert.Equal(t, before, a.Statuses())

	empty := newTestMap(t, 2, 2)
	require.NoError(t, Synchronize([]*Map{empty, a}))
	assert.Equal(t, before, a.Statuses())
	assert.Equal(t, before, empty.Statuses())
}

func TestMerge_OrderIndependent(t *testing.T) {
	build := func() (*Map, *Map, *Map) {
		a, b, c := newTestMap(t, 2, 2), newTestMap(t, 2, 2), newTestMap(t, 2, 2)
		require.NoError(t, a.SetStatus(geom.C(0, 0), Open))
		require.NoError(t, b.SetStatus(geom.C(0, 0), Solid))
		require.NoError(t, b.SetStatus(geom.C(2, 2), Open))
		require.NoError(t, c.SetStatus(geom.C(3, 3), Solid))
		return a, b, c
	}
	a1, b1, c1 := build()
	require.NoError(t, Synchronize([]*Map{a1, b1, c1}))
	a2, b2, c2 := build()
	require.NoError(t, Synchronize([]*Map{c2, a2, b2}))

	assert.Equal(t, a1.Statuses(), a2.Statuses())
	assert.Equal(t, a1.Statuses(), b1.Statuses())
	assert.Equal(t, a1.Statuses(), c2.Statuses())
	s, _ := a1.Status(geom.C(0, 0))
	assert.Equal(t, Solid, s)
	s, _ = a1.Status(geom.C(2, 2))
	assert.Equal(t, Open, s)
}

func TestSynchronize_DimensionMismatch(t *testing.T) {
	err := Synchronize([]*Map{newTestMap(t, 2, 2), newTestMap(t, 3, 2)})
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestUpdatePosition_Inaccuracy(t *testing.T) {
	geo, err := tilemap.NewGeometry(10, 10, 1, geom.Vec2{})
	require.NoError(t, err)
	exact := NewMap(geo, 0, 7)
	exact.UpdatePosition(geom.V(3, 4), 370)
	assert.Equal(t, geom.V(3, 4), exact.ApproximatePosition())
	assert.InDelta(t, 10, exact.Heading(), 1e-9)

	noisy := NewMap(geo, 0.5, 7)
	again := NewMap(geo, 0.5, 7)
	for i := 0; i < 20; i++ {
		noisy.UpdatePosition(geom.V(3, 4), 0)
		again.UpdatePosition(geom.V(3, 4), 0)
		p := noisy.ApproximatePosition()
		assert.LessOrEqual(t, p.Sub(geom.V(3, 4)).X, 0.5)
		assert.GreaterOrEqual(t, p.Sub(geom.V(3, 4)).Y, -0.5)
		assert.Equal(t, p, again.ApproximatePosition(), "same seed gives the same noise")
	}
}

func TestTileData(t *testing.T) {
	c := newTestMap(t, 2, 2).Coarse()
	v, err := c.TileData(geom.C(1, 1))
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, c.SetTileData(geom.C(1, 1), "visited"))
	v, _ = c.TileData(geom.C(1, 1))
	assert.Equal(t, "visited", v)
	assert.True(t, errors.Is(c.SetTileData(geom.C(2, 0), 1), ErrOutOfBounds))
	_, err = c.TileData(geom.C(0, -1))
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestRelativeQueries(t *testing.T) {
	m := newTestMap(t, 5, 5)
	m.UpdatePosition(geom.V(2.5, 2.5), 90)
	c := m.Coarse()
	assert.Equal(t, geom.C(2, 2), c.CurrentTile())

	rp := c.TileCenterRelativePosition(geom.C(2, 4))
	assert.InDelta(t, 2, rp.Distance, 1e-9)
	assert.InDelta(t, 0, rp.RelativeAngle, 1e-9)
	rp = c.TileCenterRelativePosition(geom.C(0, 2))
	assert.InDelta(t, 90, rp.RelativeAngle, 1e-9)

	assert.Equal(t, geom.C(3, 2), c.GlobalNeighbour(geom.East))
	assert.Equal(t, geom.C(2, 3), c.RelativeNeighbour(geom.Front))
	assert.Equal(t, geom.C(1, 2), c.RelativeNeighbour(geom.Left))
	assert.Equal(t, geom.C(3, 3), c.RelativeNeighbour(geom.FrontRight))
}
