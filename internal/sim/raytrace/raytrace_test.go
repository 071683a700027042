package raytrace

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

func isOpen(t tilemap.Tile) bool { return !t.IsWall() }

func TestPerturb(t *testing.T) {
	assert.Equal(t, 90.005, Perturb(90))
	assert.Equal(t, 0.005, Perturb(0))
	assert.InDelta(t, -44.995, Perturb(-45), 1e-9)
	assert.Equal(t, 30.0, Perturb(30))
	assert.Equal(t, 44.9, Perturb(44.9))
}

func TestTrace_VisitsInOrderWithoutRepeats(t *testing.T) {
	m := tilemap.MustParse("....", "....", "....", "....")
	origin := geom.V(0.3, 0.2)
	first, err := m.TriangleAt(origin)
	require.NoError(t, err)

	var seen []int
	err = Trace(m, origin, 37, 10, func(tri int, _ tilemap.Tile) bool {
		seen = append(seen, tri)
		return true
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, first, seen[0])

	uniq := map[int]bool{}
	lastDist := -1.0
	for _, tri := range seen {
		assert.False(t, uniq[tri], "triangle %d visited twice", tri)
		uniq[tri] = true
		// Each visited triangle's tile must not move backwards along the ray.
		d := m.TriangleCenter(tri).Sub(origin)
		proj := d.X*math.Cos(37*geom.Deg2Rad) + d.Y*math.Sin(37*geom.Deg2Rad)
		assert.Greater(t, proj, lastDist-1)
		lastDist = math.Max(lastDist, proj)
	}
}

func TestTrace_StopsWhenVisitorRefuses(t *testing.T) {
	m := tilemap.MustParse("....")
	n := 0
	err := Trace(m, geom.V(0.5, 0.5), 0, 100, func(int, tilemap.Tile) bool {
		n++
		return n < 3
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTrace_Errors(t *testing.T) {
	m := tilemap.MustParse("..")
	err := Trace(m, geom.V(5, 0.5), 0, 1, func(int, tilemap.Tile) bool { return true })
	assert.True(t, errors.Is(err, ErrOriginOutOfBounds))
	err = Trace(m, geom.V(0.5, 0.5), math.NaN(), 1, func(int, tilemap.Tile) bool { return true })
	assert.True(t, errors.Is(err, ErrDegenerateRay))
	err = Trace(m, geom.V(math.Inf(1), 0.5), 0, 1, func(int, tilemap.Tile) bool { return true })
	assert.True(t, errors.Is(err, ErrDegenerateRay))
}

func TestFindIntersection_VerticalWall(t *testing.T) {
	m := tilemap.MustParse("..#")
	hit, found, err := FindIntersection(m, geom.V(0.5, 0.5), 0, 10, isOpen)
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1.5, hit.Distance, 1e-6)
	assert.InDelta(t, 2.0, hit.Point.X, 1e-6)
	assert.InDelta(t, 0.5, hit.Point.Y, 1e-3)
	assert.Equal(t, 90.0, hit.EdgeAngle)

	_, found, err = FindIntersection(m, geom.V(0.5, 0.5), 0, 1, isOpen)
	require.NoError(t, err)
	assert.False(t, found, "wall is beyond range")

	_, found, err = FindIntersection(m, geom.V(0.5, 0.5), 180, 10, isOpen)
	require.NoError(t, err)
	assert.False(t, found, "ray leaves the map")
}

func TestFindIntersection_HorizontalWallWithScale(t *testing.T) {
	m, err := tilemap.Parse([]string{"#", "."}, 2, geom.V(10, 10))
	require.NoError(t, err)
	hit, found, err := FindIntersection(m, geom.V(11, 11), 90, 10, isOpen)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.0, hit.EdgeAngle)
	assert.InDelta(t, 1.0, hit.Distance, 1e-6)
	assert.InDelta(t, 12.0, hit.Point.Y, 1e-6)
}

func TestFindIntersection_Diagonal(t *testing.T) {
	// Only the upper-left triangle of the lower-left quadrant is solid.
	m, err := tilemap.New(1, 1, 1, geom.Vec2{}, func(tri int) tilemap.Tile {
		if tri == 1 {
			return tilemap.Tile{Type: tilemap.Wall}
		}
		return tilemap.Tile{Type: tilemap.Room}
	})
	require.NoError(t, err)
	hit, found, err := FindIntersection(m, geom.V(0.4, 0.05), 90, 5, isOpen)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 45.0, hit.EdgeAngle)
	assert.Equal(t, 1, hit.Triangle)
	assert.InDelta(t, 0.4, hit.Point.Y, 1e-3)
	assert.InDelta(t, 0.35, hit.Distance, 1e-3)
}

func TestFindIntersection_OriginInsideWall(t *testing.T) {
	m := tilemap.MustParse("#.")
	hit, found, err := FindIntersection(m, geom.V(0.5, 0.5), 0, 5, isOpen)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.0, hit.Distance)
	assert.Equal(t, geom.V(0.5, 0.5), hit.Point)
}
