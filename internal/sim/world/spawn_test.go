package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

func room() *tilemap.SimulationMap[tilemap.Tile] {
	return tilemap.MustParse(
		"#######",
		"#.....#",
		"#.....#",
		"#.....#",
		"#######",
	)
}

func TestSpawnCandidates_SkipRim(t *testing.T) {
	got, _ := spawnCandidates(room())
	assert.Equal(t, []geom.Coord{geom.C(2, 2), geom.C(3, 2), geom.C(4, 2)}, got)
}

func TestSpawnTogether_FloodsFromClosest(t *testing.T) {
	got, err := SpawnTogether(room(), 3, geom.C(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []geom.Coord{geom.C(2, 2), geom.C(3, 2), geom.C(4, 2)}, got)

	got, err = SpawnTogether(room(), 2, geom.C(6, 2))
	require.NoError(t, err)
	assert.Equal(t, []geom.Coord{geom.C(4, 2), geom.C(3, 2)}, got)
}

func TestSpawnTogether_ContinuesInNextArea(t *testing.T) {
	m := tilemap.MustParse(
		"###########",
		"#...#.....#",
		"#...#.....#",
		"#...#.....#",
		"###########",
	)
	got, err := SpawnTogether(m, 3, geom.C(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []geom.Coord{geom.C(2, 2), geom.C(6, 2), geom.C(7, 2)}, got)
}

func TestSpawnTogether_NotEnoughRoom(t *testing.T) {
	_, err := SpawnTogether(room(), 4, geom.C(0, 0))
	assert.ErrorIs(t, err, ErrSpawn)

	_, err = SpawnTogether(room(), 0, geom.C(0, 0))
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestSpawnAtPositions(t *testing.T) {
	got, err := SpawnAtPositions(room(), 2, []geom.Coord{geom.C(5, 3), geom.C(0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []geom.Coord{geom.C(4, 2), geom.C(2, 2)}, got)

	got, err = SpawnAtPositions(room(), 2, []geom.Coord{geom.C(4, 1), geom.C(4, 3)})
	require.NoError(t, err)
	assert.Equal(t, []geom.Coord{geom.C(4, 2), geom.C(3, 2)}, got, "a taken tile goes to the next closest")
}

func TestSpawnAtPositions_Errors(t *testing.T) {
	_, err := SpawnAtPositions(room(), 2, []geom.Coord{geom.C(2, 2)})
	assert.ErrorIs(t, err, ErrSpawn)

	_, err = SpawnAtPositions(room(), 2, []geom.Coord{geom.C(2, 2), geom.C(2, 2)})
	assert.ErrorIs(t, err, ErrSpawn)

	_, err = SpawnAtPositions(room(), 4, []geom.Coord{geom.C(1, 1), geom.C(2, 1), geom.C(3, 1), geom.C(4, 1)})
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestSpawnPoint(t *testing.T) {
	g, err := tilemap.NewGeometry(4, 4, 2, geom.V(-4, 0))
	require.NoError(t, err)
	p := spawnPoint(g, geom.C(1, 2))
	assert.InDelta(t, -4+2*1.51, p.X, 1e-9)
	assert.InDelta(t, 2*2.51, p.Y, 1e-9)
}
