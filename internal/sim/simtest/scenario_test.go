package simtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/slam"
)

const twoRooms = `
seed: 3
map:
  rows:
    - "###########"
    - "#...#.....#"
    - "#...#.....#"
    - "#...#.....#"
    - "###########"
robots:
  count: 2
  spawn: positions
  positions: [[2, 2], [7, 2]]
constraints:
  distribute_slam: true
  slam_synchronize_interval_in_ticks: 5
`

const sharedRoom = `
seed: 5
map:
  rows:
    - "#######"
    - "#.....#"
    - "#.....#"
    - "#.....#"
    - "#######"
robots:
  count: 2
`

func slamStatus(t *testing.T, h *Harness, id int, tile geom.Coord) slam.Status {
	t.Helper()
	s, err := h.Robot(id).SlamMap().Status(slam.ToSlamCoord(tile))
	require.NoError(t, err)
	return s
}

func TestSlamSynchronization_SharesTheOtherRoom(t *testing.T) {
	h := New(t, twoRooms)
	otherRoom := geom.C(7, 2)

	h.StepFor(4)
	assert.Equal(t, slam.Unseen, slamStatus(t, h, 0, otherRoom), "walls hide the other room")
	assert.Equal(t, slam.Open, slamStatus(t, h, 1, otherRoom))

	h.StepFor(1)
	assert.Equal(t, slam.Open, slamStatus(t, h, 0, otherRoom), "merged at the synchronization tick")
	assert.Equal(t, [][]int{{0, 1}}, h.Sim.CommunicationGroups())
}

func TestSlamSynchronization_BlockedByWalls(t *testing.T) {
	h := New(t, twoRooms+"  broadcast_blocked_by_walls: true\n")

	h.StepFor(10)
	assert.Equal(t, slam.Unseen, slamStatus(t, h, 0, geom.C(7, 2)))
	assert.Equal(t, [][]int{{0}, {1}}, h.Sim.CommunicationGroups())
}

func TestBroadcast_OneTickLatency(t *testing.T) {
	h := New(t, sharedRoom)
	h.Step()

	require.NoError(t, h.Robot(0).Broadcast("frontier at 4,2"))
	assert.Empty(t, h.Robot(1).ReceiveBroadcast(), "not before the next logic update")

	h.Step()
	msgs := h.Robot(1).ReceiveBroadcast()
	require.Len(t, msgs, 1)
	assert.Equal(t, "frontier at 4,2", msgs[0].Contents)
	assert.Equal(t, 0, msgs[0].SenderID)
	assert.Empty(t, h.Robot(0).ReceiveBroadcast(), "senders do not hear themselves")

	h.Step()
	assert.Empty(t, h.Robot(1).ReceiveBroadcast(), "messages live for one tick")
}

func TestTags_VisibleToNeighbours(t *testing.T) {
	h := New(t, sharedRoom)
	h.Step()

	tag, err := h.Robot(0).DepositTag("visited")
	require.NoError(t, err)
	assert.Equal(t, 0, tag.OwnerID)

	seen, err := h.Robot(1).ReadNearbyTags()
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "visited", seen[0].Item.Content)
	assert.Len(t, h.Sim.Tags(), 1)
}

func TestSenseNearbyRobots_SameRoom(t *testing.T) {
	h := New(t, sharedRoom)
	h.Step()

	sensed := h.Robot(0).SenseNearbyRobots()
	require.Len(t, sensed, 1)
	assert.Equal(t, 1, sensed[0].Item)
	assert.InDelta(t, 1.0, sensed[0].Distance, 0.5)
}

func TestExploration_ProgressIsMonotonic(t *testing.T) {
	h := New(t, sharedRoom+"algorithm: frontier\n")
	prev := 0.0
	for i := 0; i < 60; i++ {
		h.Step()
		p := h.Sim.Snapshot().ExploredProportion
		require.GreaterOrEqual(t, p, prev)
		prev = p
	}
	assert.Positive(t, prev)
	assert.Equal(t, 60, h.LastTick().Tick)
}
