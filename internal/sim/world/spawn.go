package world

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zyedidia/generic/mapset"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/tilemap"
)

var ErrSpawn = errors.New("spawn failed")

var floodNeighbours = [4]geom.Coord{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 1}, {X: 1, Y: 0}}

// spawnCandidates lists open tiles that are not on the rim of an open area,
// so a robot never starts in a partly solid coarse tile. Order is x-major.
func spawnCandidates(collision *tilemap.SimulationMap[tilemap.Tile]) ([]geom.Coord, mapset.Set[geom.Coord]) {
	open := mapset.New[geom.Coord]()
	for x := 0; x < collision.Width(); x++ {
		for y := 0; y < collision.Height(); y++ {
			if c := geom.C(x, y); tilemap.TileIsOpen(collision, c) {
				open.Put(c)
			}
		}
	}

	var out []geom.Coord
	set := mapset.New[geom.Coord]()
	for x := 0; x < collision.Width(); x++ {
		for y := 0; y < collision.Height(); y++ {
			c := geom.C(x, y)
			if !open.Has(c) || isEdge(open, c) {
				continue
			}
			out = append(out, c)
			set.Put(c)
		}
	}
	return out, set
}

func isEdge(open mapset.Set[geom.Coord], c geom.Coord) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if !open.Has(c.Add(geom.C(dx, dy))) {
				return true
			}
		}
	}
	return false
}

// SpawnTogether picks n adjacent spawn tiles, flooding outwards from the
// candidate closest to start. When an area fills up the flood continues from
// the next closest unused candidate.
func SpawnTogether(collision *tilemap.SimulationMap[tilemap.Tile], n int, start geom.Coord) ([]geom.Coord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: robot count %d", ErrSpawn, n)
	}
	candidates, isCandidate := spawnCandidates(collision)
	if len(candidates) < n {
		return nil, fmt.Errorf("%w: %d robots but only %d spawn tiles", ErrSpawn, n, len(candidates))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return geom.Manhattan(candidates[i], start) < geom.Manhattan(candidates[j], start)
	})

	selected := make([]geom.Coord, 0, n)
	taken := mapset.New[geom.Coord]()
	queue := []geom.Coord{candidates[0]}
	taken.Put(candidates[0])
	next := 1
	for len(selected) < n {
		if len(queue) == 0 {
			for next < len(candidates) && taken.Has(candidates[next]) {
				next++
			}
			if next == len(candidates) {
				return nil, fmt.Errorf("%w: still need %d spawn tiles", ErrSpawn, n-len(selected))
			}
			queue = append(queue, candidates[next])
			taken.Put(candidates[next])
		}
		tile := queue[0]
		queue = queue[1:]
		selected = append(selected, tile)
		for _, d := range floodNeighbours {
			nb := tile.Add(d)
			if isCandidate.Has(nb) && !taken.Has(nb) {
				taken.Put(nb)
				queue = append(queue, nb)
			}
		}
	}
	return selected, nil
}

// SpawnAtPositions assigns each requested tile the closest unused spawn tile.
func SpawnAtPositions(collision *tilemap.SimulationMap[tilemap.Tile], n int, positions []geom.Coord) ([]geom.Coord, error) {
	if len(positions) != n {
		return nil, fmt.Errorf("%w: %d positions for %d robots", ErrSpawn, len(positions), n)
	}
	seen := mapset.New[geom.Coord]()
	for _, p := range positions {
		if seen.Has(p) {
			return nil, fmt.Errorf("%w: position %v requested twice", ErrSpawn, p)
		}
		seen.Put(p)
	}
	candidates, _ := spawnCandidates(collision)
	if len(candidates) < n {
		return nil, fmt.Errorf("%w: %d robots but only %d spawn tiles", ErrSpawn, n, len(candidates))
	}

	used := mapset.New[geom.Coord]()
	out := make([]geom.Coord, 0, n)
	for _, p := range positions {
		best, bestDist := geom.Coord{}, math.MaxFloat64
		for _, c := range candidates {
			if used.Has(c) {
				continue
			}
			if d := c.Vec().Dist(p.Vec()); d < bestDist {
				best, bestDist = c, d
			}
		}
		used.Put(best)
		out = append(out, best)
	}
	return out, nil
}

// spawnPoint is the world position of a robot spawned on tile. The small
// nudge keeps it off exact triangle edges.
func spawnPoint(g tilemap.Geometry, tile geom.Coord) geom.Vec2 {
	return g.ToWorld(tile.Center().Add(geom.V(0.01, 0.01)))
}
