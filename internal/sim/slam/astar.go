package slam

import (
	"container/heap"
	"fmt"
	"math"

	"swarmsim/internal/sim/geom"
)

type neighbour struct {
	d        geom.Coord
	cost     float64
	diagonal bool
}

var neighbourOffsets = [...]neighbour{
	{d: geom.Coord{X: 1, Y: 0}, cost: 1},
	{d: geom.Coord{X: 0, Y: 1}, cost: 1},
	{d: geom.Coord{X: -1, Y: 0}, cost: 1},
	{d: geom.Coord{X: 0, Y: -1}, cost: 1},
	{d: geom.Coord{X: 1, Y: 1}, cost: math.Sqrt2, diagonal: true},
	{d: geom.Coord{X: -1, Y: 1}, cost: math.Sqrt2, diagonal: true},
	{d: geom.Coord{X: -1, Y: -1}, cost: math.Sqrt2, diagonal: true},
	{d: geom.Coord{X: 1, Y: -1}, cost: math.Sqrt2, diagonal: true},
}

// PathResult is an ordered list of coarse tiles from the start tile
// (inclusive). Complete is false when Path only leads to the expanded tile
// closest to the target.
type PathResult struct {
	Path     []geom.Coord
	Complete bool
}

type pathNode struct {
	c      geom.Coord
	g      float64
	f      float64
	h      float64
	seq    int
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func heuristic(a, b geom.Coord) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func (c *CoarseMap) traversable(t geom.Coord, optimistic bool) bool {
	s, err := c.Status(t, optimistic)
	return err == nil && s == Open
}

// Path plans from the robot's current tile to target.
func (c *CoarseMap) Path(target geom.Coord, optimistic, acceptPartial bool) (PathResult, error) {
	return c.PathFrom(c.CurrentTile(), target, optimistic, acceptPartial)
}

// PathFrom runs 8-connected A* from start to target over tiles whose
// aggregated status is Open. The start tile is always traversable and
// diagonal steps may not cut a blocked corner. When the target cannot be
// reached the result wraps ErrNoPath, unless acceptPartial is set, in which
// case the path to the closest reachable tile is returned with Complete false.
func (c *CoarseMap) PathFrom(start, target geom.Coord, optimistic, acceptPartial bool) (PathResult, error) {
	if !c.InBounds(start) {
		return PathResult{}, fmt.Errorf("path start %v: %w", start, ErrOutOfBounds)
	}
	if !c.InBounds(target) {
		return PathResult{}, fmt.Errorf("path target %v: %w", target, ErrOutOfBounds)
	}
	passable := func(t geom.Coord) bool {
		return t == start || c.traversable(t, optimistic)
	}

	seq := 0
	open := &pathQueue{}
	heap.Init(open)
	startNode := &pathNode{c: start, h: heuristic(start, target)}
	startNode.f = startNode.h
	heap.Push(open, startNode)
	gScore := map[geom.Coord]float64{start: 0}
	closed := map[geom.Coord]struct{}{}
	best := startNode

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.c]; seen {
			continue
		}
		closed[current.c] = struct{}{}
		if current.h < best.h {
			best = current
		}
		if current.c == target {
			return PathResult{Path: reconstructPath(current), Complete: true}, nil
		}
		for _, nb := range neighbourOffsets {
			next := current.c.Add(nb.d)
			if !c.InBounds(next) || !passable(next) {
				continue
			}
			if nb.diagonal {
				if !passable(current.c.Add(geom.C(nb.d.X, 0))) || !passable(current.c.Add(geom.C(0, nb.d.Y))) {
					continue
				}
			}
			if _, seen := closed[next]; seen {
				continue
			}
			tentative := current.g + nb.cost
			if prev, ok := gScore[next]; ok && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			seq++
			h := heuristic(next, target)
			heap.Push(open, &pathNode{c: next, g: tentative, h: h, f: tentative + h, seq: seq, parent: current})
		}
	}

	if !acceptPartial {
		return PathResult{}, fmt.Errorf("path %v -> %v: %w", start, target, ErrNoPath)
	}
	return PathResult{Path: reconstructPath(best), Complete: false}, nil
}

func reconstructPath(end *pathNode) []geom.Coord {
	if end == nil {
		return nil
	}
	path := make([]geom.Coord, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.c)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathLength sums the step lengths of a tile path (1 straight, sqrt2 diagonal).
func PathLength(path []geom.Coord) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += heuristic(path[i-1], path[i])
	}
	return total
}

// EstimateDistance is the length in tiles of the planned route from the
// robot's estimated position to the center of target.
func (c *CoarseMap) EstimateDistance(target geom.Coord, optimistic bool) (float64, error) {
	res, err := c.Path(target, optimistic, false)
	if err != nil {
		return 0, err
	}
	pos := c.ApproximatePosition()
	if len(res.Path) == 1 {
		return pos.Dist(target.Center()), nil
	}
	return pos.Dist(res.Path[0].Center()) + PathLength(res.Path), nil
}
