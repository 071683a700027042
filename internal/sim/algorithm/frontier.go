package algorithm

import (
	"errors"
	"math"

	"github.com/zyedidia/generic/mapset"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/robot"
	"swarmsim/internal/sim/slam"
)

// FrontierClaim is broadcast when a robot picks a frontier tile so that
// robots in range pick different ones.
type FrontierClaim struct {
	Tile geom.Coord
}

// FrontierExplorer drives to the nearest frontier tile: a tile that is
// partly open but not fully seen. When no frontier is known it falls back
// to random exploration.
type FrontierExplorer struct {
	c        *robot.Controller
	fallback *RandomExplorer

	target    geom.Coord
	hasTarget bool

	claimed map[geom.Coord]int
	skipped mapset.Set[geom.Coord]
}

func NewFrontierExplorer(seed uint64) *FrontierExplorer {
	return &FrontierExplorer{
		fallback: NewRandomExplorer(seed),
		claimed:  map[geom.Coord]int{},
		skipped:  mapset.New[geom.Coord](),
	}
}

func (a *FrontierExplorer) SetController(c *robot.Controller) {
	a.c = c
	a.fallback.SetController(c)
}

// Target is the frontier tile currently pursued.
func (a *FrontierExplorer) Target() (geom.Coord, bool) { return a.target, a.hasTarget }

func (a *FrontierExplorer) UpdateLogic() error {
	for _, msg := range a.c.ReceiveBroadcast() {
		if claim, ok := msg.Contents.(FrontierClaim); ok {
			a.claimed[claim.Tile] = msg.SenderID
		}
	}
	if a.c.HasCollidedSinceLastLogicTick() && a.hasTarget {
		a.skipped.Put(a.target)
		a.hasTarget = false
	}
	if a.c.Status() != robot.Idle {
		return nil
	}

	if a.hasTarget && (a.c.ReachedTile(a.target) || !a.isFrontier(a.target)) {
		a.hasTarget = false
	}
	if !a.hasTarget {
		t, ok := a.nearestFrontier()
		if !ok {
			return a.fallback.UpdateLogic()
		}
		a.target, a.hasTarget = t, true
		if err := a.c.Broadcast(FrontierClaim{Tile: t}); err != nil {
			return err
		}
	}

	err := a.c.PathAndMoveTo(a.target)
	if errors.Is(err, slam.ErrNoPath) {
		a.skipped.Put(a.target)
		a.hasTarget = false
		return nil
	}
	return err
}

func (a *FrontierExplorer) isFrontier(t geom.Coord) bool {
	coarse := a.c.SlamMap().Coarse()
	pessimistic, err := coarse.Status(t, false)
	if err != nil || pessimistic != slam.Unseen {
		return false
	}
	optimistic, _ := coarse.Status(t, true)
	return optimistic == slam.Open
}

func (a *FrontierExplorer) nearestFrontier() (geom.Coord, bool) {
	coarse := a.c.SlamMap().Coarse()
	pos := coarse.ApproximatePosition()
	best, bestDist := geom.Coord{}, math.MaxFloat64
	for y := 0; y < coarse.Height(); y++ {
		for x := 0; x < coarse.Width(); x++ {
			t := geom.C(x, y)
			if a.skipped.Has(t) || !a.isFrontier(t) {
				continue
			}
			if owner, ok := a.claimed[t]; ok && owner != a.c.ID() {
				continue
			}
			if d := pos.Dist(t.Center()); d < bestDist {
				best, bestDist = t, d
			}
		}
	}
	return best, bestDist < math.MaxFloat64
}
