package robot

import (
	"fmt"
	"math"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/slam"
)

// headingTolerance is how far off (degrees) the next path tile may lie
// before the robot turns towards it instead of driving.
const headingTolerance = 1.5

// MoveTo steers towards target along a path through known open tiles. It
// issues at most one task per call and only when the robot is idle, so
// algorithms call it every logic tick until ReachedTile reports true.
func (c *Controller) MoveTo(target geom.Coord) error {
	return c.followPath(target, false)
}

// PathAndMoveTo is MoveTo through tiles that might be open.
func (c *Controller) PathAndMoveTo(target geom.Coord) error {
	return c.followPath(target, true)
}

// ReachedTile reports whether the estimated position is on target.
func (c *Controller) ReachedTile(target geom.Coord) bool {
	return c.slam.Coarse().CurrentTile() == target
}

func (c *Controller) followPath(target geom.Coord, optimistic bool) error {
	if c.Status() != Idle {
		return nil
	}
	coarse := c.slam.Coarse()
	res, err := coarse.Path(target, optimistic, false)
	if err != nil {
		return fmt.Errorf("robot %d move to %v: %w", c.id, target, err)
	}
	if len(res.Path) < 2 {
		return nil
	}
	next := res.Path[1]
	rel := coarse.TileCenterRelativePosition(next)
	if math.Abs(rel.RelativeAngle) > headingTolerance {
		return c.Rotate(rel.RelativeAngle)
	}
	return c.Move(rel.Distance*c.scale(), false)
}

// EstimateDistanceToTarget is the planned route length to target in tiles.
func (c *Controller) EstimateDistanceToTarget(target geom.Coord, optimistic bool) (float64, error) {
	return c.slam.Coarse().EstimateDistance(target, optimistic)
}

// EstimateTimeToTarget is the number of ticks the route to target takes at
// the robot's cruising speed.
func (c *Controller) EstimateTimeToTarget(target geom.Coord, optimistic bool) (int, error) {
	dist, err := c.EstimateDistanceToTarget(target, optimistic)
	if err != nil {
		return 0, err
	}
	perTick := c.speed() * c.constraints.TilesPerTickAtFullSpeed
	if perTick <= 0 {
		return 0, fmt.Errorf("estimate time: robot cannot move: %w", slam.ErrNoPath)
	}
	return int(math.Ceil(dist / perTick)), nil
}
