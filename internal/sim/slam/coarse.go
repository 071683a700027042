package slam

import (
	"fmt"

	"swarmsim/internal/sim/geom"
)

// CoarseMap is the collision-resolution view of a SLAM map: every coarse
// tile covers a 2x2 block of SLAM cells. It keeps a sparse set of per-tile
// annotations for whoever plans on it.
type CoarseMap struct {
	slam        *Map
	width       int
	height      int
	annotations map[geom.Coord]any
}

// RelativePosition is a distance in tiles and an angle in degrees relative to
// the robot heading (positive is counter-clockwise).
type RelativePosition struct {
	Distance      float64
	RelativeAngle float64
}

func newCoarseMap(m *Map) *CoarseMap {
	return &CoarseMap{
		slam:        m,
		width:       m.geo.Width(),
		height:      m.geo.Height(),
		annotations: map[geom.Coord]any{},
	}
}

func (c *CoarseMap) Width() int  { return c.width }
func (c *CoarseMap) Height() int { return c.height }

func (c *CoarseMap) InBounds(t geom.Coord) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < c.width && t.Y < c.height
}

func ToSlamCoord(t geom.Coord) geom.Coord { return t.Mul(2) }

func FromSlamCoord(s geom.Coord) geom.Coord {
	return geom.C(geom.FloorDiv(s.X, 2), geom.FloorDiv(s.Y, 2))
}

// block returns the four SLAM cells covered by coarse tile t.
func (c *CoarseMap) block(t geom.Coord) ([4]Status, error) {
	var out [4]Status
	if !c.InBounds(t) {
		return out, fmt.Errorf("coarse tile %v (%dx%d): %w", t, c.width, c.height, ErrOutOfBounds)
	}
	s := ToSlamCoord(t)
	for i, d := range [4]geom.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}} {
		st, err := c.slam.Status(s.Add(d))
		if err != nil {
			return out, err
		}
		out[i] = st
	}
	return out, nil
}

// Status aggregates the 2x2 block under t with the optimistic or pessimistic policy.
func (c *CoarseMap) Status(t geom.Coord, optimistic bool) (Status, error) {
	b, err := c.block(t)
	if err != nil {
		return Unseen, err
	}
	if optimistic {
		return AggregateOptimistic(b[:]...), nil
	}
	return AggregatePessimistic(b[:]...), nil
}

// IsSolid reports whether t is anything but known Open. Out of bounds is solid.
func (c *CoarseMap) IsSolid(t geom.Coord) bool {
	s, err := c.Status(t, false)
	return err != nil || s != Open
}

func (c *CoarseMap) IsOptimisticSolid(t geom.Coord) bool {
	s, err := c.Status(t, true)
	return err != nil || s != Open
}

// TileData returns the annotation stored at t, or nil.
func (c *CoarseMap) TileData(t geom.Coord) (any, error) {
	if !c.InBounds(t) {
		return nil, fmt.Errorf("coarse tile %v: %w", t, ErrOutOfBounds)
	}
	return c.annotations[t], nil
}

// SetTileData stores v at t, replacing any previous annotation. A nil v clears it.
func (c *CoarseMap) SetTileData(t geom.Coord, v any) error {
	if !c.InBounds(t) {
		return fmt.Errorf("coarse tile %v: %w", t, ErrOutOfBounds)
	}
	if v == nil {
		delete(c.annotations, t)
		return nil
	}
	c.annotations[t] = v
	return nil
}

// ApproximatePosition is the estimated robot position in local tile coordinates.
func (c *CoarseMap) ApproximatePosition() geom.Vec2 {
	return c.slam.geo.ToLocal(c.slam.position)
}

func (c *CoarseMap) Heading() float64 { return c.slam.heading }

// CurrentTile is the tile under the estimated position.
func (c *CoarseMap) CurrentTile() geom.Coord { return c.ApproximatePosition().Trunc() }

// TileCenterRelativePosition returns where the center of t lies relative to
// the estimated robot pose.
func (c *CoarseMap) TileCenterRelativePosition(t geom.Coord) RelativePosition {
	pos := c.ApproximatePosition()
	target := t.Center()
	return RelativePosition{
		Distance:      pos.Dist(target),
		RelativeAngle: geom.SignedAngle(geom.Direction(c.slam.heading), target.Sub(pos)),
	}
}

// GlobalNeighbour is the tile one step from the robot in a compass direction.
func (c *CoarseMap) GlobalNeighbour(d geom.Cardinal) geom.Coord {
	return c.ApproximatePosition().Add(d.Vector().Vec()).Trunc()
}

// RelativeNeighbour is the tile one step from the robot in a direction
// relative to its heading snapped to the nearest compass direction.
func (c *CoarseMap) RelativeNeighbour(rd geom.RelativeDirection) geom.Coord {
	return c.GlobalNeighbour(geom.CardinalFromDegrees(c.slam.heading).Relative(rd))
}
