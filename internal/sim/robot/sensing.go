package robot

import (
	"fmt"
	"math"
	"strings"

	"swarmsim/internal/sim/comm"
	"swarmsim/internal/sim/geom"
)

// RelativeObject is something the robot perceives, placed relative to its
// heading. Angles are signed, positive counter-clockwise.
type RelativeObject[T any] struct {
	Distance      float64
	RelativeAngle float64
	Item          T
}

// WallHit is a wall found by DetectWall. RelativeAngle is the angle between
// the wall and the robot heading in [0, 90].
type WallHit struct {
	Distance      float64
	RelativeAngle float64
}

func (c *Controller) relative(p geom.Vec2) (float64, float64) {
	pos := c.body.Position()
	return pos.Dist(p), geom.SignedAngle(geom.Direction(c.body.Heading()), p.Sub(pos))
}

func (c *Controller) Broadcast(contents any) error { return c.comm.Broadcast(c.id, contents) }

func (c *Controller) ReceiveBroadcast() []comm.Message { return c.comm.ReadMessages(c.id) }

func (c *Controller) DepositTag(content string) (comm.Tag, error) {
	return c.comm.DepositTag(c.id, content)
}

// ReadNearbyTags returns the tags within reading range.
func (c *Controller) ReadNearbyTags() ([]RelativeObject[comm.Tag], error) {
	tags, err := c.comm.ReadNearbyTags(c.id)
	if err != nil {
		return nil, err
	}
	out := make([]RelativeObject[comm.Tag], 0, len(tags))
	for _, t := range tags {
		d, a := c.relative(t.Position)
		out = append(out, RelativeObject[comm.Tag]{Distance: d, RelativeAngle: a, Item: t})
	}
	return out, nil
}

// SenseNearbyRobots returns the ids of the robots this one can sense.
func (c *Controller) SenseNearbyRobots() []RelativeObject[int] {
	sensed := c.comm.SenseNearbyRobots(c.id)
	out := make([]RelativeObject[int], 0, len(sensed))
	for _, s := range sensed {
		out = append(out, RelativeObject[int]{
			Distance:      s.Distance,
			RelativeAngle: geom.DeltaAngle(c.body.Heading(), s.Angle),
			Item:          s.ID,
		})
	}
	return out
}

// DetectWall looks for a wall along globalAngle within tag reading range.
func (c *Controller) DetectWall(globalAngle float64) (WallHit, bool, error) {
	if globalAngle < 0 || globalAngle > 360 || math.IsNaN(globalAngle) {
		return WallHit{}, false, fmt.Errorf("detect wall: angle %.2f outside [0, 360]: %w", globalAngle, ErrInvalidArgument)
	}
	hit, ok, err := c.comm.DetectWall(c.id, globalAngle)
	if err != nil || !ok {
		return WallHit{}, false, err
	}
	rel := math.Mod(math.Abs(hit.EdgeAngle-c.GlobalAngle()), 180)
	if rel > 90 {
		rel = 180 - rel
	}
	return WallHit{Distance: c.body.Position().Dist(hit.Point), RelativeAngle: rel}, true, nil
}

// Snapshot is a read-only view of a controller for observers.
type Snapshot struct {
	ID                  int       `json:"id"`
	Status              string    `json:"status"`
	Task                string    `json:"task,omitempty"`
	Position            geom.Vec2 `json:"position"`
	Heading             float64   `json:"heading"`
	ApproximatePosition geom.Vec2 `json:"approximate_position"`
	Colliding           bool      `json:"colliding"`
	Left                float64   `json:"left"`
	Right               float64   `json:"right"`
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		ID:                  c.id,
		Status:              c.Status().String(),
		Position:            c.body.Position(),
		Heading:             c.GlobalAngle(),
		ApproximatePosition: c.slam.ApproximatePosition(),
		Colliding:           c.colliding,
		Left:                c.last.Left,
		Right:               c.last.Right,
	}
	if c.task != nil {
		s.Task = c.task.Name()
	}
	return s
}

func (c *Controller) DebugInfo() string {
	var b strings.Builder
	task := "none"
	if c.task != nil {
		task = c.task.Name()
	}
	pos := c.body.Position()
	local := c.slam.Coarse().ApproximatePosition()
	fmt.Fprintf(&b, "id: %d\n", c.id)
	fmt.Fprintf(&b, "Current task: %s\n", task)
	fmt.Fprintf(&b, "World Position: %.1f, %.1f\n", pos.X, pos.Y)
	fmt.Fprintf(&b, "Slam tile: %v\n", local.Scale(2).Trunc())
	fmt.Fprintf(&b, "Coarse tile: %v\n", local.Trunc())
	fmt.Fprintf(&b, "Is colliding: %t", c.colliding)
	return b.String()
}
