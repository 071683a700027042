package comm

import (
	"fmt"
	"math"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/raytrace"
	"swarmsim/internal/sim/tilemap"
)

// SensedRobot is another robot within sensing reach, at a global angle.
type SensedRobot struct {
	ID       int
	Distance float64
	Angle    float64
}

// SenseNearbyRobots lists the robots id can sense. A peer is skipped when it
// is out of sensing range (outside material mode), when walls block sensing
// and the line passes a wall, or when material mode is on and the signal is
// too weak.
func (m *Manager) SenseNearbyRobots(id int) []SensedRobot {
	adj := m.Adjacency()
	c := m.constraints
	var out []SensedRobot
	for _, p := range m.peers {
		if p.ID() == id {
			continue
		}
		info, ok := adj[Pair{From: id, To: p.ID()}]
		if !ok {
			continue
		}
		if (info.Distance > c.SenseNearbyAgentsRange && !c.MaterialCommunication) ||
			(info.WallCells > 0 && c.SenseNearbyAgentsBlockedByWalls) ||
			(!info.TransmissionSuccessful && c.MaterialCommunication) {
			continue
		}
		out = append(out, SensedRobot{ID: p.ID(), Distance: info.Distance, Angle: info.Angle})
	}
	return out
}

func isOpen(t tilemap.Tile) bool { return !t.IsWall() }

// DetectWall traces from the robot center and both side perimeters along
// globalAngle and returns the closest wall hit within the tag read range.
func (m *Manager) DetectWall(id int, globalAngle float64) (raytrace.Intersection, bool, error) {
	p, ok := m.byID[id]
	if !ok {
		return raytrace.Intersection{}, false, fmt.Errorf("detect wall: unknown robot %d", id)
	}
	rng := m.constraints.EnvironmentTagReadRange
	center := p.Position()
	half := m.constraints.AgentRelativeSize / 2
	origins := [3]geom.Vec2{
		center,
		center.Add(geom.FromDegrees(math.Mod(globalAngle+90, 360), half)),
		center.Add(geom.FromDegrees(math.Mod(globalAngle+270, 360), half)),
	}

	var best raytrace.Intersection
	bestDist := math.MaxFloat64
	found := false
	for i, o := range origins {
		hit, ok, err := raytrace.FindIntersection(m.collision, o, globalAngle, rng, isOpen)
		if err != nil {
			m.log.WithError(err).WithField("trace", i).Debug("wall trace skipped")
			continue
		}
		if !ok {
			continue
		}
		d := center.Dist(hit.Point)
		if d < bestDist {
			best, bestDist, found = hit, d, true
		}
	}
	return best, found, nil
}
