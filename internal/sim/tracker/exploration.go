// Package tracker keeps simulation-wide statistics: how much of the map the
// robots have seen, and how well connected they are.
package tracker

import (
	"math"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/logging"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/raytrace"
	"swarmsim/internal/sim/slam"
	"swarmsim/internal/sim/tilemap"
)

// Robot is what the trackers need to know about a robot.
type Robot interface {
	ID() int
	Position() geom.Vec2
	SlamMap() *slam.Map
}

type explorationCell struct {
	explorable bool
	explored   bool
}

// Exploration fires lidar rays from every robot, writes what they see into
// the robot's SLAM map and counts the triangles seen by anyone.
type Exploration struct {
	cells       *tilemap.SimulationMap[explorationCell]
	constraints params.RobotConstraints
	rays        int
	log         logrus.FieldLogger

	total    int
	explored int
}

func NewExploration(collision *tilemap.SimulationMap[tilemap.Tile], constraints params.RobotConstraints, sim params.Simulation, log logrus.FieldLogger) *Exploration {
	if log == nil {
		log = logging.Discard()
	}
	total := 0
	cells := tilemap.FMap(collision, func(_ int, t tilemap.Tile) explorationCell {
		if !t.IsWall() {
			total++
		}
		return explorationCell{explorable: !t.IsWall()}
	})
	rays := sim.LidarRays
	if rays <= 0 {
		rays = params.DefaultSimulation().LidarRays
	}
	return &Exploration{
		cells:       cells,
		constraints: constraints,
		rays:        rays,
		log:         log.WithField("component", "exploration"),
		total:       total,
	}
}

// rayAngles spreads n rays around the circle, keeping integer angles off the
// 45 degree multiples that run along triangle edges.
func rayAngles(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		a := float64(i) * 360 / float64(n)
		if a == math.Trunc(a) && int(a)%45 == 0 {
			a++
		}
		out[i] = a
	}
	return out
}

// LogicUpdate scans around every robot when tick falls on the SLAM update
// interval and returns the triangles seen for the first time.
func (e *Exploration) LogicUpdate(tick int, robots []Robot) []int {
	interval := e.constraints.SlamUpdateIntervalInTicks
	if interval <= 0 || tick%interval != 0 {
		return nil
	}
	writeSlam := e.constraints.AutomaticallyUpdateSlam
	var newly []int
	for _, r := range robots {
		sm := r.SlamMap()
		for _, angle := range rayAngles(e.rays) {
			err := raytrace.Trace(e.cells, r.Position(), angle, e.constraints.SlamRayTraceRange, func(tri int, c explorationCell) bool {
				if c.explorable && !c.explored {
					c.explored = true
					e.cells.Set(tri, c)
					e.explored++
					newly = append(newly, tri)
				}
				if writeSlam {
					sm.SetExploredByTriangle(tri, c.explorable)
				}
				return c.explorable
			})
			if err != nil {
				e.log.WithError(err).WithFields(logrus.Fields{"robot_id": r.ID(), "angle": angle}).Debug("lidar ray skipped")
			}
		}
	}
	return newly
}

func (e *Exploration) ExploredTriangles() int   { return e.explored }
func (e *Exploration) ExplorableTriangles() int { return e.total }

// ExploredProportion is the share of explorable triangles seen so far.
func (e *Exploration) ExploredProportion() float64 {
	if e.total == 0 {
		return 0
	}
	return float64(e.explored) / float64(e.total)
}
