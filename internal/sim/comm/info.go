package comm

import (
	"math"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/raytrace"
	"swarmsim/internal/sim/tilemap"
)

// Pair is an ordered (sender, receiver) robot id pair.
type Pair struct {
	From int
	To   int
}

// Info is the result of tracing a transmission between two robots.
type Info struct {
	Distance               float64
	Angle                  float64 // global degrees from sender to receiver
	WallCells              int
	RegularCells           int
	TransmissionSuccessful bool
	SignalStrength         float64
}

// unreachable stands in for a pair whose trace could not be computed.
var unreachable = Info{
	Distance:               math.MaxFloat64,
	Angle:                  90,
	WallCells:              1,
	RegularCells:           1,
	TransmissionSuccessful: false,
	SignalStrength:         -math.MaxInt32,
}

// DistanceThroughWalls is the share of the distance spent inside walls.
func (i Info) DistanceThroughWalls() float64 {
	total := i.WallCells + i.RegularCells
	if total == 0 {
		return 0
	}
	return float64(i.WallCells) / float64(total) * i.Distance
}

// nudgeDiagonal keeps rays off exact 45 degree diagonals.
func nudgeDiagonal(angle float64) float64 {
	mod := math.Mod(angle, 90)
	switch {
	case mod >= 45 && mod <= 45.05:
		return angle + raytrace.AnglePerturbation
	case mod >= 44.95 && mod < 45:
		return angle - raytrace.AnglePerturbation
	}
	return angle
}

// traceInfo ray traces from p1 to p2 tallying wall and regular triangles.
// Success is decided either by signal strength (material mode) or by the
// distance predicate, never both.
func (m *Manager) traceInfo(from, to int, p1, p2 geom.Vec2) Info {
	c := m.constraints
	distance := p1.Dist(p2)
	angle := nudgeDiagonal(geom.AngleOf(p2.Sub(p1)))

	walls, regular := 0, 0
	signal := c.TransmitPower
	err := raytrace.Trace(m.collision, p1, angle, distance, func(_ int, t tilemap.Tile) bool {
		if t.IsWall() {
			walls++
		} else {
			regular++
		}
		if c.MaterialCommunication {
			signal -= c.AttenuationOf(t.Type)
		}
		return true
	})
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"from":  from,
			"to":    to,
			"angle": angle,
		}).WithError(err).Warn("communication trace failed, using unreachable info")
		return unreachable
	}

	info := Info{
		Distance:       distance,
		Angle:          angle,
		WallCells:      walls,
		RegularCells:   regular,
		SignalStrength: signal,
	}
	if c.MaterialCommunication {
		info.TransmissionSuccessful = c.ReceiverSensitivity <= signal
	} else {
		info.TransmissionSuccessful = c.IsTransmissionSuccessful(distance, info.DistanceThroughWalls())
	}
	return info
}
