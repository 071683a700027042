// Package params holds the immutable settings threaded into the simulation
// components at construction time.
package params

import "swarmsim/internal/sim/tilemap"

// TransmissionFunc decides whether a message travelling distance world
// units, throughWalls of them inside walls, reaches its receiver.
type TransmissionFunc func(distance, throughWalls float64) bool

// RobotConstraints describes what every robot can sense, say and do.
type RobotConstraints struct {
	BroadcastRange          float64
	BroadcastBlockedByWalls bool

	SenseNearbyAgentsRange          float64
	SenseNearbyAgentsBlockedByWalls bool

	AutomaticallyUpdateSlam        bool
	SlamUpdateIntervalInTicks      int
	SlamSynchronizeIntervalInTicks int
	SlamPositionInaccuracy         float64
	DistributeSlam                 bool
	SlamRayTraceRange              float64

	EnvironmentTagReadRange float64

	RelativeMoveSpeed       float64
	AgentRelativeSize       float64
	TilesPerTickAtFullSpeed float64

	MaterialCommunication bool
	TransmitPower         float64
	ReceiverSensitivity   float64
	Frequency             int

	// Attenuation is dB lost per traversed triangle, by frequency then material.
	Attenuation map[int]map[tilemap.TileType]float64

	// Transmission overrides the default range/wall predicate when set.
	Transmission TransmissionFunc
}

// DefaultRobotConstraints mirrors the stock scenario settings.
func DefaultRobotConstraints() RobotConstraints {
	return RobotConstraints{
		BroadcastRange:                  15,
		BroadcastBlockedByWalls:         false,
		SenseNearbyAgentsRange:          5,
		SenseNearbyAgentsBlockedByWalls: true,
		AutomaticallyUpdateSlam:         true,
		SlamUpdateIntervalInTicks:       1,
		SlamSynchronizeIntervalInTicks:  10,
		SlamPositionInaccuracy:          0.2,
		DistributeSlam:                  false,
		SlamRayTraceRange:               7,
		EnvironmentTagReadRange:         4,
		RelativeMoveSpeed:               1,
		AgentRelativeSize:               0.6,
		TilesPerTickAtFullSpeed:         0.166,
		MaterialCommunication:           false,
		TransmitPower:                   -30,
		ReceiverSensitivity:             -86,
		Frequency:                       2400,
		Attenuation: map[int]map[tilemap.TileType]float64{
			2400: {
				tilemap.Room:     0,
				tilemap.Hall:     0,
				tilemap.Wall:     3,
				tilemap.Concrete: 4,
				tilemap.Wood:     1.5,
				tilemap.Brick:    3,
				tilemap.Metal:    10,
			},
		},
	}
}

// IsTransmissionSuccessful applies Transmission, or the default predicate:
// within broadcast range and, if walls block broadcasts, no wall crossed.
func (c RobotConstraints) IsTransmissionSuccessful(distance, throughWalls float64) bool {
	if c.Transmission != nil {
		return c.Transmission(distance, throughWalls)
	}
	if distance > c.BroadcastRange {
		return false
	}
	return !c.BroadcastBlockedByWalls || throughWalls == 0
}

// AttenuationOf returns the loss for one triangle of material t at the
// configured frequency. Unknown combinations lose nothing.
func (c RobotConstraints) AttenuationOf(t tilemap.TileType) float64 {
	return c.Attenuation[c.Frequency][t]
}

// Simulation holds the process-wide switches.
type Simulation struct {
	// PopulateAdjacencyEveryTick computes the full communication adjacency and
	// groups at every logic update instead of on first use.
	PopulateAdjacencyEveryTick bool

	// StatsEveryTicks is the cadence of communication snapshots; 0 disables them.
	StatsEveryTicks int
	LidarRays       int
}

func DefaultSimulation() Simulation {
	return Simulation{StatsEveryTicks: 10, LidarRays: 60}
}
