package world

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/config"
	"swarmsim/internal/sim/geom"
)

// FromScenario builds the map, the simulation and the robots a scenario
// describes. Spawn failures leave no simulation behind.
func FromScenario(sc config.Scenario, log logrus.FieldLogger) (*Simulation, error) {
	collision, err := sc.BuildMap()
	if err != nil {
		return nil, err
	}

	var tiles []geom.Coord
	switch sc.Robots.Spawn {
	case config.SpawnPositions:
		positions := make([]geom.Coord, 0, len(sc.Robots.Positions))
		for _, p := range sc.Robots.Positions {
			positions = append(positions, geom.C(p[0], p[1]))
		}
		tiles, err = SpawnAtPositions(collision, sc.Robots.Count, positions)
	case config.SpawnTogether, "":
		tiles, err = SpawnTogether(collision, sc.Robots.Count, geom.C(sc.Robots.Start[0], sc.Robots.Start[1]))
	default:
		err = fmt.Errorf("%w: unknown strategy %q", ErrSpawn, sc.Robots.Spawn)
	}
	if err != nil {
		return nil, err
	}

	sim, err := New(Config{
		TickRateHz:  sc.TickRateHz,
		Seed:        sc.Seed,
		Algorithm:   sc.Algorithm,
		MaxTicks:    sc.MaxTicks,
		Constraints: sc.RobotConstraints(),
		Simulation:  sc.SimulationParams(),
	}, collision, log)
	if err != nil {
		return nil, err
	}
	if err := sim.Spawn(tiles); err != nil {
		return nil, err
	}
	return sim, nil
}
