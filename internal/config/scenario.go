// Package config loads scenario files: the map, the robots and every tunable
// the simulation reads at construction time.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"swarmsim/internal/sim/algorithm"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/tilemap"
)

var ErrInvalid = errors.New("invalid scenario")

const (
	SpawnTogether  = "together"
	SpawnPositions = "positions"
)

type Scenario struct {
	Seed       uint64 `yaml:"seed" json:"seed,omitempty"`
	TickRateHz int    `yaml:"tick_rate_hz" json:"tick_rate_hz,omitempty" jsonschema:"minimum=0"`
	MaxTicks   int    `yaml:"max_ticks" json:"max_ticks,omitempty" jsonschema:"minimum=0"`
	Algorithm  string `yaml:"algorithm" json:"algorithm,omitempty" jsonschema:"enum=random,enum=frontier"`

	Map         MapConfig         `yaml:"map" json:"map"`
	Robots      RobotsConfig      `yaml:"robots" json:"robots"`
	Simulation  SimulationConfig  `yaml:"simulation" json:"simulation,omitempty"`
	Constraints ConstraintsConfig `yaml:"constraints" json:"constraints,omitempty"`
}

type MapConfig struct {
	Scale  float64    `yaml:"scale" json:"scale,omitempty" jsonschema:"minimum=0"`
	Offset [2]float64 `yaml:"offset" json:"offset,omitempty"`

	// Rows are drawn top row first. See tilemap.TypeForRune for the legend.
	Rows []string `yaml:"rows" json:"rows" jsonschema:"minItems=1"`
}

type RobotsConfig struct {
	Count     int      `yaml:"count" json:"count" jsonschema:"minimum=1"`
	Spawn     string   `yaml:"spawn" json:"spawn,omitempty" jsonschema:"enum=together,enum=positions"`
	Start     [2]int   `yaml:"start" json:"start,omitempty"`
	Positions [][2]int `yaml:"positions" json:"positions,omitempty"`
}

type SimulationConfig struct {
	PopulateAdjacencyEveryTick bool `yaml:"populate_adjacency_every_tick" json:"populate_adjacency_every_tick,omitempty"`
	StatsEveryTicks            int  `yaml:"stats_every_ticks" json:"stats_every_ticks,omitempty" jsonschema:"minimum=0"`
	LidarRays                  int  `yaml:"lidar_rays" json:"lidar_rays,omitempty" jsonschema:"minimum=0"`
}

// ConstraintsConfig mirrors params.RobotConstraints. Switches whose default
// is on are pointers so an explicit false survives applyDefaults.
type ConstraintsConfig struct {
	BroadcastRange          float64 `yaml:"broadcast_range" json:"broadcast_range,omitempty" jsonschema:"minimum=0"`
	BroadcastBlockedByWalls bool    `yaml:"broadcast_blocked_by_walls" json:"broadcast_blocked_by_walls,omitempty"`

	SenseNearbyAgentsRange          float64 `yaml:"sense_nearby_agents_range" json:"sense_nearby_agents_range,omitempty" jsonschema:"minimum=0"`
	SenseNearbyAgentsBlockedByWalls *bool   `yaml:"sense_nearby_agents_blocked_by_walls" json:"sense_nearby_agents_blocked_by_walls,omitempty"`

	AutomaticallyUpdateSlam        *bool    `yaml:"automatically_update_slam" json:"automatically_update_slam,omitempty"`
	SlamUpdateIntervalInTicks      int      `yaml:"slam_update_interval_in_ticks" json:"slam_update_interval_in_ticks,omitempty" jsonschema:"minimum=0"`
	SlamSynchronizeIntervalInTicks int      `yaml:"slam_synchronize_interval_in_ticks" json:"slam_synchronize_interval_in_ticks,omitempty" jsonschema:"minimum=0"`
	SlamPositionInaccuracy         *float64 `yaml:"slam_position_inaccuracy" json:"slam_position_inaccuracy,omitempty" jsonschema:"minimum=0"`
	DistributeSlam                 bool     `yaml:"distribute_slam" json:"distribute_slam,omitempty"`
	SlamRayTraceRange              float64  `yaml:"slam_ray_trace_range" json:"slam_ray_trace_range,omitempty" jsonschema:"minimum=0"`

	EnvironmentTagReadRange float64 `yaml:"environment_tag_read_range" json:"environment_tag_read_range,omitempty" jsonschema:"minimum=0"`

	RelativeMoveSpeed       float64 `yaml:"relative_move_speed" json:"relative_move_speed,omitempty" jsonschema:"minimum=0,maximum=1"`
	AgentRelativeSize       float64 `yaml:"agent_relative_size" json:"agent_relative_size,omitempty" jsonschema:"minimum=0,maximum=1"`
	TilesPerTickAtFullSpeed float64 `yaml:"tiles_per_tick_at_full_speed" json:"tiles_per_tick_at_full_speed,omitempty" jsonschema:"minimum=0"`

	MaterialCommunication bool     `yaml:"material_communication" json:"material_communication,omitempty"`
	TransmitPower         *float64 `yaml:"transmit_power" json:"transmit_power,omitempty"`
	ReceiverSensitivity   *float64 `yaml:"receiver_sensitivity" json:"receiver_sensitivity,omitempty"`
	Frequency             int      `yaml:"frequency" json:"frequency,omitempty" jsonschema:"minimum=0"`

	// Attenuation is dB lost per triangle, keyed by frequency then tile type name.
	Attenuation map[string]map[string]float64 `yaml:"attenuation" json:"attenuation,omitempty"`
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func (s *Scenario) applyDefaults() {
	if s.TickRateHz <= 0 {
		s.TickRateHz = 10
	}
	if s.Algorithm == "" {
		s.Algorithm = "random"
	}
	if s.Map.Scale <= 0 {
		s.Map.Scale = 1
	}
	if s.Robots.Spawn == "" {
		s.Robots.Spawn = SpawnTogether
	}
	s.Simulation.applyDefaults()
	s.Constraints.applyDefaults()
}

func (c *SimulationConfig) applyDefaults() {
	def := params.DefaultSimulation()
	if c.StatsEveryTicks <= 0 {
		c.StatsEveryTicks = def.StatsEveryTicks
	}
	if c.LidarRays <= 0 {
		c.LidarRays = def.LidarRays
	}
}

func (c *ConstraintsConfig) applyDefaults() {
	def := params.DefaultRobotConstraints()
	if c.BroadcastRange <= 0 {
		c.BroadcastRange = def.BroadcastRange
	}
	if c.SenseNearbyAgentsRange <= 0 {
		c.SenseNearbyAgentsRange = def.SenseNearbyAgentsRange
	}
	if c.SenseNearbyAgentsBlockedByWalls == nil {
		c.SenseNearbyAgentsBlockedByWalls = boolPtr(def.SenseNearbyAgentsBlockedByWalls)
	}
	if c.AutomaticallyUpdateSlam == nil {
		c.AutomaticallyUpdateSlam = boolPtr(def.AutomaticallyUpdateSlam)
	}
	if c.SlamUpdateIntervalInTicks <= 0 {
		c.SlamUpdateIntervalInTicks = def.SlamUpdateIntervalInTicks
	}
	if c.SlamSynchronizeIntervalInTicks <= 0 {
		c.SlamSynchronizeIntervalInTicks = def.SlamSynchronizeIntervalInTicks
	}
	if c.SlamPositionInaccuracy == nil {
		c.SlamPositionInaccuracy = floatPtr(def.SlamPositionInaccuracy)
	}
	if c.SlamRayTraceRange <= 0 {
		c.SlamRayTraceRange = def.SlamRayTraceRange
	}
	if c.EnvironmentTagReadRange <= 0 {
		c.EnvironmentTagReadRange = def.EnvironmentTagReadRange
	}
	if c.RelativeMoveSpeed <= 0 {
		c.RelativeMoveSpeed = def.RelativeMoveSpeed
	}
	if c.AgentRelativeSize <= 0 {
		c.AgentRelativeSize = def.AgentRelativeSize
	}
	if c.TilesPerTickAtFullSpeed <= 0 {
		c.TilesPerTickAtFullSpeed = def.TilesPerTickAtFullSpeed
	}
	if c.TransmitPower == nil {
		c.TransmitPower = floatPtr(def.TransmitPower)
	}
	if c.ReceiverSensitivity == nil {
		c.ReceiverSensitivity = floatPtr(def.ReceiverSensitivity)
	}
	if c.Frequency <= 0 {
		c.Frequency = def.Frequency
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// Validate checks what the schema cannot: map shape, spawn layout and
// cross-field rules. Defaults must have been applied.
func (s *Scenario) Validate() error {
	if len(s.Map.Rows) == 0 {
		return invalid("map has no rows")
	}
	width := utf8.RuneCountInString(s.Map.Rows[0])
	for i, row := range s.Map.Rows {
		if n := utf8.RuneCountInString(row); n != width {
			return invalid("map row %d has %d tiles, want %d", i, n, width)
		}
		for j, r := range row {
			if _, ok := tilemap.TypeForRune(r); !ok {
				return invalid("map row %d col %d: unknown tile %q", i, j, r)
			}
		}
	}
	if width == 0 {
		return invalid("map rows are empty")
	}
	if s.Robots.Count <= 0 {
		return invalid("robots.count must be positive, got %d", s.Robots.Count)
	}
	switch s.Robots.Spawn {
	case SpawnTogether:
	case SpawnPositions:
		if len(s.Robots.Positions) != s.Robots.Count {
			return invalid("robots.positions has %d entries for %d robots", len(s.Robots.Positions), s.Robots.Count)
		}
		seen := map[[2]int]bool{}
		for _, p := range s.Robots.Positions {
			if seen[p] {
				return invalid("robots.positions lists %v twice", p)
			}
			seen[p] = true
		}
	default:
		return invalid("unknown spawn strategy %q", s.Robots.Spawn)
	}
	if _, err := algorithm.Lookup(s.Algorithm); err != nil {
		return invalid("%v", err)
	}

	c := s.Constraints
	if c.RelativeMoveSpeed > 1 {
		return invalid("relative_move_speed %.2f above 1", c.RelativeMoveSpeed)
	}
	if c.AgentRelativeSize > 1 {
		return invalid("agent_relative_size %.2f above 1", c.AgentRelativeSize)
	}
	if *c.SlamPositionInaccuracy < 0 {
		return invalid("slam_position_inaccuracy must not be negative")
	}
	for freq, table := range c.Attenuation {
		if _, err := strconv.Atoi(freq); err != nil {
			return invalid("attenuation frequency %q is not an integer", freq)
		}
		for name := range table {
			if _, err := tilemap.ParseTileType(name); err != nil {
				return invalid("attenuation[%s]: %v", freq, err)
			}
		}
	}
	return nil
}

// BuildMap parses the scenario map into a collision map.
func (s *Scenario) BuildMap() (*tilemap.SimulationMap[tilemap.Tile], error) {
	m, err := tilemap.Parse(s.Map.Rows, s.Map.Scale, geom.V(s.Map.Offset[0], s.Map.Offset[1]))
	if err != nil {
		return nil, fmt.Errorf("build map: %w", err)
	}
	return m, nil
}

// RobotConstraints converts the constraints section. The attenuation table
// starts from the stock one and the file overrides individual entries.
func (s *Scenario) RobotConstraints() params.RobotConstraints {
	c := s.Constraints
	out := params.DefaultRobotConstraints()
	out.BroadcastRange = c.BroadcastRange
	out.BroadcastBlockedByWalls = c.BroadcastBlockedByWalls
	out.SenseNearbyAgentsRange = c.SenseNearbyAgentsRange
	out.SenseNearbyAgentsBlockedByWalls = *c.SenseNearbyAgentsBlockedByWalls
	out.AutomaticallyUpdateSlam = *c.AutomaticallyUpdateSlam
	out.SlamUpdateIntervalInTicks = c.SlamUpdateIntervalInTicks
	out.SlamSynchronizeIntervalInTicks = c.SlamSynchronizeIntervalInTicks
	out.SlamPositionInaccuracy = *c.SlamPositionInaccuracy
	out.DistributeSlam = c.DistributeSlam
	out.SlamRayTraceRange = c.SlamRayTraceRange
	out.EnvironmentTagReadRange = c.EnvironmentTagReadRange
	out.RelativeMoveSpeed = c.RelativeMoveSpeed
	out.AgentRelativeSize = c.AgentRelativeSize
	out.TilesPerTickAtFullSpeed = c.TilesPerTickAtFullSpeed
	out.MaterialCommunication = c.MaterialCommunication
	out.TransmitPower = *c.TransmitPower
	out.ReceiverSensitivity = *c.ReceiverSensitivity
	out.Frequency = c.Frequency
	for freq, table := range c.Attenuation {
		f, err := strconv.Atoi(freq)
		if err != nil {
			continue
		}
		if out.Attenuation[f] == nil {
			out.Attenuation[f] = map[tilemap.TileType]float64{}
		}
		for name, db := range table {
			if t, err := tilemap.ParseTileType(name); err == nil {
				out.Attenuation[f][t] = db
			}
		}
	}
	return out
}

func (s *Scenario) SimulationParams() params.Simulation {
	return params.Simulation{
		PopulateAdjacencyEveryTick: s.Simulation.PopulateAdjacencyEveryTick,
		StatsEveryTicks:            s.Simulation.StatsEveryTicks,
		LidarRays:                  s.Simulation.LidarRays,
	}
}
