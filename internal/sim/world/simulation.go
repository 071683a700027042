// Package world owns a running scenario: the collision map, the robot
// registry and the fixed logic/physics tick order.
package world

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/logging"
	"swarmsim/internal/sim/algorithm"
	"swarmsim/internal/sim/comm"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/motion"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/robot"
	"swarmsim/internal/sim/slam"
	"swarmsim/internal/sim/tilemap"
	"swarmsim/internal/sim/tracker"
)

type Config struct {
	TickRateHz int
	Seed       uint64
	Algorithm  string

	// MaxTicks ends Run after that many ticks; 0 runs until stopped.
	MaxTicks int

	Constraints params.RobotConstraints
	Simulation  params.Simulation
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.Algorithm == "" {
		c.Algorithm = "random"
	}
}

// TickLogEntry is what a TickLogger receives after every tick.
type TickLogEntry struct {
	Tick          int              `json:"tick"`
	Robots        []robot.Snapshot `json:"robots"`
	NewlyExplored int              `json:"newly_explored"`
	Collisions    []int            `json:"collisions,omitempty"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// Snapshot is the read-only state published after each tick.
type Snapshot struct {
	Tick               int                           `json:"tick"`
	Robots             []robot.Snapshot              `json:"robots"`
	ExploredTriangles  int                           `json:"explored_triangles"`
	ExploredProportion float64                       `json:"explored_proportion"`
	Communication      tracker.CommunicationSnapshot `json:"communication"`
}

// entry is one slot of the robot registry. Slot index == robot id.
type entry struct {
	ctrl *robot.Controller
	body *motion.Body
	algo algorithm.Algorithm
}

type Simulation struct {
	cfg       Config
	log       logrus.FieldLogger
	collision *tilemap.SimulationMap[tilemap.Tile]
	newAlgo   algorithm.Factory

	comm          *comm.Manager
	exploration   *tracker.Exploration
	communication *tracker.Communication

	robots  []entry
	tracked []tracker.Robot

	tick       int
	published  atomic.Pointer[Snapshot]
	tickLogger TickLogger

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, collision *tilemap.SimulationMap[tilemap.Tile], log logrus.FieldLogger) (*Simulation, error) {
	cfg.applyDefaults()
	if log == nil {
		log = logging.Discard()
	}
	factory, err := algorithm.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:           cfg,
		log:           log.WithField("component", "world"),
		collision:     collision,
		newAlgo:       factory,
		comm:          comm.NewManager(collision, cfg.Constraints, cfg.Simulation, log),
		exploration:   tracker.NewExploration(collision, cfg.Constraints, cfg.Simulation, log),
		communication: tracker.NewCommunication(),
		stop:          make(chan struct{}),
	}
	s.comm.SetStatsObserver(s.communication)
	s.publish()
	return s, nil
}

// Spawn creates one robot per tile, ids in order. It can only be called once.
func (s *Simulation) Spawn(tiles []geom.Coord) error {
	if len(s.robots) > 0 {
		return fmt.Errorf("%w: robots already spawned", ErrSpawn)
	}
	for _, t := range tiles {
		if !s.collision.TileInBounds(t) || !tilemap.TileIsOpen(s.collision, t) {
			return fmt.Errorf("%w: tile %v is not open floor", ErrSpawn, t)
		}
	}

	c := s.cfg.Constraints
	robots := make([]entry, 0, len(tiles))
	peers := make([]comm.Peer, 0, len(tiles))
	for id, t := range tiles {
		seed := s.cfg.Seed + uint64(id) + 1
		body := motion.NewBody(s.collision, spawnPoint(s.collision.Geometry, t), 0, c.AgentRelativeSize, c.TilesPerTickAtFullSpeed)
		sm := slam.NewMap(s.collision.Geometry, c.SlamPositionInaccuracy, seed)
		ctrl := robot.NewController(id, body, sm, s.comm, c, s.log)
		ctrl.UpdateLogic()
		algo := s.newAlgo(seed)
		algo.SetController(ctrl)
		robots = append(robots, entry{ctrl: ctrl, body: body, algo: algo})
		peers = append(peers, ctrl)
		s.tracked = append(s.tracked, ctrl)
	}
	s.robots = robots
	s.comm.SetPeers(peers)
	s.publish()
	s.log.WithFields(logrus.Fields{"robots": len(tiles), "algorithm": s.cfg.Algorithm}).Info("robots spawned")
	return nil
}

func (s *Simulation) SetTickLogger(l TickLogger) { s.tickLogger = l }

// AddRecorder forwards communication snapshots to r.
func (s *Simulation) AddRecorder(r tracker.Recorder) { s.communication.AddRecorder(r) }

func (s *Simulation) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			tick := s.StepOnce()
			if s.cfg.MaxTicks > 0 && tick >= s.cfg.MaxTicks {
				s.log.WithField("tick", tick).Info("tick limit reached")
				return nil
			}
		}
	}
}

func (s *Simulation) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// StepOnce advances the simulation by a single tick using the same ordering
// as Run and returns the new tick number.
func (s *Simulation) StepOnce() int {
	newly := s.logicUpdate()
	collisions := s.physicsUpdate()
	s.tick = s.comm.Tick()

	snap := s.publish()
	if s.tickLogger != nil {
		err := s.tickLogger.WriteTick(TickLogEntry{
			Tick:          s.tick,
			Robots:        snap.Robots,
			NewlyExplored: newly,
			Collisions:    collisions,
		})
		if err != nil {
			s.log.WithError(err).WithField("tick", s.tick).Warn("tick log write failed")
		}
	}
	return s.tick
}

// logicUpdate runs communication, then sensing, then every robot's
// algorithm and controller in id order.
func (s *Simulation) logicUpdate() int {
	s.comm.LogicUpdate()
	newly := s.exploration.LogicUpdate(s.comm.Tick(), s.tracked)
	for _, r := range s.robots {
		if err := r.algo.UpdateLogic(); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"robot_id": r.ctrl.ID(), "tick": s.comm.Tick()}).Warn("algorithm update failed")
		}
		r.ctrl.UpdateLogic()
	}
	return len(newly)
}

func (s *Simulation) physicsUpdate() []int {
	var collisions []int
	for _, r := range s.robots {
		ev := r.body.Step(r.ctrl.UpdateMotorPhysics())
		if ev.Collided {
			r.ctrl.NotifyCollided()
			collisions = append(collisions, r.ctrl.ID())
		}
		if ev.Exited {
			r.ctrl.NotifyCollisionExit()
		}
	}
	s.comm.PhysicsUpdate()
	return collisions
}

func (s *Simulation) publish() *Snapshot {
	snap := &Snapshot{
		Tick:               s.tick,
		Robots:             make([]robot.Snapshot, 0, len(s.robots)),
		ExploredTriangles:  s.exploration.ExploredTriangles(),
		ExploredProportion: s.exploration.ExploredProportion(),
		Communication:      s.communication.Last(),
	}
	for _, r := range s.robots {
		snap.Robots = append(snap.Robots, r.ctrl.Snapshot())
	}
	s.published.Store(snap)
	return snap
}

// Snapshot returns the state as of the last completed tick. Safe to call
// from any goroutine.
func (s *Simulation) Snapshot() Snapshot { return *s.published.Load() }

// The accessors below read live state and belong to the goroutine driving
// the simulation (or to callers while it is stopped).

func (s *Simulation) Tick() int                                          { return s.tick }
func (s *Simulation) Config() Config                                     { return s.cfg }
func (s *Simulation) CollisionMap() *tilemap.SimulationMap[tilemap.Tile] { return s.collision }
func (s *Simulation) Communication() *comm.Manager                       { return s.comm }
func (s *Simulation) Exploration() *tracker.Exploration                  { return s.exploration }
func (s *Simulation) CommunicationStats() *tracker.Communication         { return s.communication }
func (s *Simulation) RobotCount() int                                    { return len(s.robots) }

func (s *Simulation) Controller(id int) (*robot.Controller, bool) {
	if id < 0 || id >= len(s.robots) {
		return nil, false
	}
	return s.robots[id].ctrl, true
}

func (s *Simulation) Body(id int) (*motion.Body, bool) {
	if id < 0 || id >= len(s.robots) {
		return nil, false
	}
	return s.robots[id].body, true
}

// SlamStatuses copies robot id's SLAM grid, row-major from the bottom row.
func (s *Simulation) SlamStatuses(id int) ([]slam.Status, error) {
	c, ok := s.Controller(id)
	if !ok {
		return nil, fmt.Errorf("slam statuses: unknown robot %d", id)
	}
	return c.SlamMap().Statuses(), nil
}

// CommunicationGroups lists the robot ids of every communication group.
func (s *Simulation) CommunicationGroups() [][]int {
	groups := s.comm.CommunicationGroups()
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.IDs())
	}
	return out
}

func (s *Simulation) Tags() []comm.Tag { return s.comm.Tags() }
