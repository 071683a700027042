// Package comm decides what robots can hear, sense and see of each other,
// delivers their broadcasts with one tick of latency, keeps the environment
// tags and shares SLAM maps inside communication groups.
package comm

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/logging"
	"swarmsim/internal/sim/geom"
	"swarmsim/internal/sim/params"
	"swarmsim/internal/sim/slam"
	"swarmsim/internal/sim/tilemap"
)

// Peer is the view of a robot the manager needs. Implemented by the
// simulation's robot registry.
type Peer interface {
	ID() int
	Position() geom.Vec2
	Heading() float64
	SlamMap() *slam.Map
}

// Message is a broadcast as seen by a receiver.
type Message struct {
	Contents any
	SenderID int
	Origin   geom.Vec2
}

// StatsObserver receives communication snapshots.
type StatsObserver interface {
	CreateSnapshot(tick int, groups []Group, adjacency map[Pair]Info)
}

type Manager struct {
	collision   *tilemap.SimulationMap[tilemap.Tile]
	constraints params.RobotConstraints
	sim         params.Simulation
	log         logrus.FieldLogger

	peers  []Peer
	byID   map[int]Peer
	tags   *TagMap
	tagSeq map[int]int

	queued   []Message
	readable []Message

	tick      int
	gen       uint64
	adjacency tickScoped[map[Pair]Info]
	groups    tickScoped[[]Group]

	stats StatsObserver
}

func NewManager(collision *tilemap.SimulationMap[tilemap.Tile], constraints params.RobotConstraints, sim params.Simulation, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		collision:   collision,
		constraints: constraints,
		sim:         sim,
		log:         log.WithField("component", "comm"),
		byID:        map[int]Peer{},
		tags:        NewTagMap(collision.Geometry),
		tagSeq:      map[int]int{},
	}
}

// SetPeers registers the robots, in id order.
func (m *Manager) SetPeers(peers []Peer) {
	m.peers = append([]Peer(nil), peers...)
	m.byID = make(map[int]Peer, len(peers))
	for _, p := range peers {
		m.byID[p.ID()] = p
	}
	m.invalidate()
}

func (m *Manager) SetStatsObserver(o StatsObserver) { m.stats = o }

func (m *Manager) Tick() int { return m.tick }

func (m *Manager) Constraints() params.RobotConstraints { return m.constraints }

func (m *Manager) invalidate() {
	m.gen++
	m.adjacency.invalidate()
	m.groups.invalidate()
}

// Broadcast queues a message; receivers can read it after the next LogicUpdate.
func (m *Manager) Broadcast(sender int, contents any) error {
	p, ok := m.byID[sender]
	if !ok {
		return fmt.Errorf("broadcast: unknown robot %d", sender)
	}
	m.queued = append(m.queued, Message{Contents: contents, SenderID: sender, Origin: p.Position()})
	return nil
}

// LogicUpdate publishes last tick's broadcasts, advances the tick and runs the
// periodic SLAM synchronization and statistics.
func (m *Manager) LogicUpdate() {
	m.readable = append(m.readable[:0], m.queued...)
	m.queued = m.queued[:0]
	m.tick++
	m.invalidate()

	if m.sim.PopulateAdjacencyEveryTick {
		m.Adjacency()
		m.CommunicationGroups()
	}

	c := m.constraints
	if c.AutomaticallyUpdateSlam && c.DistributeSlam &&
		c.SlamSynchronizeIntervalInTicks > 0 && m.tick%c.SlamSynchronizeIntervalInTicks == 0 {
		m.synchronizeSlam()
	}

	if m.stats != nil && m.sim.StatsEveryTicks > 0 && m.tick%m.sim.StatsEveryTicks == 0 {
		m.stats.CreateSnapshot(m.tick, m.CommunicationGroups(), m.Adjacency())
	}
}

// PhysicsUpdate drops every cached trace; robots have moved.
func (m *Manager) PhysicsUpdate() { m.invalidate() }

// ReadMessages returns the readable messages from other robots whose
// transmission to receiver succeeds.
func (m *Manager) ReadMessages(receiver int) []Message {
	adj := m.Adjacency()
	var out []Message
	for _, msg := range m.readable {
		if msg.SenderID == receiver {
			continue
		}
		if info, ok := adj[Pair{From: msg.SenderID, To: receiver}]; ok && info.TransmissionSuccessful {
			out = append(out, msg)
		}
	}
	return out
}

// Adjacency returns the communication info for every ordered pair of distinct
// robots, computed at most once per cache generation.
func (m *Manager) Adjacency() map[Pair]Info {
	return m.adjacency.get(m.gen, m.populateAdjacency)
}

// CommunicationInfo returns the cached info for one ordered pair.
func (m *Manager) CommunicationInfo(from, to int) (Info, bool) {
	info, ok := m.Adjacency()[Pair{From: from, To: to}]
	return info, ok
}

func (m *Manager) populateAdjacency() map[Pair]Info {
	adj := make(map[Pair]Info, len(m.peers)*len(m.peers))
	for _, a := range m.peers {
		for _, b := range m.peers {
			if a.ID() == b.ID() {
				continue
			}
			adj[Pair{From: a.ID(), To: b.ID()}] = m.traceInfo(a.ID(), b.ID(), a.Position(), b.Position())
		}
	}
	return adj
}

// CommunicationGroups partitions all robots into communication groups.
func (m *Manager) CommunicationGroups() []Group {
	return m.groups.get(m.gen, func() []Group {
		ids := make([]int, len(m.peers))
		for i, p := range m.peers {
			ids[i] = p.ID()
		}
		return buildGroups(ids, m.Adjacency())
	})
}

func (m *Manager) synchronizeSlam() {
	for _, g := range m.CommunicationGroups() {
		if g.Size() < 2 {
			continue
		}
		ids := g.IDs()
		maps := make([]*slam.Map, 0, len(ids))
		for _, id := range ids {
			maps = append(maps, m.byID[id].SlamMap())
		}
		if err := slam.Synchronize(maps); err != nil {
			m.log.WithError(err).WithField("group", ids).Warn("slam synchronization failed")
			continue
		}
		m.log.WithFields(logrus.Fields{"tick": m.tick, "group": ids}).Debug("slam maps synchronized")
	}
}

// DepositTag leaves a tag at the robot's current position.
func (m *Manager) DepositTag(robot int, content string) (Tag, error) {
	p, ok := m.byID[robot]
	if !ok {
		return Tag{}, fmt.Errorf("deposit tag: unknown robot %d", robot)
	}
	tag := Tag{OwnerID: robot, Seq: m.tagSeq[robot], Content: content, Position: p.Position()}
	if err := m.tags.Add(tag); err != nil {
		return Tag{}, err
	}
	m.tagSeq[robot]++
	return tag, nil
}

// ReadNearbyTags returns the tags within the tag read range of the robot.
func (m *Manager) ReadNearbyTags(robot int) ([]Tag, error) {
	p, ok := m.byID[robot]
	if !ok {
		return nil, fmt.Errorf("read tags: unknown robot %d", robot)
	}
	return m.tags.Near(p.Position(), m.constraints.EnvironmentTagReadRange)
}

// Tags returns every deposited tag.
func (m *Manager) Tags() []Tag { return m.tags.All() }
