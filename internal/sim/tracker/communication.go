package tracker

import (
	"sort"

	"swarmsim/internal/sim/comm"
)

// CommunicationSnapshot summarizes connectivity at one tick.
type CommunicationSnapshot struct {
	Tick                     int     `json:"tick"`
	Interconnected           bool    `json:"interconnected"`
	BiggestClusterPercentage float64 `json:"biggest_cluster_percentage"`
	Groups                   [][]int `json:"groups"`
	Links                    int     `json:"links"`
}

// Recorder receives every snapshot the tracker takes.
type Recorder interface {
	RecordCommunication(s CommunicationSnapshot)
}

// Communication records interconnection and cluster size over time. It is
// the comm.StatsObserver of a simulation.
type Communication struct {
	interconnected map[int]bool
	biggest        map[int]float64
	last           CommunicationSnapshot
	recorders      []Recorder
}

func NewCommunication(recorders ...Recorder) *Communication {
	return &Communication{
		interconnected: map[int]bool{},
		biggest:        map[int]float64{},
		recorders:      recorders,
	}
}

func (c *Communication) AddRecorder(r Recorder) { c.recorders = append(c.recorders, r) }

func (c *Communication) CreateSnapshot(tick int, groups []comm.Group, adjacency map[comm.Pair]comm.Info) {
	if tick == 0 || groups == nil {
		return
	}
	s := CommunicationSnapshot{
		Tick:           tick,
		Interconnected: len(groups) == 1,
		Groups:         make([][]int, 0, len(groups)),
	}

	total, largest := 0, 0
	for _, g := range groups {
		total += g.Size()
		largest = max(largest, g.Size())
		s.Groups = append(s.Groups, g.IDs())
	}
	sort.SliceStable(s.Groups, func(i, j int) bool { return len(s.Groups[i]) > len(s.Groups[j]) })
	switch {
	case len(groups) == 1:
		s.BiggestClusterPercentage = 100
	case total > 0:
		s.BiggestClusterPercentage = float64(largest) / float64(total) * 100
	}
	for _, info := range adjacency {
		if info.TransmissionSuccessful {
			s.Links++
		}
	}

	c.interconnected[tick] = s.Interconnected
	c.biggest[tick] = s.BiggestClusterPercentage
	c.last = s
	for _, r := range c.recorders {
		r.RecordCommunication(s)
	}
}

// Interconnected reports whether all robots formed one group at tick.
func (c *Communication) Interconnected(tick int) (bool, bool) {
	v, ok := c.interconnected[tick]
	return v, ok
}

func (c *Communication) BiggestClusterPercentage(tick int) (float64, bool) {
	v, ok := c.biggest[tick]
	return v, ok
}

// Last is the most recent snapshot, zero before the first one.
func (c *Communication) Last() CommunicationSnapshot { return c.last }
