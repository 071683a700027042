// Package simtest drives a world.Simulation through its exported API only,
// so scenario tests can live outside the world package.
package simtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swarmsim/internal/config"
	"swarmsim/internal/sim/robot"
	"swarmsim/internal/sim/world"
)

// Harness wraps a simulation built from a YAML scenario and keeps every
// tick log entry in memory.
type Harness struct {
	T   *testing.T
	Sim *world.Simulation

	Ticks []world.TickLogEntry
}

func New(t *testing.T, scenario string) *Harness {
	t.Helper()
	sc, err := config.Parse([]byte(scenario))
	require.NoError(t, err, "scenario")
	sim, err := world.FromScenario(sc, nil)
	require.NoError(t, err, "world.FromScenario")
	return NewWithSimulation(t, sim)
}

// NewWithSimulation is like New, but uses an already-constructed simulation.
func NewWithSimulation(t *testing.T, sim *world.Simulation) *Harness {
	t.Helper()
	require.NotNil(t, sim)
	h := &Harness{T: t, Sim: sim}
	sim.SetTickLogger(h)
	return h
}

func (h *Harness) WriteTick(e world.TickLogEntry) error {
	h.Ticks = append(h.Ticks, e)
	return nil
}

func (h *Harness) Step() int { return h.Sim.StepOnce() }

func (h *Harness) StepFor(n int) int {
	tick := h.Sim.Tick()
	for i := 0; i < n; i++ {
		tick = h.Sim.StepOnce()
	}
	return tick
}

// StepUntil steps until cond holds, at most max ticks, and reports whether
// it did.
func (h *Harness) StepUntil(max int, cond func() bool) bool {
	for i := 0; i < max; i++ {
		if cond() {
			return true
		}
		h.Sim.StepOnce()
	}
	return cond()
}

func (h *Harness) Robot(id int) *robot.Controller {
	h.T.Helper()
	c, ok := h.Sim.Controller(id)
	require.True(h.T, ok, "unknown robot %d", id)
	return c
}

// LastTick is the most recent tick log entry.
func (h *Harness) LastTick() world.TickLogEntry {
	h.T.Helper()
	require.NotEmpty(h.T, h.Ticks, "no tick has run")
	return h.Ticks[len(h.Ticks)-1]
}
