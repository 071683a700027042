package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmsim/internal/config"
	persistlog "swarmsim/internal/persistence/log"
	"swarmsim/internal/sim/world"
)

const scenario = `
seed: 9
algorithm: frontier
map:
  rows:
    - "##########"
    - "#........#"
    - "#........#"
    - "#...##...#"
    - "#........#"
    - "#........#"
    - "##########"
robots:
  count: 2
`

func newSim(t *testing.T, yaml string) *world.Simulation {
	t.Helper()
	sc, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	sim, err := world.FromScenario(sc, nil)
	require.NoError(t, err)
	require.Equal(t, 2, sim.RobotCount())
	return sim
}

func record(t *testing.T, sim *world.Simulation, ticks int) string {
	t.Helper()
	dir := t.TempDir()
	l := persistlog.NewTickLogger(dir)
	sim.SetTickLogger(l)
	for i := 0; i < ticks; i++ {
		sim.StepOnce()
	}
	require.NoError(t, l.Close())
	return dir
}

func TestVerify_ReplaysRecordedRun(t *testing.T) {
	dir := record(t, newSim(t, scenario), 40)

	checked, err := verify(newSim(t, scenario), dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 40, checked)
}

func TestVerify_StopsAtToTick(t *testing.T) {
	dir := record(t, newSim(t, scenario), 20)

	sim := newSim(t, scenario)
	checked, err := verify(sim, dir, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, checked)
	assert.Equal(t, 15, sim.Tick())
}

func TestVerify_DetectsDivergence(t *testing.T) {
	random := strings.Replace(scenario, "algorithm: frontier", "algorithm: random", 1)
	dir := record(t, newSim(t, random), 40)

	other := newSim(t, strings.Replace(random, "seed: 9", "seed: 10", 1))
	_, err := verify(other, dir, 0)
	assert.ErrorContains(t, err, "mismatch")
}

func TestVerify_MissingRun(t *testing.T) {
	_, err := verify(newSim(t, scenario), t.TempDir(), 0)
	assert.Error(t, err)
}
