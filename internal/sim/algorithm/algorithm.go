// Package algorithm holds the robot behaviours a scenario can run. Each
// robot owns one Algorithm instance that steers its controller once per
// logic tick.
package algorithm

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"swarmsim/internal/sim/robot"
)

type Algorithm interface {
	SetController(c *robot.Controller)
	UpdateLogic() error
}

// Factory builds the algorithm for one robot from its PRNG seed.
type Factory func(seed uint64) Algorithm

var registry = map[string]Factory{
	"random":   func(seed uint64) Algorithm { return NewRandomExplorer(seed) },
	"frontier": func(seed uint64) Algorithm { return NewFrontierExplorer(seed) },
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q (known: %v)", name, Names())
	}
	return f, nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomExplorer alternates between turning a random amount and driving
// straight until it hits something.
type RandomExplorer struct {
	c           *robot.Controller
	rng         *rand.Rand
	justRotated bool
}

func NewRandomExplorer(seed uint64) *RandomExplorer {
	return &RandomExplorer{rng: newRand(seed)}
}

func (a *RandomExplorer) SetController(c *robot.Controller) { a.c = c }

func (a *RandomExplorer) UpdateLogic() error {
	if a.c.HasCollidedSinceLastLogicTick() {
		a.c.StopCurrentTask()
		a.justRotated = false
	}
	if a.c.Status() != robot.Idle {
		return nil
	}
	if !a.justRotated {
		a.justRotated = true
		return a.c.Rotate(a.randomTurn())
	}
	a.justRotated = false
	return a.c.StartMoving(false)
}

// randomTurn is between 30 and 180 degrees either way.
func (a *RandomExplorer) randomTurn() float64 {
	deg := float64(30 + a.rng.IntN(151))
	if a.rng.IntN(2) == 0 {
		return -deg
	}
	return deg
}
