package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"swarmsim/internal/config"
	persistlog "swarmsim/internal/persistence/log"
	"swarmsim/internal/sim/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "scenario file the run was started from")
		runDir     = flag.String("run", "", "run directory containing ticks/ticks-*.jsonl.zst")
		toTick     = flag.Int("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *configPath == "" || *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -config or -run")
		os.Exit(2)
	}

	sc, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}
	sim, err := world.FromScenario(sc, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulation:", err)
		os.Exit(1)
	}

	checked, err := verify(sim, *runDir, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if checked == 0 {
		fmt.Fprintln(os.Stderr, "no tick entries found in", *runDir)
		os.Exit(1)
	}
	snap := sim.Snapshot()
	fmt.Printf("replay ok: checked=%d ticks robots=%d explored=%.4f\n", checked, len(snap.Robots), snap.ExploredProportion)
}

// captureTick keeps the entry of the last stepped tick.
type captureTick struct{ last world.TickLogEntry }

func (c *captureTick) WriteTick(e world.TickLogEntry) error {
	c.last = e
	return nil
}

// verify steps sim once per logged tick and compares each logged entry with
// the one the replayed tick produces. It returns the number of ticks checked.
func verify(sim *world.Simulation, runDir string, toTick int) (int, error) {
	capture := &captureTick{}
	sim.SetTickLogger(capture)

	checked := 0
	err := persistlog.ReadTicks(runDir, func(entry world.TickLogEntry) error {
		if toTick != 0 && entry.Tick > toTick {
			return errStop
		}
		if want := sim.Tick() + 1; entry.Tick != want {
			return fmt.Errorf("tick mismatch: want=%d got=%d", want, entry.Tick)
		}
		tick := sim.StepOnce()
		if tick != entry.Tick {
			return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
		}

		got, err := json.Marshal(capture.last)
		if err != nil {
			return err
		}
		want, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if !bytes.Equal(got, want) {
			return fmt.Errorf("state mismatch at tick %d:\n got=%s\nwant=%s", tick, got, want)
		}
		checked++
		return nil
	})
	if err == errStop {
		err = nil
	}
	return checked, err
}

var errStop = fmt.Errorf("stop")
