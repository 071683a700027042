package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"swarmsim/internal/config"
	"swarmsim/internal/persistence/indexdb"
	"swarmsim/internal/sim/tracker"
	"swarmsim/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	tracker.Recorder
	Close() error
	UpsertScenario(sc config.Scenario) (string, error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(runDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SWARMSIM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(runDir, "index", "run.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported SWARMSIM_INDEX_BACKEND: %s", backend)
	}
}
