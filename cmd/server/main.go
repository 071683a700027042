package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"swarmsim/internal/config"
	"swarmsim/internal/logging"
	persistlog "swarmsim/internal/persistence/log"
	"swarmsim/internal/sim/world"
	"swarmsim/internal/transport/observer"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/scenario.yaml", "scenario file")
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		runName    = flag.String("run", "", "run directory name under <data>/runs (default: scenario file name)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (tick stats + communication)")
		ticks      = flag.Int("ticks", -1, "stop after this many ticks (0 runs forever, -1 keeps the scenario value)")
	)
	flag.Parse()

	logger := logging.New()
	log := logger.WithField("cmd", "server")

	sc, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load scenario")
	}
	if *ticks >= 0 {
		sc.MaxTicks = *ticks
	}

	name := strings.TrimSpace(*runName)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(*configPath), filepath.Ext(*configPath))
	}
	runDir := filepath.Join(*dataDir, "runs", name)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		log.WithError(err).Fatal("create run dir")
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(runDir, *disableDB)
	if err != nil {
		log.WithError(err).Fatal("open index backend")
	}
	if idx != nil {
		defer idx.Close()
		if digest, err := idx.UpsertScenario(sc); err != nil {
			log.WithError(err).Warn("index backend: upsert scenario")
		} else {
			log.WithField("digest", digest).Debug("scenario indexed")
		}
	}

	sim, err := world.FromScenario(sc, logger)
	if err != nil {
		log.WithError(err).Fatal("build simulation")
	}

	tickLog := persistlog.NewTickLogger(runDir)
	commLog := persistlog.NewCommunicationLogger(runDir, logger)
	defer tickLog.Close()
	defer commLog.Close()
	sim.AddRecorder(commLog)
	if idx != nil {
		sim.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
		sim.AddRecorder(idx)
	} else {
		sim.SetTickLogger(tickLog)
	}

	ctx, cancel := signalContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("simulation stopped")
		}
		snap := sim.Snapshot()
		log.WithFields(logrus.Fields{
			"tick":                snap.Tick,
			"explored_proportion": snap.ExploredProportion,
			"interconnected":      snap.Communication.Interconnected,
		}).Info("simulation finished")
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		var stats *indexStats
		if idx != nil {
			s := idx.Stats()
			stats = &s
		}
		writeMetrics(rw, name, sim.Snapshot(), stats)
	})
	observer.NewServer(sim, logger).Register(mux)
	if envBool("SWARMSIM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		log.Debug("pprof endpoints disabled (SWARMSIM_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.WithFields(logrus.Fields{"addr": *addr, "run_dir": runDir, "robots": sim.RobotCount()}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("ListenAndServe")
	}
	<-done
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var errs []error
	if m.a != nil {
		errs = append(errs, m.a.WriteTick(entry))
	}
	if m.b != nil {
		errs = append(errs, m.b.WriteTick(entry))
	}
	return errors.Join(errs...)
}
