package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"swarmsim/internal/logging"
	"swarmsim/internal/observerproto"
	"swarmsim/internal/sim/tilemap"
	"swarmsim/internal/sim/world"
)

// Source is the read side of a running simulation. Snapshot must be safe to
// call from any goroutine; the rest never changes after spawn.
type Source interface {
	Snapshot() world.Snapshot
	Config() world.Config
	CollisionMap() *tilemap.SimulationMap[tilemap.Tile]
}

type Server struct {
	sim Source
	log logrus.FieldLogger

	// PollInterval is how often a session checks for a new tick.
	PollInterval time.Duration

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(sim Source, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	poll := time.Second / time.Duration(max(sim.Config().TickRateHz, 1)) / 2
	return &Server{
		sim:          sim,
		log:          logger.WithField("component", "observer"),
		PollInterval: max(poll, 5*time.Millisecond),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Register mounts the observer endpoints on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", s.WSHandler())
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.sim.Config()
		m := s.sim.CollisionMap()
		snap := s.sim.Snapshot()
		off := m.Offset()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Tick:            snap.Tick,
			MapParams: observerproto.MapParams{
				Width:  m.Width(),
				Height: m.Height(),
				Scale:  m.Scale(),
				Offset: [2]float64{off.X, off.Y},
				Rows:   tilemap.Format(m),
			},
			Robots:     len(snap.Robots),
			Algorithm:  cfg.Algorithm,
			TickRateHz: cfg.TickRateHz,
			Seed:       cfg.Seed,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		log := s.log.WithField("session", sid)
		log.Info("observer subscribed")
		defer log.Info("observer left")

		var every atomic.Int64
		every.Store(int64(sub.EveryTicks))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			writeErr <- s.stream(ctx, conn, &every)
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				every.Store(int64(sub.EveryTicks))
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case err := <-writeErr:
			if err != nil && err != context.Canceled {
				log.WithError(err).Debug("observer write stopped")
			}
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// stream sends a TICK for every new tick that is a multiple of every.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn, every *atomic.Int64) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	last := -1
	for {
		snap := s.sim.Snapshot()
		if snap.Tick != last {
			last = snap.Tick
			if n := every.Load(); n <= 1 || snap.Tick%int(n) == 0 {
				b, err := json.Marshal(tickMsg(snap))
				if err != nil {
					return err
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return err
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func tickMsg(snap world.Snapshot) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:               observerproto.TypeTick,
		ProtocolVersion:    observerproto.Version,
		Tick:               snap.Tick,
		ExploredTriangles:  snap.ExploredTriangles,
		ExploredProportion: snap.ExploredProportion,
		Robots:             make([]observerproto.RobotState, 0, len(snap.Robots)),
	}
	for _, r := range snap.Robots {
		msg.Robots = append(msg.Robots, observerproto.RobotState{
			ID:        r.ID,
			Status:    r.Status,
			Task:      r.Task,
			Pos:       [2]float64{r.Position.X, r.Position.Y},
			Heading:   r.Heading,
			Colliding: r.Colliding,
		})
	}
	if c := snap.Communication; c.Tick > 0 {
		msg.Communication = &observerproto.CommunicationState{
			Tick:                     c.Tick,
			Interconnected:           c.Interconnected,
			BiggestClusterPercentage: c.BiggestClusterPercentage,
			Groups:                   c.Groups,
		}
	}
	return msg
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.EveryTicks <= 0 {
		sub.EveryTicks = 1
	}
	if sub.EveryTicks > 1000 {
		sub.EveryTicks = 1000
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
