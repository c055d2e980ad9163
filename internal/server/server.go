// Package server wires the conference server's HTTP surface together: the
// agent WebSocket endpoint, Prometheus metrics, a liveness probe, and
// graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/convene/convene/internal/bus"
	"github.com/convene/convene/internal/config"
	"github.com/convene/convene/internal/logging"
	"github.com/convene/convene/internal/metrics"
	"github.com/convene/convene/internal/repo"
	"github.com/convene/convene/internal/repo/sqlite"
	"github.com/convene/convene/internal/room"
	"github.com/convene/convene/internal/session"
	"github.com/convene/convene/internal/timefmt"
)

// Server is a ready-to-serve conference server instance.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	rooms      *room.Manager
	repository repo.Repository
	federation bus.Bus
}

// New builds a Server: opens and migrates the sqlite repository, connects
// the federation bus (if configured), and wires the room manager and
// session HTTP handlers into a single mux.
func New(cfg *config.Config) (*Server, error) {
	repository, err := sqlite.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	var federationBus bus.Bus
	if cfg.BusURL != "" {
		nb := bus.NewNetworkedBus(cfg.BusURL, logging.ComponentLogger("bus"))
		if err := nb.Connect(context.Background()); err != nil {
			_ = repository.Close()
			return nil, fmt.Errorf("connect federation bus: %w", err)
		}
		federationBus = nb
	} else {
		federationBus = bus.NewLocalBus()
	}

	rooms := room.NewManager(room.ManagerConfig{
		Repository:      repository,
		Bus:             federationBus,
		ServerID:        cfg.ServerID,
		DefaultMode:     cfg.DefaultMode,
		SeenIDLimit:     cfg.SeenIDLimit,
		SendBufferLimit: cfg.SendBufferLimit,
		ReapEmptyRooms:  cfg.ReapEmptyRooms,
	})

	if cfg.DefaultTopic != "" {
		if _, err := rooms.Create("default", cfg.DefaultTopic, cfg.DefaultMode); err != nil {
			slog.Warn("failed to pre-create default room", "error", err)
		}
	}

	sessionSrv := session.New(session.Config{
		Rooms:           rooms,
		DefaultTopic:    cfg.DefaultTopic,
		DefaultMode:     cfg.DefaultMode,
		SendBufferLimit: cfg.SendBufferLimit,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", sessionSrv.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthzHandler(rooms))

	// Agents may hold a connection open indefinitely; cleartext HTTP/2
	// lets a single TCP connection carry the initial upgrade plus any
	// future multiplexed RPC-style traffic without extra round trips.
	h2cHandler := h2c.NewHandler(logging.HTTPMiddleware(metrics.HTTPMiddleware(mux)), &http2.Server{
		MaxConcurrentStreams: 1000,
	})

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h2cHandler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		rooms:      rooms,
		repository: repository,
		federation: federationBus,
	}, nil
}

// healthResponse is the /healthz liveness probe payload.
type healthResponse struct {
	Status      string `json:"status"`
	RoomCount   int    `json:"roomCount"`
	AgentCount  int    `json:"agentCount"`
	GeneratedAt string `json:"generatedAt"`
}

func healthzHandler(rooms *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomList := rooms.List()
		agents := 0
		for _, rm := range roomList {
			agents += rm.AgentCount()
		}
		resp := healthResponse{
			Status:      "ok",
			RoomCount:   len(roomList),
			AgentCount:  agents,
			GeneratedAt: timefmt.Format(time.Now()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Serve starts the HTTP listener and blocks until ctx is cancelled, then
// performs graceful shutdown: shut down every room, then reject new
// connections and drain in-flight requests, then release the bus and
// repository.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		_ = s.repository.Close()
		return fmt.Errorf("listen: %w", err)
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		slog.Info("convene shutting down...")

		s.rooms.ShutdownAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)

		_ = s.federation.Close()
		_ = s.repository.Close()

		close(shutdownDone)
	}()

	slog.Info("convene listening", "addr", s.cfg.Addr)
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}

	<-shutdownDone
	return nil
}

// Rooms exposes the room manager for embedders/tests.
func (s *Server) Rooms() *room.Manager { return s.rooms }
