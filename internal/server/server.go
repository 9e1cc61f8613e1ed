package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/Free-Rat/type-racer-wars/internal/bus"
	"github.com/Free-Rat/type-racer-wars/internal/config"
	"github.com/Free-Rat/type-racer-wars/internal/game"
	"github.com/Free-Rat/type-racer-wars/internal/session"
)

// Server accepts WebSocket connections and runs one session per
// connection. Registry, bus, and scheduler are injected so tests can
// drive them directly.
type Server struct {
	cfg    *config.Config
	reg    *game.Registry
	bus    *bus.Bus
	sched  *game.Scheduler
	logger *slog.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	// baseCtx governs session lifetimes; it is the ctx passed to Run.
	baseCtx atomic.Pointer[context.Context]

	wg sync.WaitGroup
}

// New creates a server. The listener is not started until Run.
func New(cfg *config.Config, reg *game.Registry, b *bus.Bus, sched *game.Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		reg:    reg,
		bus:    b,
		sched:  sched,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients connect from arbitrary origins; identity is just a
			// self-declared display name.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	background := context.Background()
	s.baseCtx.Store(&background)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc(cfg.Server.WSPath, s.handleWS)
	return s
}

// Handler returns the HTTP handler serving the WebSocket path. Exposed
// for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout. Session sockets are closed by cancellation.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx.Store(&ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "ws_path", s.cfg.Server.WSPath)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}
	s.wg.Wait()
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	s.logger.Info("connection accepted", "remote", r.RemoteAddr)

	sock := newWSConn(conn,
		s.cfg.Server.PingInterval.Std(),
		s.cfg.Server.ReadTimeout.Std(),
		s.cfg.Server.WriteTimeout.Std(),
		s.logger,
	)

	sess := session.New(session.Config{
		Quorum:         s.cfg.Race.Quorum,
		KeystrokeRate:  s.cfg.Session.KeystrokeRate,
		KeystrokeBurst: s.cfg.Session.KeystrokeBurst,
	}, sock, s.reg, s.bus, s.sched, s.logger)

	s.wg.Add(1)
	defer s.wg.Done()
	sess.Run(*s.baseCtx.Load())

	s.logger.Info("connection closed", "remote", r.RemoteAddr)
}
