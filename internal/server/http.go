package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultHTTPAddr is the default address of the slot API.
	DefaultHTTPAddr = ":4000"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServerConfig configures the slot API server.
type HTTPServerConfig struct {
	// Addr is the listen address (default: DefaultHTTPAddr)
	Addr string

	// Version is reported by /healthz/detailed
	Version string
}

// HTTPServer serves the slot API, the config endpoints and health probes.
type HTTPServer struct {
	sc      *ServerContext
	health  *HealthChecker
	handler http.Handler

	mu         sync.Mutex
	addr       string
	httpServer *http.Server
}

// NewHTTPServer creates the slot API server and registers its routes.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}

	s := &HTTPServer{
		sc:     sc,
		health: NewHealthChecker(sc, config.Version),
		addr:   config.Addr,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /slots", s.handleSlots)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("POST /config/update", s.handleConfigUpdate)
	s.health.RegisterHealthEndpoints(mux)

	s.handler = withRequestID(s.withObservability(mux))
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal binds the listener, closes ready (if non-nil) once
// connections are accepted, and serves until Shutdown is called.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.sc.Context() },
		ErrorLog:          slog.NewLogLogger(s.sc.Logger().Handler(), slog.LevelWarn),
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.sc.Logger().Info("calendar slot API listening", slog.String("addr", ln.Addr().String()))
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown stops accepting traffic, drains in-flight requests and cancels the
// server context.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	if scErr := s.sc.Shutdown(); scErr != nil && err == nil {
		err = scErr
	}
	return err
}

// Addr returns the listen address; once started, the bound address.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
