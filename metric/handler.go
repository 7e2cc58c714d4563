package metric

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/materium/registry/errors"
)

// Server exposes the metrics registry over HTTP, plus any extra routes
// mounted before Start (health probes, debug handlers).
type Server struct {
	port     int
	path     string
	server   *http.Server
	registry *Registry
	routes   map[string]http.Handler
	logger   *slog.Logger
	mu       sync.Mutex // protects server and routes
}

// NewServer creates a new metrics server with the provided registry
func NewServer(port int, path string, registry *Registry) *Server {
	if path == "" {
		path = "/metrics"
	}
	if port == 0 {
		port = 9090
	}

	return &Server{
		port:     port,
		path:     path,
		registry: registry,
		routes:   make(map[string]http.Handler),
		logger:   slog.Default(),
	}
}

// SetLogger replaces the server's structured logger. It has no effect after
// Start.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Mount registers an extra handler on the server's mux. It has no effect
// after Start.
func (s *Server) Mount(path string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = handler
}

// Handler returns the promhttp handler for the registry.
func (s *Server) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry.PrometheusRegistry(), promhttp.HandlerOpts{})
}

// Start begins serving metrics in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(
			fmt.Errorf("server already started"), "Server", "Start", "check state")
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, s.Handler())
	for path, handler := range s.routes {
		mux.Handle(path, handler)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger := s.logger
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Best effort; the process keeps running without metrics
			logger.Error("metrics server failed", "port", s.port, "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	err := s.server.Shutdown(ctx)
	s.server = nil
	if err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "shutdown")
	}
	return nil
}
