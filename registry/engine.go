package registry

import (
	"log/slog"
	"sync/atomic"

	"github.com/materium/registry/index"
	"github.com/materium/registry/ledger"
	"github.com/materium/registry/store"
)

// Engine is the registry synchronization engine: it owns the local
// projection and drives all reads and writes against the ledger through the
// index manager and record store.
//
// One Engine per client instance. All methods are safe for concurrent use;
// the projection is replaced atomically so readers never observe a
// half-built view.
type Engine struct {
	ledger  ledger.Client
	index   *index.Manager
	store   *store.Store
	logger  *slog.Logger
	fanout  int
	metrics *Metrics

	current atomic.Pointer[Projection]
}

// Option configures an Engine.
type Option func(*Engine)

// WithFanout bounds the number of concurrent per-record fetches during a
// sync pass.
func WithFanout(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fanout = n
		}
	}
}

// WithLogger sets the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instruments to the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine over the given ledger.
func New(l ledger.Client, opts ...Option) *Engine {
	e := &Engine{
		ledger: l,
		logger: slog.Default(),
		fanout: 8,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.index = index.NewManager(l, e.logger)
	e.store = store.New(l, e.logger)
	return e
}

// Projection returns the most recently published projection, or nil before
// the first successful sync. The returned value is a snapshot: later syncs
// publish new projections instead of mutating it.
func (e *Engine) Projection() *Projection {
	return e.current.Load()
}

// Store exposes the underlying record store for read-only collaborators.
func (e *Engine) Store() *store.Store {
	return e.store
}
