package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/slotproxy/internal/config"
	"github.com/teemow/slotproxy/internal/instrumentation"
	"github.com/teemow/slotproxy/internal/slots"
)

// SlotLister serves slot requests.
type SlotLister interface {
	Slots(ctx context.Context) ([]slots.Choice, error)
}

// ConfigStore reads and replaces the mutable slot configuration.
type ConfigStore interface {
	Mutable() config.Mutable
	Replace(ctx context.Context, m config.Mutable) error
}

// ServerContextConfig wires a ServerContext.
type ServerContextConfig struct {
	Slots   SlotLister
	Configs ConfigStore

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// ServerContext holds the dependencies shared by all HTTP handlers
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	slots   SlotLister
	configs ConfigStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, cfg ServerContextConfig) (*ServerContext, error) {
	if cfg.Slots == nil {
		return nil, errors.New("slot service is required")
	}
	if cfg.Configs == nil {
		return nil, errors.New("config store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = instrumentation.NewAuditLogger(cfg.Logger)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		slots:   cfg.Slots,
		configs: cfg.Configs,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		audit:   cfg.Audit,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Slots returns the slot service
func (sc *ServerContext) Slots() SlotLister {
	return sc.slots
}

// Configs returns the config store
func (sc *ServerContext) Configs() ConfigStore {
	return sc.configs
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, which may be nil
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Audit returns the audit logger for config changes
func (sc *ServerContext) Audit() *instrumentation.AuditLogger {
	return sc.audit
}

// IsShutdown returns whether the server context has been shut down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the context as shut down and cancels it
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
