package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teemow/slotproxy/internal/logging"
)

// Store publishes SlotQueryConfig snapshots. Reads are lock-free; writers are
// serialized so the persisted document always matches the published snapshot.
type Store struct {
	current   atomic.Pointer[SlotQueryConfig]
	persister Persister
	logger    *slog.Logger

	writeMu sync.Mutex
}

// NewStore creates a Store seeded with initial. A nil persister keeps updates
// in memory only.
func NewStore(initial *SlotQueryConfig, persister Persister, logger *slog.Logger) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		persister: persister,
		logger:    logging.WithOperation(logger, "config.store"),
	}
	snapshot := *initial
	s.current.Store(&snapshot)
	return s
}

// Current returns the active snapshot. The returned value must not be modified.
func (s *Store) Current() *SlotQueryConfig {
	return s.current.Load()
}

// Mutable returns the mutable subset of the active snapshot.
func (s *Store) Mutable() Mutable {
	return s.current.Load().Mutable
}

// Replace validates m, persists it and then publishes a new snapshot carrying
// m and the unchanged static fields. On any error the active snapshot is left
// untouched.
func (s *Store) Replace(ctx context.Context, m Mutable) error {
	if err := m.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persister.Save(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigPersist, err)
	}

	s.current.Store(s.current.Load().WithMutable(m))
	s.logger.Info("slot config replaced",
		logging.Calendar(m.CalendarID),
		slog.Int("min_offset_days", m.MinOffsetDays),
		slog.Int("days_range", m.DaysRange),
		slog.Bool("has_query_term", m.QueryTerm != ""))
	return nil
}

// Restore loads a previously persisted mutable subset, if any, and publishes it.
// It returns false when nothing was persisted yet.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := s.persister.Load(ctx)
	if errors.Is(err, ErrNotPersisted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to restore slot config: %w", err)
	}
	if err := m.Validate(); err != nil {
		return false, fmt.Errorf("persisted slot config is invalid: %w", err)
	}

	s.current.Store(s.current.Load().WithMutable(m))
	s.logger.Info("slot config restored from persisted state")
	return true, nil
}
