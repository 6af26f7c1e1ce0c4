package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/followup/internal/domain/lifecycle"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/pkg/metrics"
)

// MemoryStore keeps the event log in process memory. Events come back in
// append order.
type MemoryStore struct {
	mu      sync.RWMutex
	events  []model.Event
	catalog []model.CatalogEntry
	closed  bool

	seed   []model.Event
	nextID func() string
}

// NewMemoryStore creates an in-memory store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{nextID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	for _, e := range s.seed {
		s.events = append(s.events, s.prepare(e))
	}
	s.seed = nil
	metrics.UpdateStoreEvents(len(s.events))
	return s
}

func (s *MemoryStore) prepare(e model.Event) model.Event {
	if e.ID == "" {
		e.ID = s.nextID()
	}
	return e.Normalize()
}

// Append adds events to the log.
func (s *MemoryStore) Append(ctx context.Context, events ...model.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Milliseconds()))
	}()
	if err := ctx.Err(); err != nil {
		return err
	}

	prepared := make([]model.Event, 0, len(events))
	for _, e := range events {
		e = s.prepare(e)
		if err := e.Validate(); err != nil {
			return err
		}
		prepared = append(prepared, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.events = append(s.events, prepared...)
	metrics.UpdateStoreEvents(len(s.events))
	return nil
}

// Events returns a copy of the events matching f.
func (s *MemoryStore) Events(ctx context.Context, f Filter) ([]model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AppliedDecisions returns the references of all lifecycle markers.
func (s *MemoryStore) AppliedDecisions(ctx context.Context) (lifecycle.Set, error) {
	events, err := s.Events(ctx, Filter{Kinds: []model.Kind{model.KindLifecycleApplied}})
	if err != nil {
		return nil, err
	}
	return lifecycle.AppliedFromEvents(events), nil
}

// Catalog returns a copy of the catalog.
func (s *MemoryStore) Catalog(_ context.Context) ([]model.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CatalogEntry(nil), s.catalog...), nil
}

// PutCatalog replaces the catalog.
func (s *MemoryStore) PutCatalog(_ context.Context, entries []model.CatalogEntry) error {
	if err := ValidateCatalog(entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append([]model.CatalogEntry(nil), entries...)
	return nil
}

// Count returns the number of stored events.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

// Close releases the store. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
