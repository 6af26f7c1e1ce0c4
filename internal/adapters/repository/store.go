// Package repository provides event log and catalog storage behind the
// read/write contracts the analytics service consumes.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/followup/internal/domain/lifecycle"
	"github.com/okian/followup/internal/domain/model"
)

// Filter selects events. Zero fields match everything. From and To are
// inclusive calendar days in model.DateLayout.
type Filter struct {
	UserID      string
	ReferenceID string
	Kinds       []model.Kind
	From        string
	To          string
}

// Validate checks the day bounds.
func (f Filter) Validate() error {
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return fmt.Errorf("%w: day %q", ErrInvalidFilter, d)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return fmt.Errorf("%w: from %s after to %s", ErrInvalidFilter, f.From, f.To)
	}
	return nil
}

// Match reports whether e passes the filter.
func (f Filter) Match(e model.Event) bool { //nolint:gocritic // hugeParam: Event is passed by value like everywhere else
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ReferenceID != "" && e.ReferenceID != f.ReferenceID {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, e.Kind) {
		return false
	}
	day := strings.TrimSpace(e.EventDate)
	if day == "" && !e.OccurredAt.IsZero() {
		day = model.Day(e.OccurredAt)
	}
	if f.From != "" && day < f.From {
		return false
	}
	if f.To != "" && day > f.To {
		return false
	}
	return true
}

func containsKind(kinds []model.Kind, k model.Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

// EventSource reads the event log.
type EventSource interface {
	Events(ctx context.Context, f Filter) ([]model.Event, error)
}

// Appender writes to the event log. Events without an ID get one assigned.
type Appender interface {
	Append(ctx context.Context, events ...model.Event) error
}

// CatalogSource provides display metadata for entities.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]model.CatalogEntry, error)
}

// DecisionSource provides the lifecycle references already consumed.
type DecisionSource interface {
	AppliedDecisions(ctx context.Context) (lifecycle.Set, error)
}

// Store is the full storage contract of the service.
type Store interface {
	EventSource
	Appender
	CatalogSource
	DecisionSource
	PutCatalog(ctx context.Context, entries []model.CatalogEntry) error
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
