package repository

import "github.com/okian/followup/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithEvents seeds the store. Seeded events keep their IDs when set.
func WithEvents(events ...model.Event) Option {
	return func(s *MemoryStore) {
		s.seed = append(s.seed, events...)
	}
}

// WithCatalogEntries seeds the catalog.
func WithCatalogEntries(entries ...model.CatalogEntry) Option {
	return func(s *MemoryStore) {
		s.catalog = append(s.catalog, entries...)
	}
}

// WithIDGenerator overrides how missing event IDs are assigned.
func WithIDGenerator(next func() string) Option {
	return func(s *MemoryStore) {
		if next != nil {
			s.nextID = next
		}
	}
}
