package repository

import "errors"

// Sentinel kinds for event store errors.
var (
	ErrClosed        = errors.New("event store closed")
	ErrInvalidFilter = errors.New("invalid event filter")
	ErrCatalog       = errors.New("invalid catalog")
)
