package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by the analytics core. Callers match with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrMalformedReference   = errors.New("malformed reference")

	// ErrEntityMismatch is an ErrInvalidInput raised when two snapshots of
	// different entities are compared.
	ErrEntityMismatch = fmt.Errorf("%w: entity mismatch", ErrInvalidInput)
)
