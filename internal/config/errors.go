package config

import (
	"errors"

	"github.com/okian/followup/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrConfigurationMissing is the domain kind for absent required settings.
	ErrConfigurationMissing = model.ErrConfigurationMissing
)
