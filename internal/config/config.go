// Package config defines service configuration and its layered loading.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/scoring"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration. Keys are flat so every field can
// also be set from the environment.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// StoreDriver selects memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// StorePath is the sqlite database file.
	StorePath string `koanf:"store_path"`
	// CatalogPath optionally points at a YAML catalog loaded on start.
	CatalogPath string `koanf:"catalog_path"`
	// EntityKind prefixes lifecycle references.
	EntityKind string `koanf:"entity_kind"`

	// WindowDays is the default aggregation window.
	WindowDays int `koanf:"window_days"`
	// MinSample is the origin count below which results are low-sample.
	MinSample int `koanf:"min_sample"`
	// RankingLimit is the default list length; MaxRankingLimit caps ?limit.
	RankingLimit    int `koanf:"ranking_limit"`
	MaxRankingLimit int `koanf:"max_ranking_limit"`
	// ImprovementThreshold is the evaluation threshold in percentage points.
	ImprovementThreshold int `koanf:"improvement_threshold"`

	ImpactMin       float64            `koanf:"impact_min"`
	ImpactMax       float64            `koanf:"impact_max"`
	StrategyWeights map[string]float64 `koanf:"strategy_weights"`

	HabitRecentWeight     float64 `koanf:"habit_recent_weight"`
	HabitStreakWeight     float64 `koanf:"habit_streak_weight"`
	HabitWeeklyWeight     float64 `koanf:"habit_weekly_weight"`
	HabitStreakCap        int     `koanf:"habit_streak_cap"`
	HabitStableThreshold  float64 `koanf:"habit_stable_threshold"`
	HabitWarningThreshold float64 `koanf:"habit_warning_threshold"`
	WeeklyTarget          int     `koanf:"weekly_target"`
}

// New creates a Config with defaults.
func New() *Config {
	hc := habit.DefaultConfig()
	weights := make(map[string]float64)
	for tier, w := range scoring.DefaultStrategyWeights() {
		weights[string(tier)] = w
	}
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		ShutdownTimeoutSeconds: 10,
		QueueSize:              10_000,
		WorkerCount:            runtime.NumCPU() * 2,
		StoreDriver:            StoreMemory,
		StorePath:              "data/followup.db",
		EntityKind:             "lesson",
		WindowDays:             14,
		MinSample:              model.DefaultMinSample,
		RankingLimit:           10,
		MaxRankingLimit:        100,
		ImprovementThreshold:   5,
		ImpactMin:              0.5,
		ImpactMax:              2.0,
		StrategyWeights:        weights,
		HabitRecentWeight:      hc.RecentWeight,
		HabitStreakWeight:      hc.StreakWeight,
		HabitWeeklyWeight:      hc.WeeklyWeight,
		HabitStreakCap:         hc.StreakCap,
		HabitStableThreshold:   hc.StableThreshold,
		HabitWarningThreshold:  hc.WarningThreshold,
		WeeklyTarget:           5,
	}
}

// Habit returns the habit engine configuration.
func (c *Config) Habit() habit.Config {
	return habit.Config{
		RecentWeight:     c.HabitRecentWeight,
		StreakWeight:     c.HabitStreakWeight,
		WeeklyWeight:     c.HabitWeeklyWeight,
		StreakCap:        c.HabitStreakCap,
		StableThreshold:  c.HabitStableThreshold,
		WarningThreshold: c.HabitWarningThreshold,
	}
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.StorePath == "":
		return fmt.Errorf("%w: store_path is required for sqlite", ErrConfigurationMissing)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WindowDays <= 0:
		return fmt.Errorf("%w: window_days must be positive", ErrInvalidConfig)
	case c.MinSample <= 0:
		return fmt.Errorf("%w: min_sample must be positive", ErrInvalidConfig)
	case c.RankingLimit <= 0 || c.MaxRankingLimit < c.RankingLimit:
		return fmt.Errorf("%w: ranking_limit must be in 1..max_ranking_limit", ErrInvalidConfig)
	case c.ImprovementThreshold <= 0:
		return fmt.Errorf("%w: improvement_threshold must be positive", ErrInvalidConfig)
	case c.ImpactMin <= 0 || c.ImpactMax < c.ImpactMin:
		return fmt.Errorf("%w: impact bounds must satisfy 0 < impact_min <= impact_max", ErrInvalidConfig)
	case c.WeeklyTarget < 0 || c.WeeklyTarget > 7:
		return fmt.Errorf("%w: weekly_target must be in 0..7", ErrInvalidConfig)
	case c.EntityKind == "":
		return fmt.Errorf("%w: entity_kind must not be empty", ErrConfigurationMissing)
	}
	if err := c.Habit().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
