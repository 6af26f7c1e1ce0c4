// Package habit scores personal learning consistency and picks at most one
// behavioral nudge per render.
package habit

import (
	"fmt"
	"math"

	"github.com/okian/followup/internal/domain/model"
)

// State buckets a habit score.
type State string

// Habit states, from healthy to at risk.
const (
	StateStable  State = "stable"
	StateWarning State = "warning"
	StateDanger  State = "danger"
)

// InterventionType names a nudge. The empty type means no nudge.
type InterventionType string

// Intervention types in selection priority order.
const (
	InterventionNone          InterventionType = ""
	InterventionStreakRescue  InterventionType = "STREAK_RESCUE"
	InterventionWeeklyCatchup InterventionType = "WEEKLY_CATCHUP"
	InterventionPositive      InterventionType = "POSITIVE"
)

// Config holds the score weights and state thresholds.
type Config struct {
	RecentWeight     float64 `koanf:"recent_weight"`
	StreakWeight     float64 `koanf:"streak_weight"`
	WeeklyWeight     float64 `koanf:"weekly_weight"`
	StreakCap        int     `koanf:"streak_cap"`
	StableThreshold  float64 `koanf:"stable_threshold"`
	WarningThreshold float64 `koanf:"warning_threshold"`
}

// TotalWeight is the sum the three weights must reach, so scores stay in 0..100.
const TotalWeight = 100

const weightTolerance = 1e-6

// DefaultConfig returns weights 40/40/20, a 30-day streak cap and thresholds 70/40.
func DefaultConfig() Config {
	return Config{
		RecentWeight:     40,
		StreakWeight:     40,
		WeeklyWeight:     20,
		StreakCap:        30,
		StableThreshold:  70,
		WarningThreshold: 40,
	}
}

// Validate rejects unset fields instead of guessing defaults.
func (c Config) Validate() error {
	switch {
	case c.RecentWeight <= 0 || c.StreakWeight <= 0 || c.WeeklyWeight <= 0:
		return fmt.Errorf("%w: habit weights must be positive", model.ErrConfigurationMissing)
	case math.Abs(c.RecentWeight+c.StreakWeight+c.WeeklyWeight-TotalWeight) > weightTolerance:
		return fmt.Errorf("%w: habit weights sum to %g, want %d",
			model.ErrInvalidInput, c.RecentWeight+c.StreakWeight+c.WeeklyWeight, TotalWeight)
	case c.StreakCap <= 0:
		return fmt.Errorf("%w: habit streak cap must be positive", model.ErrConfigurationMissing)
	case c.StableThreshold <= 0 || c.WarningThreshold <= 0:
		return fmt.Errorf("%w: habit thresholds must be set", model.ErrConfigurationMissing)
	case c.WarningThreshold > c.StableThreshold:
		return fmt.Errorf("%w: warning threshold %.0f above stable threshold %.0f",
			model.ErrInvalidInput, c.WarningThreshold, c.StableThreshold)
	}
	return nil
}

// Stats are the habit inputs derived from a user's activity.
type Stats struct {
	RecentActiveDays int  `json:"recent_active_days"`
	CurrentStreak    int  `json:"current_streak"`
	WeeklyProgress   int  `json:"weekly_progress"`
	WeeklyTarget     int  `json:"weekly_target"`
	ActiveToday      bool `json:"active_today"`
	// DaysLeftInWeek counts the days through Sunday that can still add
	// progress. Today is excluded once it is active.
	DaysLeftInWeek int `json:"days_left_in_week"`
}

// Score is a habit score and its components. Recent+Streak+Weekly == Value.
type Score struct {
	Value  float64 `json:"value"`
	State  State   `json:"state"`
	Recent float64 `json:"recent"`
	Streak float64 `json:"streak"`
	Weekly float64 `json:"weekly"`
}

// Intervention is the single nudge chosen for a render.
type Intervention struct {
	Type    InterventionType `json:"type"`
	Message string           `json:"message,omitempty"`
	CTA     string           `json:"cta,omitempty"`
}

// Loggable reports whether displaying i should be recorded as an event.
func (i Intervention) Loggable() bool {
	return i.Type == InterventionStreakRescue || i.Type == InterventionWeeklyCatchup
}

// Engine computes habit scores. It holds no state besides its config.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Score computes the composite score for s.
func (e *Engine) Score(s Stats) Score {
	recent := float64(clamp(s.RecentActiveDays, 0, 7)) / 7 * e.cfg.RecentWeight
	streak := float64(clamp(s.CurrentStreak, 0, e.cfg.StreakCap)) / float64(e.cfg.StreakCap) * e.cfg.StreakWeight
	var weekly float64
	if s.WeeklyTarget > 0 {
		weekly = math.Min(float64(max(s.WeeklyProgress, 0))/float64(s.WeeklyTarget), 1) * e.cfg.WeeklyWeight
	}

	value := recent + streak + weekly
	return Score{
		Value:  value,
		State:  e.state(value),
		Recent: recent,
		Streak: streak,
		Weekly: weekly,
	}
}

func (e *Engine) state(v float64) State {
	switch {
	case v >= e.cfg.StableThreshold:
		return StateStable
	case v >= e.cfg.WarningThreshold:
		return StateWarning
	default:
		return StateDanger
	}
}

// Select picks the first matching nudge. At most one is ever returned.
func (e *Engine) Select(s Stats, sc Score) Intervention {
	switch {
	case sc.State != StateStable && s.CurrentStreak > 0 && !s.ActiveToday:
		return Intervention{
			Type:    InterventionStreakRescue,
			Message: fmt.Sprintf("Your %d-day streak ends today unless you study.", s.CurrentStreak),
			CTA:     "Start a 5-minute review",
		}
	case s.WeeklyTarget-s.WeeklyProgress > s.DaysLeftInWeek:
		return Intervention{
			Type:    InterventionWeeklyCatchup,
			Message: fmt.Sprintf("%d of %d days done this week. The goal needs a catch-up.", s.WeeklyProgress, s.WeeklyTarget),
			CTA:     "Plan a catch-up session",
		}
	case sc.State == StateStable:
		return Intervention{
			Type:    InterventionPositive,
			Message: "Great consistency. Keep it going.",
		}
	}
	return Intervention{Type: InterventionNone}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
