package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/followup/internal/adapters/repository"
	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
	"github.com/okian/followup/pkg/metrics"
)

// Habit scores a user's study habit as of today and picks one nudge.
func (s *Service) Habit(ctx context.Context, userID string) (types.HabitReport, error) {
	defer s.observe("habit", time.Now())

	if userID == "" {
		return types.HabitReport{}, fmt.Errorf("%w: missing user id", model.ErrInvalidInput)
	}
	now := s.now().UTC()
	// one extra week beyond the cap keeps the recent-days count complete
	lookback := s.habits.Config().StreakCap + 7
	events, err := s.store.Events(ctx, repository.Filter{
		UserID: userID,
		From:   model.Day(now.AddDate(0, 0, -lookback)),
		To:     model.Day(now),
	})
	if err != nil {
		return types.HabitReport{}, fmt.Errorf("load events: %w", err)
	}

	stats := habit.StatsFrom(events, userID, now, s.weeklyTarget)
	score := s.habits.Score(stats)
	iv := s.habits.Select(stats, score)
	metrics.RecordIntervention(string(iv.Type))

	return types.HabitReport{
		UserID:       userID,
		Date:         model.Day(now),
		Stats:        stats,
		Score:        score,
		Intervention: iv,
		ShouldLog:    iv.Loggable() && !shownOn(events, userID, iv.Type, model.Day(now)),
	}, nil
}

// RecordInterventionShown appends an intervention_shown event unless one of
// the same type was already recorded for the user today. It reports whether
// an event was appended.
func (s *Service) RecordInterventionShown(ctx context.Context, userID string, t habit.InterventionType) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: missing user id", model.ErrInvalidInput)
	}
	if !(habit.Intervention{Type: t}).Loggable() {
		return false, fmt.Errorf("%w: intervention %q is not logged", model.ErrInvalidInput, t)
	}

	s.shownMu.Lock()
	defer s.shownMu.Unlock()

	now := s.now().UTC()
	today := model.Day(now)
	events, err := s.store.Events(ctx, repository.Filter{
		UserID: userID,
		Kinds:  []model.Kind{model.KindInterventionShown},
		From:   today,
		To:     today,
	})
	if err != nil {
		return false, fmt.Errorf("load events: %w", err)
	}
	if shownOn(events, userID, t, today) {
		return false, nil
	}

	err = s.store.Append(ctx, model.Event{
		UserID:      userID,
		Kind:        model.KindInterventionShown,
		EventDate:   today,
		ReferenceID: string(t),
		OccurredAt:  now,
	})
	if err != nil {
		return false, fmt.Errorf("append intervention: %w", err)
	}
	s.logger.Debug(ctx, "intervention shown", logger.String("user", userID), logger.String("type", string(t)))
	return true, nil
}

// shownOn reports an intervention_shown event of type t for userID on day.
func shownOn(events []model.Event, userID string, t habit.InterventionType, day string) bool {
	for _, e := range events {
		if e.UserID == userID && e.Kind == model.KindInterventionShown &&
			e.EventDate == day && e.ReferenceID == string(t) {
			return true
		}
	}
	return false
}
