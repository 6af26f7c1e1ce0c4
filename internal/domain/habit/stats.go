package habit

import (
	"time"

	"github.com/okian/followup/internal/domain/model"
)

// IsActivity reports whether kind counts as studying for the habit score.
// Display and lifecycle markers do not.
func IsActivity(kind model.Kind) bool {
	return model.IsOrigin(kind, "") || model.IsFollowUp(kind)
}

// StatsFrom derives habit stats for userID as of the UTC day containing today.
// Events with unparseable dates are ignored.
func StatsFrom(events []model.Event, userID string, today time.Time, weeklyTarget int) Stats {
	active := make(map[string]struct{})
	for _, e := range events {
		if e.UserID != userID || !IsActivity(e.Kind) {
			continue
		}
		ts, err := model.TimestampOf(e)
		if err != nil {
			continue
		}
		active[model.Day(ts)] = struct{}{}
	}

	day := truncateDay(today)
	on := func(t time.Time) bool {
		_, ok := active[model.Day(t)]
		return ok
	}

	s := Stats{WeeklyTarget: weeklyTarget, ActiveToday: on(day)}

	for i := 0; i < 7; i++ {
		if on(day.AddDate(0, 0, -i)) {
			s.RecentActiveDays++
		}
	}

	// A streak still counts when today has no activity yet.
	cursor := day
	if !s.ActiveToday {
		cursor = day.AddDate(0, 0, -1)
	}
	for on(cursor) {
		s.CurrentStreak++
		cursor = cursor.AddDate(0, 0, -1)
	}

	monday := day.AddDate(0, 0, -daysSinceMonday(day))
	for d := monday; !d.After(day); d = d.AddDate(0, 0, 1) {
		if on(d) {
			s.WeeklyProgress++
		}
	}
	// days that can still add progress; today is spent once it counts
	s.DaysLeftInWeek = 7 - daysSinceMonday(day)
	if s.ActiveToday {
		s.DaysLeftInWeek--
	}
	return s
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
