// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout of Event.EventDate.
const DateLayout = "2006-01-02"

// Kind identifies what a learner did.
type Kind string

// Event kinds understood by the analytics core.
const (
	KindContentViewed     Kind = "content_viewed"
	KindContentCompleted  Kind = "content_completed"
	KindNextContentOpened Kind = "next_content_opened"
	KindReviewStarted     Kind = "review_started"
	KindQuizStarted       Kind = "quiz_started"
	KindNoteCreated       Kind = "note_created"

	// KindInterventionShown records that a habit nudge was displayed.
	KindInterventionShown Kind = "intervention_shown"
	// KindLifecycleApplied marks a remediation decision as executed.
	// ReferenceID carries the lifecycle reference string.
	KindLifecycleApplied Kind = "lifecycle_applied"
)

// review_started is both an origin and a follow-up.
var (
	originKinds = map[Kind]struct{}{
		KindContentViewed:    {},
		KindContentCompleted: {},
		KindReviewStarted:    {},
	}
	followUpKinds = map[Kind]struct{}{
		KindNextContentOpened: {},
		KindReviewStarted:     {},
		KindQuizStarted:       {},
		KindNoteCreated:       {},
	}
)

// Event represents a single entry of the append-only learning event log.
type Event struct {
	ID          string    // assigned by the store when empty
	UserID      string    // learner identifier
	Kind        Kind      // what happened
	EventDate   string    // calendar day in UTC, YYYY-MM-DD
	ReferenceID string    // entity identifier, optional
	OccurredAt  time.Time // precise instant, zero when unknown
}

// TimestampOf resolves a comparable instant for e. OccurredAt wins when set;
// otherwise the event is placed at midnight UTC of its EventDate.
func TimestampOf(e Event) (time.Time, error) {
	if !e.OccurredAt.IsZero() {
		return e.OccurredAt.UTC(), nil
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(e.EventDate), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: event %q has unparseable date %q", ErrInvalidInput, e.ID, e.EventDate)
	}
	return day, nil
}

// IsOrigin reports whether kind starts a content-consumption session.
// A non-empty filter restricts the match to that single kind.
func IsOrigin(kind, filter Kind) bool {
	if filter != "" {
		return kind == filter
	}
	_, ok := originKinds[kind]
	return ok
}

// IsFollowUp reports whether kind counts as subsequent engagement.
func IsFollowUp(kind Kind) bool {
	_, ok := followUpKinds[kind]
	return ok
}

// Validate checks the fields every stored event must carry.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.UserID) == "":
		return fmt.Errorf("%w: missing user_id", ErrInvalidInput)
	case strings.TrimSpace(string(e.Kind)) == "":
		return fmt.Errorf("%w: missing kind", ErrInvalidInput)
	case e.EventDate == "" && e.OccurredAt.IsZero():
		return fmt.Errorf("%w: missing event_date", ErrInvalidInput)
	}
	if e.EventDate != "" {
		if _, err := time.Parse(DateLayout, e.EventDate); err != nil {
			return fmt.Errorf("%w: invalid event_date %q", ErrInvalidInput, e.EventDate)
		}
		if !e.OccurredAt.IsZero() && e.EventDate != Day(e.OccurredAt) {
			return fmt.Errorf("%w: event_date %q is not the UTC day of occurred_at %s",
				ErrInvalidInput, e.EventDate, e.OccurredAt.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// Normalize fills EventDate from OccurredAt when only the instant is known.
func (e Event) Normalize() Event {
	if e.EventDate == "" && !e.OccurredAt.IsZero() {
		e.EventDate = e.OccurredAt.UTC().Format(DateLayout)
	}
	if !e.OccurredAt.IsZero() {
		e.OccurredAt = e.OccurredAt.UTC()
	}
	return e
}

// Day returns the UTC calendar day containing t.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
