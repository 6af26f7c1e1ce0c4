package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
)

// Session shape constants.
const (
	activeDayChance  = 0.5
	completionChance = 0.4
	minFollowUpRate  = 0.1
	followUpSpread   = 0.7
	sessionHourMin   = 7
	sessionHourSpan  = 14
	followUpDelayMax = 180 // minutes
)

var followUpKinds = []model.Kind{
	model.KindNextContentOpened,
	model.KindReviewStarted,
	model.KindQuizStarted,
	model.KindNoteCreated,
}

// LessonID names lesson i of the simulated catalog.
func LessonID(i int) string {
	return fmt.Sprintf("lesson-%03d", i)
}

// followUpChance spreads lessons from weak to strong so rankings separate.
func followUpChance(lesson, lessons int) float64 {
	if lessons <= 1 {
		return minFollowUpRate + followUpSpread/2
	}
	return minFollowUpRate + followUpSpread*float64(lesson)/float64(lessons-1)
}

// Generate builds the sessions of every user over the configured days.
// Each active day has one view, and sometimes a follow-up and a completion
// of the same lesson.
func Generate(cfg *Config) []types.EventRequest {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	end := cfg.Now.UTC().Truncate(24 * time.Hour)

	var out []types.EventRequest
	for u := 0; u < cfg.Users; u++ {
		user := fmt.Sprintf("learner-%05d", u)
		for d := cfg.Days; d >= 1; d-- {
			if rng.Float64() >= activeDayChance {
				continue
			}
			lesson := rng.IntN(max(cfg.Lessons, 1))
			start := end.AddDate(0, 0, -d).
				Add(time.Duration(sessionHourMin+rng.IntN(sessionHourSpan)) * time.Hour).
				Add(time.Duration(rng.IntN(60)) * time.Minute)

			out = append(out, event(user, model.KindContentViewed, LessonID(lesson), start))
			if rng.Float64() < followUpChance(lesson, cfg.Lessons) {
				kind := followUpKinds[rng.IntN(len(followUpKinds))]
				at := start.Add(time.Duration(1+rng.IntN(followUpDelayMax)) * time.Minute)
				out = append(out, event(user, kind, LessonID(lesson), at))
			}
			if rng.Float64() < completionChance {
				at := start.Add(time.Duration(1+rng.IntN(followUpDelayMax)) * time.Minute)
				out = append(out, event(user, model.KindContentCompleted, LessonID(lesson), at))
			}
		}
	}
	return out
}

func event(user string, kind model.Kind, lesson string, at time.Time) types.EventRequest {
	return types.EventRequest{
		ID:          uuid.NewString(),
		UserID:      user,
		Kind:        string(kind),
		ReferenceID: lesson,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
}

// Batches splits events into request bodies of at most size events.
func Batches(events []types.EventRequest, size int) []Batch {
	if size < 1 {
		size = 1
	}
	out := make([]Batch, 0, (len(events)+size-1)/size)
	for start := 0; start < len(events); start += size {
		out = append(out, Batch(events[start:min(start+size, len(events))]))
	}
	return out
}
