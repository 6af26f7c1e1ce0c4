// Package window turns a flat event list and a time window into per-entity
// origin/follow-up snapshots.
package window

import (
	"sort"
	"time"

	"github.com/okian/followup/internal/domain/model"
)

// Window is the half-open aggregation range [Now-Size, Now).
type Window struct {
	Now  time.Time
	Size time.Duration
}

// Days builds a window of n whole days ending at now.
func Days(now time.Time, n int) Window {
	return Window{Now: now, Size: time.Duration(n) * 24 * time.Hour}
}

// Start returns the inclusive lower bound.
func (w Window) Start() time.Time { return w.Now.Add(-w.Size) }

// Contains reports whether t falls inside the window. The upper bound is exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start()) && t.Before(w.Now)
}

// Stats describes the input side of an aggregation.
type Stats struct {
	Considered int // events inside the window with a usable entity reference
	Skipped    int // events dropped because their timestamp could not be resolved
}

// timed pairs an event with its resolved instant.
type timed struct {
	ev model.Event
	at time.Time
}

type counter struct {
	origins   int
	followUps int
	byKind    map[model.Kind]int
	completed int
}

// Aggregate produces one snapshot per entity referenced by an origin event
// inside w. Snapshots are ordered by entity id.
func Aggregate(events []model.Event, w Window, opts ...Option) []model.Snapshot {
	snaps, _ := AggregateWithStats(events, w, opts...)
	return snaps
}

// AggregateWithStats is Aggregate that also reports skipped input.
func AggregateWithStats(events []model.Event, w Window, opts ...Option) ([]model.Snapshot, Stats) {
	cfg := newConfig(opts)
	counters, stats := count(events, w, cfg, false)

	out := make([]model.Snapshot, 0, len(counters))
	for _, id := range sortedKeys(counters) {
		out = append(out, toSnapshot(id, counters[id], w.Now))
	}
	return out, stats
}

// AggregateROI aggregates content views and their conversion to completion.
// A view converts when the same user completes the same entity within
// [view, view+24h]. An explicit origin filter overrides content_viewed.
func AggregateROI(events []model.Event, w Window, opts ...Option) []model.ROISnapshot {
	cfg := newConfig(opts)
	if cfg.originFilter == "" {
		cfg.originFilter = model.KindContentViewed
	}
	counters, _ := count(events, w, cfg, true)

	out := make([]model.ROISnapshot, 0, len(counters))
	for _, id := range sortedKeys(counters) {
		c := counters[id]
		out = append(out, model.ROISnapshot{
			Snapshot:        toSnapshot(id, c, w.Now),
			CompletionCount: c.completed,
			CompletionRate:  model.Rate(c.completed, c.origins),
		})
	}
	return out
}

// Find returns the snapshot for entityID, or an empty one when the entity
// had no origin events in the window.
func Find(snaps []model.Snapshot, entityID string, at time.Time) model.Snapshot {
	for _, s := range snaps {
		if s.EntityID == entityID {
			return s
		}
	}
	return model.Snapshot{EntityID: entityID, FollowUpByKind: map[model.Kind]int{}, SnapshotAt: at}
}

// FindROI is Find for ROI snapshots.
func FindROI(snaps []model.ROISnapshot, entityID string, at time.Time) model.ROISnapshot {
	for _, s := range snaps {
		if s.EntityID == entityID {
			return s
		}
	}
	return model.ROISnapshot{Snapshot: Find(nil, entityID, at)}
}

func count(events []model.Event, w Window, cfg config, completions bool) (map[string]*counter, Stats) {
	var stats Stats
	byUser := make(map[string][]timed)
	for _, e := range events {
		if e.ReferenceID == "" {
			continue
		}
		at, err := model.TimestampOf(e)
		if err != nil {
			stats.Skipped++
			continue
		}
		if !w.Contains(at) {
			continue
		}
		stats.Considered++
		byUser[e.UserID] = append(byUser[e.UserID], timed{ev: e, at: at})
	}

	counters := make(map[string]*counter)
	for _, seq := range byUser {
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].at.Before(seq[j].at) })

		for i, o := range seq {
			if !model.IsOrigin(o.ev.Kind, cfg.originFilter) {
				continue
			}
			c := counters[o.ev.ReferenceID]
			if c == nil {
				c = &counter{byKind: make(map[model.Kind]int)}
				counters[o.ev.ReferenceID] = c
			}
			c.origins++

			end := o.at.Add(model.FollowUpWindow)
			kinds := followUpKindsIn(seq, i, o.at, end)
			if len(kinds) > 0 {
				c.followUps++
				for k := range kinds {
					c.byKind[k]++
				}
			}
			if completions && completedIn(seq, i, o, end) {
				c.completed++
			}
		}
	}
	return counters, stats
}

// followUpKindsIn collects distinct follow-up kinds in (start, end].
// seq is sorted, so the scan begins right after the origin at index i.
func followUpKindsIn(seq []timed, i int, start, end time.Time) map[model.Kind]struct{} {
	var kinds map[model.Kind]struct{}
	for j := firstAfter(seq, i, start); j < len(seq); j++ {
		f := seq[j]
		if f.at.After(end) {
			break
		}
		if !model.IsFollowUp(f.ev.Kind) {
			continue
		}
		if kinds == nil {
			kinds = make(map[model.Kind]struct{})
		}
		kinds[f.ev.Kind] = struct{}{}
	}
	return kinds
}

// completedIn reports a completion of the origin's entity in [origin, end].
func completedIn(seq []timed, i int, o timed, end time.Time) bool {
	for j := firstAtOrAfter(seq, o.at); j < len(seq); j++ {
		f := seq[j]
		if f.at.After(end) {
			break
		}
		if j != i && f.ev.Kind == model.KindContentCompleted && f.ev.ReferenceID == o.ev.ReferenceID {
			return true
		}
	}
	return false
}

// firstAfter returns the first index in seq whose instant is strictly after t.
// Events sharing the origin's instant are never follow-ups.
func firstAfter(seq []timed, i int, t time.Time) int {
	return i + 1 + sort.Search(len(seq)-i-1, func(k int) bool { return seq[i+1+k].at.After(t) })
}

func firstAtOrAfter(seq []timed, t time.Time) int {
	return sort.Search(len(seq), func(k int) bool { return !seq[k].at.Before(t) })
}

func toSnapshot(id string, c *counter, at time.Time) model.Snapshot {
	return model.Snapshot{
		EntityID:       id,
		OriginCount:    c.origins,
		FollowUpCount:  c.followUps,
		FollowUpRate:   model.Rate(c.followUps, c.origins),
		FollowUpByKind: c.byKind,
		SnapshotAt:     at,
	}
}

func sortedKeys(m map[string]*counter) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
