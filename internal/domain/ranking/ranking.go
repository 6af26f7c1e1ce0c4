// Package ranking orders entity snapshots into best and worst effectiveness lists.
package ranking

import (
	"sort"

	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/window"
)

const defaultLimit = 10

// Row is a snapshot decorated with catalog metadata.
type Row struct {
	model.Snapshot
	Title       string
	Difficulty  model.Difficulty
	IsLowSample bool
}

// Result holds both orderings of the same rows.
type Result struct {
	Best  []Row
	Worst []Row
}

// Option applies a configuration option to a ranking.
type Option func(*options)

type options struct {
	limit        int
	minSample    int
	originFilter model.Kind
}

// WithLimit truncates both lists to n rows.
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithMinSample sets the origin count below which a row is flagged low-sample.
func WithMinSample(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minSample = n
		}
	}
}

// WithOriginFilter restricts Compute to a single origin kind.
func WithOriginFilter(kind model.Kind) Option {
	return func(o *options) {
		o.originFilter = kind
	}
}

func newOptions(opts []Option) options {
	o := options{limit: defaultLimit, minSample: model.DefaultMinSample}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Rank builds best and worst lists from snapshots. Entities without origins
// are excluded. Ties resolve by origin count and then entity id ascending.
func Rank(snapshots []model.Snapshot, catalog map[string]model.CatalogEntry, opts ...Option) Result {
	o := newOptions(opts)

	rows := make([]Row, 0, len(snapshots))
	for _, s := range snapshots {
		if s.OriginCount == 0 {
			continue
		}
		meta := catalog[s.EntityID]
		rows = append(rows, Row{
			Snapshot:    s,
			Title:       meta.Title,
			Difficulty:  meta.Difficulty,
			IsLowSample: s.OriginCount < o.minSample,
		})
	}

	best := append([]Row(nil), rows...)
	sort.Slice(best, func(i, j int) bool { return bestLess(best[i], best[j]) })

	worst := append([]Row(nil), rows...)
	sort.Slice(worst, func(i, j int) bool { return worstLess(worst[i], worst[j]) })

	return Result{Best: truncate(best, o.limit), Worst: truncate(worst, o.limit)}
}

// Compute aggregates events over w and ranks the result.
func Compute(events []model.Event, w window.Window, catalog map[string]model.CatalogEntry, opts ...Option) Result {
	o := newOptions(opts)
	snaps := window.Aggregate(events, w, window.WithOriginFilter(o.originFilter))
	return Rank(snaps, catalog, opts...)
}

func bestLess(a, b Row) bool {
	if a.FollowUpRate != b.FollowUpRate {
		return a.FollowUpRate > b.FollowUpRate
	}
	if a.OriginCount != b.OriginCount {
		return a.OriginCount > b.OriginCount
	}
	return a.EntityID < b.EntityID
}

func worstLess(a, b Row) bool {
	if a.FollowUpRate != b.FollowUpRate {
		return a.FollowUpRate < b.FollowUpRate
	}
	if a.OriginCount != b.OriginCount {
		return a.OriginCount < b.OriginCount
	}
	return a.EntityID < b.EntityID
}

func truncate(rows []Row, n int) []Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
