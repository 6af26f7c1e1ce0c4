package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/followup/internal/adapters/repository"
	"github.com/okian/followup/internal/domain/evaluation"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/ranking"
	"github.com/okian/followup/internal/domain/scoring"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/internal/domain/window"
	"github.com/okian/followup/pkg/metrics"
)

// Rankings returns the best and worst entities by follow-up rate.
func (s *Service) Rankings(ctx context.Context, q types.RankingQuery) (types.Rankings, error) {
	defer s.observe("rankings", time.Now())

	q, err := s.resolveRanking(q)
	if err != nil {
		return types.Rankings{}, err
	}
	w := window.Days(s.now().UTC(), q.Days)
	snaps, cat, err := s.aggregate(ctx, w, model.Kind(q.Origin))
	if err != nil {
		return types.Rankings{}, err
	}

	res := ranking.Rank(snaps, cat, ranking.WithLimit(q.Limit), ranking.WithMinSample(s.minSample))
	best, worst := types.FromRanking(res)
	return types.Rankings{
		WindowStart:  w.Start(),
		WindowEnd:    w.Now,
		OriginFilter: q.Origin,
		Best:         best,
		Worst:        worst,
	}, nil
}

// Priorities returns the remediation queue, highest priority first.
func (s *Service) Priorities(ctx context.Context, q types.RankingQuery) ([]types.Priority, error) {
	defer s.observe("priorities", time.Now())

	q, err := s.resolveRanking(q)
	if err != nil {
		return nil, err
	}
	w := window.Days(s.now().UTC(), q.Days)
	snaps, cat, err := s.aggregate(ctx, w, model.Kind(q.Origin))
	if err != nil {
		return nil, err
	}

	results := s.scorer.Rank(scoring.InputsFromSnapshots(snaps, cat), q.Limit)
	return types.FromScores(results, cat), nil
}

// Evaluate compares the follow-up rate of one entity before and after a split.
func (s *Service) Evaluate(ctx context.Context, q types.EvaluationQuery) (types.Evaluation, error) {
	d, _, err := s.evaluate(ctx, q)
	if err != nil {
		return types.Evaluation{}, err
	}
	return types.FromDelta(d), nil
}

// EvaluationReport renders Evaluate as markdown.
func (s *Service) EvaluationReport(ctx context.Context, q types.EvaluationQuery) (string, error) {
	d, meta, err := s.evaluate(ctx, q)
	if err != nil {
		return "", err
	}
	return evaluation.RenderReport(d, meta), nil
}

// EvaluateROI is Evaluate extended with view to completion conversion.
func (s *Service) EvaluateROI(ctx context.Context, q types.EvaluationQuery) (types.Evaluation, error) {
	d, _, err := s.evaluateROI(ctx, q)
	if err != nil {
		return types.Evaluation{}, err
	}
	return types.FromROIDelta(d), nil
}

// ROIReport renders EvaluateROI as markdown.
func (s *Service) ROIReport(ctx context.Context, q types.EvaluationQuery) (string, error) {
	d, meta, err := s.evaluateROI(ctx, q)
	if err != nil {
		return "", err
	}
	return evaluation.RenderROIReport(d, meta), nil
}

func (s *Service) evaluate(ctx context.Context, q types.EvaluationQuery) (evaluation.Delta, evaluation.ReportMeta, error) {
	defer s.observe("evaluate", time.Now())

	before, after, err := s.resolveEvaluation(&q)
	if err != nil {
		return evaluation.Delta{}, evaluation.ReportMeta{}, err
	}
	events, err := s.events(ctx, before.Start(), after.Now)
	if err != nil {
		return evaluation.Delta{}, evaluation.ReportMeta{}, err
	}

	d, err := evaluation.Compare(
		window.Find(window.Aggregate(events, before), q.EntityID, before.Now),
		window.Find(window.Aggregate(events, after), q.EntityID, after.Now),
		s.classifierOptions()...,
	)
	if err != nil {
		return evaluation.Delta{}, evaluation.ReportMeta{}, err
	}
	metrics.RecordEvaluation(string(d.Status))

	meta, err := s.reportMeta(ctx, q.EntityID)
	return d, meta, err
}

func (s *Service) evaluateROI(ctx context.Context, q types.EvaluationQuery) (evaluation.ROIDelta, evaluation.ReportMeta, error) {
	defer s.observe("evaluate_roi", time.Now())

	before, after, err := s.resolveEvaluation(&q)
	if err != nil {
		return evaluation.ROIDelta{}, evaluation.ReportMeta{}, err
	}
	events, err := s.events(ctx, before.Start(), after.Now)
	if err != nil {
		return evaluation.ROIDelta{}, evaluation.ReportMeta{}, err
	}

	d, err := evaluation.CompareROI(
		window.FindROI(window.AggregateROI(events, before), q.EntityID, before.Now),
		window.FindROI(window.AggregateROI(events, after), q.EntityID, after.Now),
		s.classifierOptions()...,
	)
	if err != nil {
		return evaluation.ROIDelta{}, evaluation.ReportMeta{}, err
	}
	metrics.RecordEvaluation(string(d.Status))

	meta, err := s.reportMeta(ctx, q.EntityID)
	return d, meta, err
}

func (s *Service) classifierOptions() []evaluation.Option {
	return []evaluation.Option{
		evaluation.WithMinSample(s.minSample),
		evaluation.WithThreshold(s.threshold),
	}
}

func (s *Service) reportMeta(ctx context.Context, entityID string) (evaluation.ReportMeta, error) {
	cat, err := s.catalog(ctx)
	if err != nil {
		return evaluation.ReportMeta{}, err
	}
	return evaluation.ReportMeta{Title: cat[entityID].Title, EntityKind: s.entityKind}, nil
}

func (s *Service) resolveRanking(q types.RankingQuery) (types.RankingQuery, error) {
	if q.Days == 0 {
		q.Days = s.windowDays
	}
	if q.Limit == 0 {
		q.Limit = s.rankingLimit
	}
	switch {
	case q.Days < 0:
		return q, fmt.Errorf("%w: days must be positive", model.ErrInvalidInput)
	case q.Limit < 0 || q.Limit > s.maxRankingLimit:
		return q, fmt.Errorf("%w: limit must be in 1..%d", model.ErrInvalidInput, s.maxRankingLimit)
	case q.Origin != "" && !model.IsOrigin(model.Kind(q.Origin), ""):
		return q, fmt.Errorf("%w: %q is not an origin kind", model.ErrInvalidInput, q.Origin)
	}
	return q, nil
}

func (s *Service) resolveEvaluation(q *types.EvaluationQuery) (before, after window.Window, err error) {
	if q.EntityID == "" {
		return before, after, fmt.Errorf("%w: missing entity id", model.ErrInvalidInput)
	}
	if q.Days == 0 {
		q.Days = s.windowDays
	}
	if q.Days < 0 {
		return before, after, fmt.Errorf("%w: days must be positive", model.ErrInvalidInput)
	}
	span := time.Duration(q.Days) * 24 * time.Hour
	if q.Split.IsZero() {
		q.Split = s.now().UTC().Add(-span)
	}
	before = window.Days(q.Split, q.Days)
	after = window.Days(q.Split.Add(span), q.Days)
	return before, after, nil
}

func (s *Service) aggregate(ctx context.Context, w window.Window, origin model.Kind) ([]model.Snapshot, map[string]model.CatalogEntry, error) {
	events, err := s.events(ctx, w.Start(), w.Now)
	if err != nil {
		return nil, nil, err
	}
	snaps, st := window.AggregateWithStats(events, w, window.WithOriginFilter(origin))
	if st.Skipped > 0 {
		metrics.RecordEventSkipped("unparseable_date", st.Skipped)
	}
	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	return snaps, cat, nil
}

// events loads every event whose day overlaps [from, to]. The window
// functions apply the exact bounds.
func (s *Service) events(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	events, err := s.store.Events(ctx, repository.Filter{From: model.Day(from), To: model.Day(to)})
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return events, nil
}
