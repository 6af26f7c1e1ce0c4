package service

import (
	"context"
	"fmt"

	"github.com/okian/followup/internal/domain/lifecycle"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
	"github.com/okian/followup/pkg/metrics"
)

const defaultActor = "system"

// LifecycleStatus reports whether a decision was already applied to an entity.
func (s *Service) LifecycleStatus(ctx context.Context, entityKind, entityID, decision string) (types.LifecycleStatus, error) {
	r, err := s.reference(entityKind, entityID, decision)
	if err != nil {
		return types.LifecycleStatus{}, err
	}
	if err := s.syncApplied(ctx); err != nil {
		return types.LifecycleStatus{}, err
	}
	return types.LifecycleStatus{Reference: r.String(), Applied: s.guard.ShouldSkip(ctx, r)}, nil
}

// ApplyDecision records a decision exactly once. A repeated decision is
// reported as skipped; a failed marker append releases the reference so the
// caller may retry.
func (s *Service) ApplyDecision(ctx context.Context, req types.DecisionRequest) (types.DecisionResult, error) {
	r, err := s.reference(req.EntityKind, req.EntityID, req.Decision)
	if err != nil {
		return types.DecisionResult{}, err
	}
	if err := s.syncApplied(ctx); err != nil {
		return types.DecisionResult{}, err
	}

	if s.guard.Record(ctx, r) {
		metrics.RecordLifecycleDecision(string(r.Decision), types.OutcomeSkipped)
		s.logger.Info(ctx, "decision already applied", logger.String("reference", r.String()))
		return types.DecisionResult{Reference: r.String(), Outcome: types.OutcomeSkipped}, nil
	}

	actor := req.Actor
	if actor == "" {
		actor = defaultActor
	}
	if err := s.store.Append(ctx, lifecycle.Marker(r, actor, model.Day(s.now()))); err != nil {
		s.guard.Unrecord(ctx, r)
		metrics.RecordLifecycleDecision(string(r.Decision), "failed")
		return types.DecisionResult{}, fmt.Errorf("append lifecycle marker: %w", err)
	}

	metrics.RecordLifecycleDecision(string(r.Decision), types.OutcomeApplied)
	s.logger.Info(ctx, "decision applied", logger.String("reference", r.String()), logger.String("actor", actor))
	return types.DecisionResult{Reference: r.String(), Outcome: types.OutcomeApplied}, nil
}

func (s *Service) reference(entityKind, entityID, decision string) (lifecycle.Reference, error) {
	if entityKind == "" {
		entityKind = s.entityKind
	}
	r := lifecycle.Reference{EntityKind: entityKind, EntityID: entityID, Decision: lifecycle.Decision(decision)}
	if err := r.Validate(); err != nil {
		return lifecycle.Reference{}, err
	}
	return r, nil
}

// syncApplied folds markers that reached the store through ingestion into
// the guard.
func (s *Service) syncApplied(ctx context.Context) error {
	applied, err := s.store.AppliedDecisions(ctx)
	if err != nil {
		return fmt.Errorf("load applied decisions: %w", err)
	}
	s.guard.Merge(applied)
	return nil
}
