// Package types contains the JSON shapes shared by the API and the service.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/followup/internal/domain/evaluation"
	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/ranking"
	"github.com/okian/followup/internal/domain/scoring"
)

// RankingQuery selects the window and list length of a ranking.
// Zero values fall back to the service defaults.
type RankingQuery struct {
	Days   int
	Limit  int
	Origin string // restricts origins to one kind
}

// EvaluationQuery selects the before and after windows of an evaluation:
// before is [Split-Days, Split) and after is [Split, Split+Days).
// A zero Split places the after window at the end of the default window.
type EvaluationQuery struct {
	EntityID string
	Split    time.Time
	Days     int
}

// EventRequest is one event as posted to the ingestion endpoint.
type EventRequest struct {
	ID          string `json:"id,omitempty"`
	UserID      string `json:"user_id"`
	Kind        string `json:"kind"`
	EventDate   string `json:"event_date,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	OccurredAt  string `json:"occurred_at,omitempty"` // RFC3339
}

// ToModel converts the request into a validated, normalized event.
func (r EventRequest) ToModel() (model.Event, error) {
	e := model.Event{
		ID:          strings.TrimSpace(r.ID),
		UserID:      strings.TrimSpace(r.UserID),
		Kind:        model.Kind(strings.TrimSpace(r.Kind)),
		EventDate:   strings.TrimSpace(r.EventDate),
		ReferenceID: strings.TrimSpace(r.ReferenceID),
	}
	if r.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, r.OccurredAt)
		if err != nil {
			return model.Event{}, fmt.Errorf("%w: occurred_at must be RFC3339", model.ErrInvalidInput)
		}
		e.OccurredAt = t.UTC()
	}
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// IngestResponse acknowledges a batch of events.
type IngestResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// Snapshot is the wire form of model.Snapshot.
type Snapshot struct {
	EntityID       string         `json:"entity_id"`
	OriginCount    int            `json:"origin_count"`
	FollowUpCount  int            `json:"follow_up_count"`
	FollowUpRate   int            `json:"follow_up_rate"`
	FollowUpByKind map[string]int `json:"follow_up_by_kind"`
	SnapshotAt     time.Time      `json:"snapshot_at"`

	CompletionCount *int `json:"completion_count,omitempty"`
	CompletionRate  *int `json:"completion_rate,omitempty"`
}

// FromSnapshot converts a domain snapshot.
func FromSnapshot(s model.Snapshot) Snapshot {
	byKind := make(map[string]int, len(s.FollowUpByKind))
	for k, v := range s.FollowUpByKind {
		byKind[string(k)] = v
	}
	return Snapshot{
		EntityID:       s.EntityID,
		OriginCount:    s.OriginCount,
		FollowUpCount:  s.FollowUpCount,
		FollowUpRate:   s.FollowUpRate,
		FollowUpByKind: byKind,
		SnapshotAt:     s.SnapshotAt.UTC(),
	}
}

// FromROISnapshot converts a domain ROI snapshot.
func FromROISnapshot(s model.ROISnapshot) Snapshot {
	out := FromSnapshot(s.Snapshot)
	count, rate := s.CompletionCount, s.CompletionRate
	out.CompletionCount = &count
	out.CompletionRate = &rate
	return out
}

// RankingRow is one line of a best or worst list.
type RankingRow struct {
	EntityID      string `json:"entity_id"`
	Title         string `json:"title,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	OriginCount   int    `json:"origin_count"`
	FollowUpCount int    `json:"follow_up_count"`
	FollowUpRate  int    `json:"follow_up_rate"`
	IsLowSample   bool   `json:"is_low_sample"`
}

// Rankings is the response of the rankings endpoint.
type Rankings struct {
	WindowStart  time.Time    `json:"window_start"`
	WindowEnd    time.Time    `json:"window_end"`
	OriginFilter string       `json:"origin_filter,omitempty"`
	Best         []RankingRow `json:"best"`
	Worst        []RankingRow `json:"worst"`
}

// FromRanking converts a ranking result.
func FromRanking(r ranking.Result) (best, worst []RankingRow) {
	return rows(r.Best), rows(r.Worst)
}

func rows(in []ranking.Row) []RankingRow {
	out := make([]RankingRow, 0, len(in))
	for _, r := range in {
		out = append(out, RankingRow{
			EntityID:      r.EntityID,
			Title:         r.Title,
			Difficulty:    string(r.Difficulty),
			OriginCount:   r.OriginCount,
			FollowUpCount: r.FollowUpCount,
			FollowUpRate:  r.FollowUpRate,
			IsLowSample:   r.IsLowSample,
		})
	}
	return out
}

// Priority is one entry of the remediation queue. Rank starts at 1.
type Priority struct {
	Rank           int     `json:"rank"`
	EntityID       string  `json:"entity_id"`
	Title          string  `json:"title,omitempty"`
	Score          float64 `json:"score"`
	ROIScore       float64 `json:"roi_score"`
	ImpactWeight   float64 `json:"impact_weight"`
	StrategyWeight float64 `json:"strategy_weight"`
	OriginCount    int     `json:"origin_count"`
	IsLowSample    bool    `json:"is_low_sample"`
}

// FromScores converts ordered scoring results.
func FromScores(results []scoring.Result, catalog map[string]model.CatalogEntry) []Priority {
	out := make([]Priority, 0, len(results))
	for i, r := range results {
		out = append(out, Priority{
			Rank:           i + 1,
			EntityID:       r.EntityID,
			Title:          catalog[r.EntityID].Title,
			Score:          r.Score,
			ROIScore:       r.ROIScore,
			ImpactWeight:   r.ImpactWeight,
			StrategyWeight: r.StrategyWeight,
			OriginCount:    r.OriginCount,
			IsLowSample:    r.IsLowSample,
		})
	}
	return out
}

// Evaluation is the response of the evaluation endpoints.
type Evaluation struct {
	EntityID    string   `json:"entity_id"`
	Status      string   `json:"status"`
	DeltaRate   int      `json:"delta_rate"`
	IsLowSample bool     `json:"is_low_sample"`
	Before      Snapshot `json:"before"`
	After       Snapshot `json:"after"`

	CompletionStatus    string `json:"completion_status,omitempty"`
	CompletionDeltaRate *int   `json:"completion_delta_rate,omitempty"`
}

// FromDelta converts a follow-up delta.
func FromDelta(d evaluation.Delta) Evaluation {
	return Evaluation{
		EntityID:    d.After.EntityID,
		Status:      string(d.Status),
		DeltaRate:   d.DeltaRate,
		IsLowSample: d.IsLowSample,
		Before:      FromSnapshot(d.Before),
		After:       FromSnapshot(d.After),
	}
}

// FromROIDelta converts an ROI delta.
func FromROIDelta(d evaluation.ROIDelta) Evaluation {
	cd := d.CompletionDeltaRate
	return Evaluation{
		EntityID:            d.After.EntityID,
		Status:              string(d.Status),
		DeltaRate:           d.DeltaRate,
		IsLowSample:         d.IsLowSample,
		Before:              FromROISnapshot(d.Before),
		After:               FromROISnapshot(d.After),
		CompletionStatus:    string(d.CompletionStatus),
		CompletionDeltaRate: &cd,
	}
}

// HabitReport is the habit state of one user.
type HabitReport struct {
	UserID       string             `json:"user_id"`
	Date         string             `json:"date"`
	Stats        habit.Stats        `json:"stats"`
	Score        habit.Score        `json:"score"`
	Intervention habit.Intervention `json:"intervention"`
	// ShouldLog is true when the client should report the intervention as shown.
	ShouldLog bool `json:"should_log"`
}

// ShownRequest reports that an intervention was displayed.
type ShownRequest struct {
	Type string `json:"type"`
}

// ShownResponse tells whether a display was recorded or debounced.
type ShownResponse struct {
	Type     string `json:"type"`
	Recorded bool   `json:"recorded"`
}

// DecisionRequest asks for a lifecycle decision to be applied.
type DecisionRequest struct {
	EntityKind string `json:"entity_kind,omitempty"`
	EntityID   string `json:"entity_id"`
	Decision   string `json:"decision"`
	Actor      string `json:"actor,omitempty"`
}

// Decision outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
)

// DecisionResult reports what happened to a decision.
type DecisionResult struct {
	Reference string `json:"reference"`
	Outcome   string `json:"outcome"`
}

// LifecycleStatus tells whether a decision was already applied.
type LifecycleStatus struct {
	Reference string `json:"reference"`
	Applied   bool   `json:"applied"`
}
