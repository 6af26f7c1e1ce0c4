// Package scoring turns improvement potential into an ordered remediation queue.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/followup/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultStrategyWeight = 1.0
	defaultMinImpact      = 0.5
	defaultMaxImpact      = 2.0
	maxROIScore           = 100
)

// DefaultStrategyWeights favors beginner content, whose audience is larger.
func DefaultStrategyWeights() map[model.Difficulty]float64 {
	return map[model.Difficulty]float64{
		model.DifficultyBeginner:     1.2,
		model.DifficultyIntermediate: 1.0,
		model.DifficultyAdvanced:     0.9,
	}
}

// Input abstracts the entity fields needed for prioritisation.
type Input struct {
	EntityID    string
	ROIScore    float64 // improvement potential, 0-100
	OriginCount int
	Difficulty  model.Difficulty
}

// Result contains the computed priority for an entity.
type Result struct {
	EntityID       string
	Score          float64
	ROIScore       float64
	ImpactWeight   float64
	StrategyWeight float64
	OriginCount    int
	IsLowSample    bool
}

// Scorer computes priority scores. It is safe for concurrent use once built.
type Scorer struct {
	strategyWeights map[model.Difficulty]float64
	minImpact       float64
	maxImpact       float64
	minSample       int
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		strategyWeights: DefaultStrategyWeights(),
		minImpact:       defaultMinImpact,
		maxImpact:       defaultMaxImpact,
		minSample:       model.DefaultMinSample,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImpactWeight is log10(originCount+1) clamped to the scorer's bounds.
func (s *Scorer) ImpactWeight(originCount int) float64 {
	if originCount < 0 {
		originCount = 0
	}
	w := math.Log10(float64(originCount) + 1)
	return math.Max(s.minImpact, math.Min(s.maxImpact, w))
}

// StrategyWeight looks up the difficulty tier; unknown tiers weigh 1.0.
func (s *Scorer) StrategyWeight(d model.Difficulty) float64 {
	if w, ok := s.strategyWeights[d]; ok {
		return w
	}
	return defaultStrategyWeight
}

// Score computes roiScore * impactWeight * strategyWeight for one entity.
func (s *Scorer) Score(in Input) Result {
	roi := math.Max(0, math.Min(maxROIScore, in.ROIScore))
	impact := s.ImpactWeight(in.OriginCount)
	strategy := s.StrategyWeight(in.Difficulty)

	return Result{
		EntityID:       in.EntityID,
		Score:          roi * impact * strategy,
		ROIScore:       roi,
		ImpactWeight:   impact,
		StrategyWeight: strategy,
		OriginCount:    in.OriginCount,
		IsLowSample:    in.OriginCount < s.minSample,
	}
}

// Rank scores every input and orders them for remediation. Low-sample items
// always sort last; the rest order by score, roi, origin count (all desc) and
// then entity id ascending. limit <= 0 keeps every item.
func (s *Scorer) Rank(inputs []Input, limit int) []Result {
	out := make([]Result, len(inputs))
	for i, in := range inputs {
		out[i] = s.Score(in)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func less(a, b Result) bool {
	if a.IsLowSample != b.IsLowSample {
		return !a.IsLowSample
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ROIScore != b.ROIScore {
		return a.ROIScore > b.ROIScore
	}
	if a.OriginCount != b.OriginCount {
		return a.OriginCount > b.OriginCount
	}
	return a.EntityID < b.EntityID
}

// InputsFromSnapshots derives improvement potential as 100 minus the
// follow-up rate. Entities without origins carry no signal and are dropped.
func InputsFromSnapshots(snaps []model.Snapshot, catalog map[string]model.CatalogEntry) []Input {
	out := make([]Input, 0, len(snaps))
	for _, sn := range snaps {
		if sn.OriginCount == 0 {
			continue
		}
		out = append(out, Input{
			EntityID:    sn.EntityID,
			ROIScore:    float64(maxROIScore - sn.FollowUpRate),
			OriginCount: sn.OriginCount,
			Difficulty:  catalog[sn.EntityID].Difficulty,
		})
	}
	return out
}
