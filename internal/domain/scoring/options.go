package scoring

import "github.com/okian/followup/internal/domain/model"

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithStrategyWeights sets difficulty weights from a configuration map.
// Non-positive weights are ignored and keep their default.
func WithStrategyWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		// Copy to avoid external modifications
		merged := DefaultStrategyWeights()
		for tier, w := range weights {
			if w > 0 {
				merged[model.Difficulty(tier)] = w
			}
		}
		s.strategyWeights = merged
	}
}

// WithImpactBounds sets the clamp range of the impact weight.
func WithImpactBounds(minImpact, maxImpact float64) Option {
	return func(s *Scorer) {
		if minImpact > 0 && maxImpact >= minImpact {
			s.minImpact = minImpact
			s.maxImpact = maxImpact
		}
	}
}

// WithMinSample sets the origin count below which an item is quarantined.
func WithMinSample(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.minSample = n
		}
	}
}
