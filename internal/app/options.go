package service

import (
	"time"

	"github.com/okian/followup/internal/adapters/repository"
	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/scoring"
	"github.com/okian/followup/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the event store. The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWindowDays sets the default aggregation window.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithMinSample sets the origin count below which results are low-sample.
func WithMinSample(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSample = n
		}
	}
}

// WithRankingLimits sets the default and maximum list length.
func WithRankingLimits(limit, maxLimit int) Option {
	return func(s *Service) {
		if limit > 0 && maxLimit >= limit {
			s.rankingLimit = limit
			s.maxRankingLimit = maxLimit
		}
	}
}

// WithThreshold sets the evaluation threshold in percentage points.
func WithThreshold(pp int) Option {
	return func(s *Service) {
		if pp > 0 {
			s.threshold = pp
		}
	}
}

// WithScoringOptions forwards options to the priority scorer.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scoringOpts = append(s.scoringOpts, opts...)
	}
}

// WithHabitConfig replaces the habit engine configuration.
func WithHabitConfig(cfg habit.Config) Option {
	return func(s *Service) {
		s.habitCfg = cfg
	}
}

// WithWeeklyTarget sets the number of active days expected per week.
func WithWeeklyTarget(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.weeklyTarget = days
		}
	}
}

// WithEntityKind sets the kind used in lifecycle references.
func WithEntityKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.entityKind = kind
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
