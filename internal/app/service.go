// Package service wires the event store, the ingestion pipeline and the
// analytics core behind the operations the HTTP API and CLI expose.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/followup/internal/adapters/mq/queue"
	"github.com/okian/followup/internal/adapters/mq/worker"
	"github.com/okian/followup/internal/adapters/repository"
	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/lifecycle"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/scoring"
	"github.com/okian/followup/pkg/logger"
	"github.com/okian/followup/pkg/metrics"
)

// Service implements the API dependencies for the follow-up analytics system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	queue  *queue.InMemoryQueue
	pool   *worker.Pool
	guard  *lifecycle.Guard
	scorer *scoring.Scorer
	habits *habit.Engine

	// Configuration
	workerCount     int
	queueSize       int
	windowDays      int
	minSample       int
	rankingLimit    int
	maxRankingLimit int
	threshold       int
	weeklyTarget    int
	entityKind      string
	scoringOpts     []scoring.Option
	habitCfg        habit.Config
	now             func() time.Time

	// State
	started bool
	shownMu sync.Mutex

	logger logger.Logger
}

// New constructs a Service. It fails when the habit configuration is
// incomplete.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		windowDays:      14,
		minSample:       model.DefaultMinSample,
		rankingLimit:    10,
		maxRankingLimit: 100,
		threshold:       5,
		weeklyTarget:    5,
		entityKind:      lifecycle.DefaultEntityKind,
		habitCfg:        habit.DefaultConfig(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	engine, err := habit.NewEngine(s.habitCfg)
	if err != nil {
		return nil, fmt.Errorf("habit engine: %w", err)
	}
	s.habits = engine
	s.scorer = scoring.NewScorer(append([]scoring.Option{scoring.WithMinSample(s.minSample)}, s.scoringOpts...)...)
	s.guard = lifecycle.NewGuard()
	return s, nil
}

// Start seeds the lifecycle guard from the store and starts the ingestion
// workers. Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting follow-up service...")

	applied, err := s.store.AppliedDecisions(ctx)
	if err != nil {
		return fmt.Errorf("load applied decisions: %w", err)
	}
	s.guard.Merge(applied)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store)
	// workers stop when the queue closes, not when the caller's ctx ends
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "follow-up service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("appliedDecisions", int(s.guard.Size())),
	)
	return nil
}

// Stop drains the ingestion queue and stops the workers. The store is left
// open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping follow-up service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "ingestion did not drain", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "follow-up service stopped")
	return nil
}

// Enqueue validates every event and then submits them for asynchronous
// storage. It returns how many were accepted before an enqueue failure.
func (s *Service) Enqueue(ctx context.Context, events []model.Event) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return 0, ErrNotStarted
	}
	for i, e := range events {
		if err := e.Normalize().Validate(); err != nil {
			metrics.RecordEventSkipped("invalid", 1)
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
	}

	for i, e := range events {
		if err := s.queue.Enqueue(ctx, e.Normalize()); err != nil {
			s.logger.Warn(ctx, "enqueue rejected",
				logger.Int("accepted", i),
				logger.Int("batch", len(events)),
				logger.Error(err),
			)
			return i, err
		}
	}
	s.logger.Debug(ctx, "events enqueued", logger.Int("count", len(events)))
	return len(events), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"windowDays":       s.windowDays,
		"minSample":        s.minSample,
		"appliedDecisions": s.guard.Size(),
	}

	if n, err := s.store.Count(ctx); err == nil {
		stats["storedEvents"] = n
		metrics.UpdateStoreEvents(n)
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["activeWorkers"] = s.pool.Active()
	}
	return stats
}

// MaxRankingLimit is the largest list length a caller may request.
func (s *Service) MaxRankingLimit() int {
	return s.maxRankingLimit
}

func (s *Service) observe(op string, start time.Time) {
	metrics.RecordComputationLatency(op, float64(time.Since(start).Milliseconds()))
}

func (s *Service) catalog(ctx context.Context) (map[string]model.CatalogEntry, error) {
	entries, err := s.store.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return model.IndexCatalog(entries), nil
}
