package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/okian/followup/internal/adapters/repository"
	service "github.com/okian/followup/internal/app"
	"github.com/okian/followup/internal/config"
	"github.com/okian/followup/internal/domain/scoring"
	"github.com/okian/followup/pkg/logger"
)

// instance holds everything a command needs once configuration is loaded.
type instance struct {
	cfg   *config.Config
	store repository.Store
	svc   *service.Service
	log   logger.Logger
}

// bootstrap loads configuration, initializes logging to logOut, opens the
// store and builds the service. The caller must close the instance.
func bootstrap(ctx context.Context, logOut io.Writer) (*instance, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
		logger.WithWriter(logOut),
	); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CatalogPath != "" {
		entries, err := repository.LoadCatalog(cfg.CatalogPath)
		if err == nil {
			err = store.PutCatalog(ctx, entries)
		}
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		log.Info(ctx, "catalog loaded", logger.String("path", cfg.CatalogPath), logger.Int("entries", len(entries)))
	}

	svc, err := service.New(
		service.WithStore(store),
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithWindowDays(cfg.WindowDays),
		service.WithMinSample(cfg.MinSample),
		service.WithRankingLimits(cfg.RankingLimit, cfg.MaxRankingLimit),
		service.WithThreshold(cfg.ImprovementThreshold),
		service.WithScoringOptions(
			scoring.WithImpactBounds(cfg.ImpactMin, cfg.ImpactMax),
			scoring.WithStrategyWeights(cfg.StrategyWeights),
		),
		service.WithHabitConfig(cfg.Habit()),
		service.WithWeeklyTarget(cfg.WeeklyTarget),
		service.WithEntityKind(cfg.EntityKind),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &instance{cfg: cfg, store: store, svc: svc, log: log}, nil
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := repository.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// Close stops the service and closes the store.
func (r *instance) Close(ctx context.Context) error {
	return errors.Join(r.svc.Stop(ctx), r.store.Close())
}
