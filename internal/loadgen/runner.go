package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
)

const directoryPermission = 0o750

// Run checks the service, submits generated sessions concurrently and reads
// the rankings back.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("lessons", cfg.Lessons),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
	)

	if err := client.GetJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	events := Generate(cfg)
	stats.EventsGenerated = len(events)
	if cfg.OutputFile != "" {
		if err := saveEvents(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	submit(ctx, client, Batches(events, cfg.BatchSize), max(cfg.Workers, 1), stats)
	log.Info(ctx, "events submitted",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failedBatches", stats.BatchesFailed),
	)

	if cfg.SettleTime > 0 {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(cfg.SettleTime):
		}
	}

	var rankings types.Rankings
	if err := client.GetJSON(ctx, fmt.Sprintf("/rankings?days=%d", max(cfg.Days, 1)), &rankings); err != nil {
		return stats, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.RankedEntities = len(rankings.Best)
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "load run completed",
		logger.Int("rankedEntities", stats.RankedEntities),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func submit(ctx context.Context, client *HTTPClient, batches []Batch, workers int, stats *Stats) {
	jobs := make(chan Batch)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				var res types.IngestResponse
				status, err := client.PostJSON(ctx, "/events", b, &res)

				mu.Lock()
				switch {
				case err != nil:
					stats.BatchesFailed++
					stats.EventsRejected += len(b)
				case status == http.StatusAccepted || status == http.StatusTooManyRequests:
					stats.EventsAccepted += res.Accepted
					stats.EventsRejected += len(b) - res.Accepted
				default:
					stats.BatchesFailed++
					stats.EventsRejected += len(b)
				}
				mu.Unlock()
			}
		}()
	}

	for _, b := range batches {
		select {
		case <-ctx.Done():
		case jobs <- b:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()
}

func saveEvents(path string, events []types.EventRequest) error {
	if err := os.MkdirAll(filepath.Dir(path), directoryPermission); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
