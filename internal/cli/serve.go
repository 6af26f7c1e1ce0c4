package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/followup/internal/adapters/http/api"
	service "github.com/okian/followup/internal/app"
	"github.com/okian/followup/pkg/logger"
	"github.com/okian/followup/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inst, err := bootstrap(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := inst.svc.Start(ctx); err != nil {
		inst.store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, inst.svc)

	srv := newHTTPServer(inst.cfg.Addr, inst.svc)
	errCh := make(chan error, 1)
	go func() {
		inst.log.Info(ctx, "starting HTTP server", logger.String("addr", inst.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		inst.log.Info(ctx, "shutting down server...")
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inst.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		inst.log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := inst.Close(shutdownCtx); err != nil {
		inst.log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}
	inst.log.Info(shutdownCtx, "server stopped")
	return serveErr
}

func newHTTPServer(addr string, svc *service.Service) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(svc, svc).Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges GetStats does not touch itself.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
