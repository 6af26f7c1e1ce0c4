package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/followup/internal/loadgen"
	"github.com/okian/followup/pkg/logger"
)

func newLoadgenCmd() *cobra.Command {
	cfg := loadgen.Config{
		BaseURL:    "http://localhost:9080",
		Users:      200,
		Lessons:    20,
		Days:       14,
		BatchSize:  100,
		Workers:    4,
		Timeout:    30 * time.Second,
		SettleTime: time.Second,
	}
	var (
		seed      uint64
		logFormat string
	)
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Replay synthetic learning sessions against a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			cfg.Now = time.Now()
			cfg.Seed = seed
			if seed == 0 {
				cfg.Seed = uint64(cfg.Now.UnixNano())
			}

			stats, err := loadgen.Run(cmd.Context(), &cfg)
			if stats != nil {
				printLoadStats(cmd.OutOrStdout(), stats)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.IntVar(&cfg.Users, "users", cfg.Users, "number of simulated learners")
	f.IntVar(&cfg.Lessons, "lessons", cfg.Lessons, "number of simulated lessons")
	f.IntVar(&cfg.Days, "days", cfg.Days, "days of history to generate")
	f.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "events per request")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.SettleTime, "settle", cfg.SettleTime, "wait before reading rankings back")
	f.StringVar(&cfg.OutputFile, "output", "", "save generated events to this JSON file")
	f.Uint64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	return cmd
}

func printLoadStats(out io.Writer, s *loadgen.Stats) {
	fmt.Fprintf(out, "generated: %d\naccepted:  %d\nrejected:  %d\nfailed batches: %d\nranked entities: %d\nduration: %s\n",
		s.EventsGenerated, s.EventsAccepted, s.EventsRejected, s.BatchesFailed, s.RankedEntities, s.Duration.Round(time.Millisecond))
}
