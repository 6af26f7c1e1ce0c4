package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/followup/internal/domain/types"
)

func newEvaluateCmd() *cobra.Command {
	var (
		split string
		days  int
		roi   bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate <entity-id>",
		Short: "Print a before/after evaluation report for one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := types.EvaluationQuery{EntityID: args[0], Days: days}
			if split != "" {
				t, err := parseSplit(split)
				if err != nil {
					return err
				}
				q.Split = t
			}

			ctx := cmd.Context()
			inst, err := bootstrap(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer inst.Close(ctx) //nolint:errcheck // read-only command

			report := inst.svc.EvaluationReport
			if roi {
				report = inst.svc.ROIReport
			}
			md, err := report(ctx, q)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().StringVar(&split, "split", "", "start of the after window, RFC3339 or YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", 0, "length of each window in days (default from config)")
	cmd.Flags().BoolVar(&roi, "roi", false, "include completion rates")
	return cmd
}

func parseSplit(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --split %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
