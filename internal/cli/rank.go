package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/followup/internal/domain/types"
)

func newRankCmd() *cobra.Command {
	var (
		q          types.RankingQuery
		priorities bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print follow-up rankings or improvement priorities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			inst, err := bootstrap(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer inst.Close(ctx) //nolint:errcheck // read-only command

			out := cmd.OutOrStdout()
			if priorities {
				rows, err := inst.svc.Priorities(ctx, q)
				if err != nil {
					return err
				}
				return printPriorities(out, rows)
			}
			res, err := inst.svc.Rankings(ctx, q)
			if err != nil {
				return err
			}
			return printRankings(out, res)
		},
	}
	cmd.Flags().IntVar(&q.Days, "days", 0, "window length in days (default from config)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "rows per list (default from config)")
	cmd.Flags().StringVar(&q.Origin, "origin", "", "restrict origins to one kind")
	cmd.Flags().BoolVar(&priorities, "priorities", false, "rank by improvement priority instead of follow-up rate")
	return cmd
}

func printRankings(out io.Writer, r types.Rankings) error {
	fmt.Fprintf(out, "window %s .. %s\n", r.WindowStart.Format("2006-01-02"), r.WindowEnd.Format("2006-01-02"))
	for _, list := range []struct {
		name string
		rows []types.RankingRow
	}{{"best", r.Best}, {"worst", r.Worst}} {
		fmt.Fprintf(out, "\n%s\n", list.name)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTITY\tTITLE\tORIGINS\tFOLLOW-UPS\tRATE\tLOW SAMPLE")
		for _, row := range list.rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d%%\t%t\n",
				row.EntityID, row.Title, row.OriginCount, row.FollowUpCount, row.FollowUpRate, row.IsLowSample)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func printPriorities(out io.Writer, rows []types.Priority) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tENTITY\tTITLE\tSCORE\tROI\tIMPACT\tSTRATEGY\tORIGINS\tLOW SAMPLE")
	for _, p := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.3f\t%.2f\t%.2f\t%d\t%t\n",
			p.Rank, p.EntityID, p.Title, p.Score, p.ROIScore, p.ImpactWeight, p.StrategyWeight, p.OriginCount, p.IsLowSample)
	}
	return tw.Flush()
}
