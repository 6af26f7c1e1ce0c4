package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <events.json>",
		Short: "Append a JSON array of events directly to the store",
		Long: `import validates every event in the file and appends them to the
configured store in one call. Nothing is stored if any event is invalid.
The file format is the one written by "loadgen --output".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read events: %w", err)
			}
			var reqs []types.EventRequest
			if err := json.Unmarshal(data, &reqs); err != nil {
				return fmt.Errorf("decode events: %w", err)
			}
			events := make([]model.Event, 0, len(reqs))
			for i, r := range reqs {
				e, err := r.ToModel()
				if err != nil {
					return fmt.Errorf("event %d: %w", i, err)
				}
				events = append(events, e)
			}

			ctx := cmd.Context()
			inst, err := bootstrap(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer inst.Close(ctx) //nolint:errcheck // store errors surface from Append

			if err := inst.store.Append(ctx, events...); err != nil {
				return fmt.Errorf("append events: %w", err)
			}
			inst.log.Info(ctx, "events imported", logger.Int("count", len(events)), logger.String("file", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d events\n", len(events))
			return nil
		},
	}
}
