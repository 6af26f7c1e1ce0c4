// Package cli implements the followup command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/followup/internal/config"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "followup",
		Short: "Follow-up analytics for learning content",
		Long: `followup ingests learning events and reports which content leads
learners to act next: follow-up rankings, before/after evaluations,
improvement priorities, habit coaching and lifecycle decisions.

Without a subcommand it runs the HTTP service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				return os.Setenv(config.EnvConfigPath, configPath)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(),
		newRankCmd(),
		newEvaluateCmd(),
		newImportCmd(),
		newLoadgenCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "followup %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
