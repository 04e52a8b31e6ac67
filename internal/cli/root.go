// Package cli implements the nutricount command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// Command groups shown in help.
const (
	groupDay       = "day"
	groupReference = "reference"
	groupSetup     = "setup"
)

// NewRootCmd creates the root Cobra command for the nutricount CLI.
func NewRootCmd(ver string) *cobra.Command {
	var closeLog func() error

	cmd := &cobra.Command{
		Use:     "nutricount",
		Short:   "Track daily macros against a goal",
		Long:    "nutricount: weigh meals, stage extras and track the day's macros against a daily goal",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			closeLog = setupLogging(cmd)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(os.Stdout)

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("store", "", "store backend: file, sqlite or memory (overrides config)")
	cmd.PersistentFlags().String("store-path", "", "store directory or database file (overrides config)")

	cmd.AddGroup(
		&cobra.Group{ID: groupDay, Title: "Today and history:"},
		&cobra.Group{ID: groupReference, Title: "Foods, tuppers and goal:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	cmd.AddCommand(
		NewTodayCmd(), NewStageCmd(), NewUnstageCmd(), NewConsumeCmd(),
		NewRemoveCmd(), NewResetCmd(), NewCloseCmd(), NewHistoryCmd(),
		NewTrackCmd(),
	)
	cmd.AddCommand(newReferenceCmds()...)
	cmd.AddCommand(NewGoalCmd(), NewPinCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Show today's progress
  nutricount today

  # Stage 150 g of a food and a standard portion of yogurt
  nutricount stage food rice 150
  nutricount stage standard yogurt

  # Consume a tupper weighed at 350 g in a glass container
  nutricount consume --tupper stew --type glass --gross 350

  # Archive today and start a new day
  nutricount close

  # Use a SQLite database instead of JSON files
  nutricount config set store.backend sqlite`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands", GroupID: groupSetup}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigSetCmd(), NewConfigGetCmd(), NewConfigListCmd(),
		NewConfigValidateCmd(),
	)
	return cmd
}
