package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/archive"
	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/tui"
)

// NewHistoryCmd creates the history command group.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Browse and edit archived days",
		GroupID: groupDay,
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryRenameCmd(), newHistoryDeleteCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived days, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				days, err := s.archive.List(cmd.Context())
				if err != nil {
					return err
				}
				if output == config.FormatJSON {
					return writeJSON(cmd.OutOrStdout(), days)
				}
				if len(days) == 0 {
					cmd.Println("No archived days.")
					return nil
				}
				f := formatter()
				w := newTabWriter(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tDATE\tITEMS\tKCAL\tPROTEIN\tCARBS\tFAT")
				for _, d := range days {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.Date, len(d.Consumed), macroColumns(f, d.Totals))
				}
				return w.Flush()
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one archived day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				day, err := s.archive.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rendered := archive.Render(day, s.catalog)
				if output == config.FormatJSON {
					return writeJSON(cmd.OutOrStdout(), rendered)
				}
				cmd.Println(tui.RenderDay(rendered, formatter()))
				return nil
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newHistoryRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <date>",
		Short: "Change the date of an archived day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ok, err := s.archive.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println("Date unchanged")
					return nil
				}
				cmd.Printf("Day %s moved to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirmPrompt(cmd, fmt.Sprintf("Delete archived day %s? [y/N]: ", args[0])) {
				cmd.Println("Delete cancelled")
				return nil
			}
			return withSession(cmd, func(s *session) error {
				if err := s.archive.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Printf("Deleted archived day %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	return cmd
}
