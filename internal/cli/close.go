package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/archive"
)

// NewCloseCmd creates the close command.
func NewCloseCmd() *cobra.Command {
	var (
		date string
		keep bool
	)

	cmd := &cobra.Command{
		Use:     "close",
		Short:   "Archive today's consumed items as a historical day",
		Long:    "Archive today's totals and consumed items, then start a new day unless --keep is given.",
		GroupID: groupDay,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = time.Now().Format(archive.DateLayout)
			}
			if _, err := archive.ParseDate(date); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				var (
					day archive.HistoricalDay
					err error
				)
				if keep {
					p, curErr := s.ledger.Current(ctx)
					if curErr != nil {
						return curErr
					}
					day, err = s.archive.Close(ctx, p, date)
				} else {
					day, err = s.archive.CloseAndReset(ctx, s.ledger, date)
				}
				if day.ID != "" {
					cmd.Printf("Archived %s as %s (%d items, %s)\n",
						day.Date, day.ID, len(day.Consumed), formatter().Kcal(day.Totals.Kcal))
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date of the archived day (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep today's progress instead of resetting it")
	return cmd
}
