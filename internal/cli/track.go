package cli

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/tui"
)

// ErrNotInteractive is returned when the tracker is started without a terminal.
var ErrNotInteractive = errors.New("track needs an interactive terminal")

// NewTrackCmd creates the interactive tracker command.
func NewTrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "track",
		Short:   "Open the interactive tracker",
		Long:    "Open a full-screen tracker: pick a tupper and container type, enter the scale weight, stage extras and consume.",
		GroupID: groupDay,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if !isTerminal(os.Stdout) {
				return ErrNotInteractive
			}

			signal := &tui.ClearSignal{}
			sess, err := openSession(cmd, ledger.WithClearHook(signal.Hook))
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := sess.Close(); err == nil && closeErr != nil {
					err = fmt.Errorf("closing store: %w", closeErr)
				}
			}()

			ctx := cmd.Context()
			if err = sess.ledger.Load(ctx); err != nil {
				return err
			}

			model := tui.NewTrackerModel(ctx, sess.ledger, sess.catalog, signal, formatter())
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err = p.Run(); err != nil {
				return fmt.Errorf("running tracker: %w", err)
			}
			return nil
		},
	}
}
