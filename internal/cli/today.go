package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/tui"
)

// ErrGramsRequired is returned when a food is staged without a mass.
var ErrGramsRequired = errors.New("grams are required for food items")

// todayView is the JSON shape of the today command.
type todayView struct {
	Progress nutrition.GoalProgress `json:"progress"`
	Entries  []ledger.Entry         `json:"entries"`
}

// NewTodayCmd creates the today command.
func NewTodayCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "today",
		Short:   "Show today's progress against the daily goal",
		GroupID: groupDay,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				view := todayView{
					Progress: s.ledger.GoalProgress(s.catalog.Goal().NutrientProfile, ledger.Selection{}),
					Entries:  s.ledger.Entries(),
				}
				return renderToday(cmd, output, view)
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func renderToday(cmd *cobra.Command, output string, view todayView) error {
	if output == config.FormatJSON {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	f := formatter()
	cmd.Println(tui.RenderProgress(view.Progress, f))
	cmd.Println()
	cmd.Println(tui.RenderEntries(view.Entries, f))
	return nil
}

// NewStageCmd creates the stage command.
func NewStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stage <food|standard> <name-or-id> [grams]",
		Short:   "Stage a food as an extra for today",
		GroupID: groupDay,
		Example: `  nutricount stage food rice 150
  nutricount stage standard yogurt`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := nutrition.ParseItemKind(args[0])
			if err != nil {
				return err
			}
			if !kind.Stageable() {
				return fmt.Errorf("%w: only food and standard items can be staged", nutrition.ErrUnknownKind)
			}
			var mass float64
			switch {
			case len(args) == 3:
				if mass, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("invalid grams %q: %w", args[2], err)
				}
			case kind == nutrition.KindFood:
				return ErrGramsRequired
			}

			return withSession(cmd, func(s *session) error {
				e, err := s.resolve(kind.Collection(), args[1])
				if err != nil {
					return err
				}
				item, applied, err := s.ledger.Stage(cmd.Context(), kind, e.EntityID(), mass)
				if err != nil {
					return err
				}
				if !applied {
					cmd.Println("Nothing staged: grams must be positive")
					return nil
				}
				cmd.Printf("Staged %s %s (key %s)\n", formatter().Grams(item.MassG), e.EntityName(), item.Key)
				return nil
			})
		},
	}
	return cmd
}

// NewUnstageCmd creates the unstage command.
func NewUnstageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unstage <key>",
		Short:   "Remove a staged extra",
		GroupID: groupDay,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				removed, err := s.ledger.Unstage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				reportRemoval(cmd, removed, "extra", args[0])
				return nil
			})
		},
	}
}

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>",
		Short:   "Remove a consumed item from today",
		GroupID: groupDay,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				removed, err := s.ledger.RemoveConsumed(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				reportRemoval(cmd, removed, "consumed item", args[0])
				return nil
			})
		},
	}
}

func reportRemoval(cmd *cobra.Command, removed bool, what, key string) {
	if removed {
		cmd.Printf("Removed %s %s\n", what, key)
		return
	}
	cmd.Printf("No %s with key %s\n", what, key)
}

// NewConsumeCmd creates the consume command.
func NewConsumeCmd() *cobra.Command {
	var (
		tupper string
		ttype  string
		gross  float64
	)

	cmd := &cobra.Command{
		Use:     "consume",
		Short:   "Consume a weighed tupper together with every staged extra",
		GroupID: groupDay,
		Example: `  # 350 g on the scale in a glass container
  nutricount consume --tupper stew --type glass --gross 350`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(s *session) error {
				sel := ledger.Selection{GrossWeightG: gross}
				if tupper != "" {
					e, err := s.resolve(nutrition.CollectionTuppers, tupper)
					if err != nil {
						return err
					}
					sel.TupperID = e.EntityID()
				}
				if ttype != "" {
					e, err := s.resolve(nutrition.CollectionTupperTypes, ttype)
					if err != nil {
						return err
					}
					sel.TupperTypeID = e.EntityID()
				}

				mass, macros := s.ledger.Preview(sel)
				applied, err := s.ledger.Commit(cmd.Context(), sel)
				if err != nil {
					return err
				}
				if !applied {
					cmd.Println("Nothing to consume")
					return nil
				}
				f := formatter()
				if sel.TupperID != "" && mass > 0 {
					cmd.Printf("Consumed %s of tupper (%s)\n", f.Grams(mass), f.Kcal(macros.Kcal))
				}
				cmd.Println(tui.RenderProgress(
					s.ledger.GoalProgress(s.catalog.Goal().NutrientProfile, ledger.Selection{}), f))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tupper, "tupper", "", "tupper name or id")
	cmd.Flags().StringVar(&ttype, "type", "", "tupper type name or id (its tare is subtracted)")
	cmd.Flags().Float64Var(&gross, "gross", 0, "gross weight on the scale in grams")
	return cmd
}

// NewResetCmd creates the reset command.
func NewResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "reset",
		Short:   "Clear today's totals, extras and consumed items",
		GroupID: groupDay,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force && !confirmPrompt(cmd, "Reset today's progress? [y/N]: ") {
				cmd.Println("Reset cancelled")
				return nil
			}
			return withSession(cmd, func(s *session) error {
				if err := s.ledger.Reset(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("Today's progress has been reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	return cmd
}
