package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/nutrition"
)

// ErrNegativeValue is returned when a macro or weight flag is negative.
var ErrNegativeValue = errors.New("macros and weights cannot be negative")

// profileFlags binds the per-100 g macro flags shared by the reference commands.
type profileFlags struct {
	kcal, protein, carbs, fat float64
}

func (p *profileFlags) register(cmd *cobra.Command, unit string) {
	cmd.Flags().Float64Var(&p.kcal, "kcal", 0, "kcal "+unit)
	cmd.Flags().Float64Var(&p.protein, "protein", 0, "protein grams "+unit)
	cmd.Flags().Float64Var(&p.carbs, "carbs", 0, "carbohydrate grams "+unit)
	cmd.Flags().Float64Var(&p.fat, "fat", 0, "fat grams "+unit)
}

func (p *profileFlags) profile() nutrition.NutrientProfile {
	return nutrition.NutrientProfile{Kcal: p.kcal, ProteinG: p.protein, CarbsG: p.carbs, FatG: p.fat}
}

func (p *profileFlags) validate() error {
	if p.kcal < 0 || p.protein < 0 || p.carbs < 0 || p.fat < 0 {
		return ErrNegativeValue
	}
	return nil
}

// saveFunc persists a per-100 g entity of one collection.
type saveFunc func(ctx context.Context, s *session, id, name string, p nutrition.NutrientProfile) (nutrition.Entity, error)

type referenceKind struct {
	use        string
	short      string
	collection string
	save       saveFunc
}

func newReferenceCmds() []*cobra.Command {
	kinds := []referenceKind{
		{
			use: "food", short: "Manage foods (macros per 100 g)", collection: nutrition.CollectionFoods,
			save: func(ctx context.Context, s *session, id, name string, p nutrition.NutrientProfile) (nutrition.Entity, error) {
				return s.catalog.SaveFood(ctx, nutrition.Food{ID: id, Name: name, NutrientProfile: p})
			},
		},
		{
			use: "standard", short: "Manage standard foods (macros per 100 g)", collection: nutrition.CollectionStandardFoods,
			save: func(ctx context.Context, s *session, id, name string, p nutrition.NutrientProfile) (nutrition.Entity, error) {
				return s.catalog.SaveStandardFood(ctx, nutrition.StandardFood{ID: id, Name: name, NutrientProfile: p})
			},
		},
		{
			use: "tupper", short: "Manage tuppers (macros per 100 g of food)", collection: nutrition.CollectionTuppers,
			save: func(ctx context.Context, s *session, id, name string, p nutrition.NutrientProfile) (nutrition.Entity, error) {
				return s.catalog.SaveTupper(ctx, nutrition.Tupper{ID: id, Name: name, NutrientProfile: p})
			},
		},
	}

	cmds := make([]*cobra.Command, 0, len(kinds)+1)
	for _, k := range kinds {
		cmd := &cobra.Command{
			Use:     k.use,
			Short:   k.short,
			GroupID: groupReference,
		}
		cmd.AddCommand(newEntityListCmd(k.collection), newProfileAddCmd(k), newEntityRmCmd(k.collection))
		cmds = append(cmds, cmd)
	}
	return append(cmds, newTupperTypeCmd())
}

func newEntityListCmd(collection string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				entities := s.catalog.Entities(collection)
				if output == config.FormatJSON {
					if entities == nil {
						entities = []nutrition.Entity{}
					}
					return writeJSON(cmd.OutOrStdout(), entities)
				}
				if len(entities) == 0 {
					cmd.Println("No entries.")
					return nil
				}
				return renderEntities(cmd, entities)
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func renderEntities(cmd *cobra.Command, entities []nutrition.Entity) error {
	f := formatter()
	w := newTabWriter(cmd.OutOrStdout())
	if _, isType := entities[0].(nutrition.TupperType); isType {
		fmt.Fprintln(w, "ID\tNAME\tTARE")
		for _, e := range entities {
			t := e.(nutrition.TupperType)
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, f.Grams(t.TareWeightG))
		}
		return w.Flush()
	}
	fmt.Fprintln(w, "ID\tNAME\tKCAL\tPROTEIN\tCARBS\tFAT")
	for _, e := range entities {
		var p nutrition.NutrientProfile
		switch v := e.(type) {
		case nutrition.Food:
			p = v.NutrientProfile
		case nutrition.StandardFood:
			p = v.NutrientProfile
		case nutrition.Tupper:
			p = v.NutrientProfile
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.EntityID(), e.EntityName(), macroColumns(f, p))
	}
	return w.Flush()
}

func newProfileAddCmd(k referenceKind) *cobra.Command {
	var (
		id    string
		flags profileFlags
	)

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Add an entry, or replace the one given by --id",
		Example: fmt.Sprintf("  nutricount %s add rice --kcal 130 --protein 2.7 --carbs 28 --fat 0.3", k.use),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				e, err := k.save(cmd.Context(), s, id, args[0], flags.profile())
				if err != nil {
					return err
				}
				cmd.Printf("Saved %s %s (id %s)\n", k.use, e.EntityName(), e.EntityID())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "id of an existing entry to replace")
	flags.register(cmd, "per 100 g")
	return cmd
}

func newEntityRmCmd(collection string) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name-or-id>",
		Aliases: []string{"delete"},
		Short:   "Remove an entry; items already eaten keep their key but show as unknown",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				e, err := s.resolve(collection, args[0])
				if err != nil {
					return err
				}
				if err = s.catalog.Delete(cmd.Context(), collection, e.EntityID()); err != nil {
					return err
				}
				cmd.Printf("Removed %s (id %s)\n", e.EntityName(), e.EntityID())
				return nil
			})
		},
	}
}

func newTupperTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tupper-type",
		Short:   "Manage container types and their tare weight",
		GroupID: groupReference,
	}

	var (
		id     string
		weight float64
	)
	add := &cobra.Command{
		Use:     "add <name>",
		Short:   "Add a container type, or replace the one given by --id",
		Example: "  nutricount tupper-type add glass --weight 320",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if weight < 0 {
				return ErrNegativeValue
			}
			return withSession(cmd, func(s *session) error {
				t, err := s.catalog.SaveTupperType(cmd.Context(),
					nutrition.TupperType{ID: id, Name: args[0], TareWeightG: weight})
				if err != nil {
					return err
				}
				cmd.Printf("Saved tupper-type %s (id %s)\n", t.Name, t.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&id, "id", "", "id of an existing container type to replace")
	add.Flags().Float64Var(&weight, "weight", 0, "empty container weight in grams")

	cmd.AddCommand(newEntityListCmd(nutrition.CollectionTupperTypes), add,
		newEntityRmCmd(nutrition.CollectionTupperTypes))
	return cmd
}

// NewGoalCmd creates the goal command group.
func NewGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Short:   "Show or set the daily macro goal",
		GroupID: groupReference,
	}

	var output string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the daily goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				g := s.catalog.Goal()
				if output == config.FormatJSON {
					return writeJSON(cmd.OutOrStdout(), g)
				}
				f := formatter()
				w := newTabWriter(cmd.OutOrStdout())
				fmt.Fprintln(w, "KCAL\tPROTEIN\tCARBS\tFAT")
				fmt.Fprintln(w, macroColumns(f, g.NutrientProfile))
				return w.Flush()
			})
		},
	}
	addOutputFlag(show, &output)

	var flags profileFlags
	set := &cobra.Command{
		Use:     "set",
		Short:   "Set the daily goal; omitted macros keep their current value",
		Example: "  nutricount goal set --kcal 2000 --protein 140",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				g := s.catalog.Goal()
				fs := cmd.Flags()
				if fs.Changed("kcal") {
					g.Kcal = flags.kcal
				}
				if fs.Changed("protein") {
					g.ProteinG = flags.protein
				}
				if fs.Changed("carbs") {
					g.CarbsG = flags.carbs
				}
				if fs.Changed("fat") {
					g.FatG = flags.fat
				}
				if _, err := s.catalog.SaveGoal(cmd.Context(), g); err != nil {
					return err
				}
				cmd.Println("Daily goal updated")
				return nil
			})
		},
	}
	flags.register(set, "per day")

	cmd.AddCommand(show, set)
	return cmd
}
