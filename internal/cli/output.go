package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/tui"
)

// tabPadding is the minimum column padding for tabwriter output.
const tabPadding = 2

// addOutputFlag registers --output with the configured default.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "output", config.GetDefaultOutputFormat(), "Output format (table, json)")
}

func validateOutput(format string) error {
	switch format {
	case config.FormatTable, config.FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: got %q", config.ErrInvalidFormat, format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
}

// formatter returns the number formatter for the configured locale.
func formatter() tui.Formatter {
	cfg := config.GetGlobalConfig()
	return tui.NewFormatter(cfg.Output.Locale, cfg.Output.Precision)
}

func macroColumns(f tui.Formatter, p nutrition.NutrientProfile) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s", f.Number(p.Kcal), f.Number(p.ProteinG), f.Number(p.CarbsG), f.Number(p.FatG))
}
