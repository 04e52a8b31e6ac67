package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/nutricount/internal/archive"
	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/nutrition"
)

const (
	barWidth     = 20
	percentScale = 100
	nameWidth    = 24
)

func progressBar(pct int) string {
	filled := pct * barWidth / percentScale
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}

func macroLine(f Formatter, label string, current, goal float64, pct int, status lipgloss.Style) string {
	return fmt.Sprintf("%s %s %s %s",
		LabelStyle.Render(fmt.Sprintf("%-8s", label)),
		ValueStyle.Render(fmt.Sprintf("%10s / %-10s", f.Number(current), f.Number(goal))),
		status.Render(progressBar(pct)),
		fmt.Sprintf("%3d%%", pct))
}

// RenderProgress renders the day's intake against the goal.
func RenderProgress(gp nutrition.GoalProgress, f Formatter) string {
	status := StatusStyle(gp.Status)
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("TODAY"))
	b.WriteString("  ")
	b.WriteString(status.Render(string(gp.Status)))
	b.WriteString("\n\n")
	b.WriteString(macroLine(f, "Kcal", gp.Intake.Kcal, gp.Goal.Kcal, gp.Percent.Kcal, status) + "\n")
	b.WriteString(macroLine(f, "Protein", gp.Intake.ProteinG, gp.Goal.ProteinG, gp.Percent.Protein, status) + "\n")
	b.WriteString(macroLine(f, "Carbs", gp.Intake.CarbsG, gp.Goal.CarbsG, gp.Percent.Carbs, status) + "\n")
	b.WriteString(macroLine(f, "Fat", gp.Intake.FatG, gp.Goal.FatG, gp.Percent.Fat, status) + "\n")

	if !gp.Preview.IsZero() {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("On the scale: "))
		b.WriteString(ValueStyle.Render("+" + f.Kcal(gp.Preview.Kcal)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if gp.KcalOver > 0 {
		b.WriteString(LabelStyle.Render("Over goal:  "))
		b.WriteString(StatusStyle(nutrition.GoalStatusExceeded).Render(f.Kcal(gp.KcalOver)))
	} else {
		b.WriteString(LabelStyle.Render("Remaining:  "))
		b.WriteString(ValueStyle.Render(f.Kcal(-gp.KcalOver)))
	}
	return BoxStyle.Render(b.String())
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func macroCells(f Formatter, p nutrition.NutrientProfile) string {
	return fmt.Sprintf("%9s %7s %7s %7s",
		f.Number(p.Kcal), f.Number(p.ProteinG), f.Number(p.CarbsG), f.Number(p.FatG))
}

// RenderEntries renders the consumed and staged items of the day.
func RenderEntries(entries []ledger.Entry, f Formatter) string {
	if len(entries) == 0 {
		return InfoStyle.Render("Nothing eaten yet.")
	}
	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-26s %-8s %-*s %9s %9s %7s %7s %7s",
		"KEY", "KIND", nameWidth, "NAME", "MASS", "KCAL", "PROT", "CARB", "FAT")))
	b.WriteString("\n")
	for _, e := range entries {
		line := fmt.Sprintf("%-26s %-8s %-*s %9s %s",
			e.Key, e.Kind, nameWidth, truncate(e.Name, nameWidth), f.Grams(e.MassG), macroCells(f, e.Macros))
		switch {
		case !e.Known:
			line = SubtleStyle.Render(line)
		case e.Staged:
			line = StagedStyle.Render(line + "  (staged)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDay renders an archived day.
func RenderDay(d archive.RenderedDay, f Formatter) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(strings.TrimSpace(d.Date + " " + d.Weekday)))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Totals: "))
	b.WriteString(ValueStyle.Render(fmt.Sprintf("%s  P %s  C %s  F %s",
		f.Kcal(d.Totals.Kcal), f.Grams(d.Totals.ProteinG), f.Grams(d.Totals.CarbsG), f.Grams(d.Totals.FatG))))
	b.WriteString("\n\n")
	if len(d.Items) == 0 {
		b.WriteString(InfoStyle.Render("No items."))
		return BoxStyle.Render(b.String())
	}
	for _, it := range d.Items {
		line := fmt.Sprintf("%-8s %-*s %9s %s",
			it.Kind, nameWidth, truncate(it.Name, nameWidth), f.Grams(it.MassG), macroCells(f, it.Macros))
		if !it.Known {
			line = SubtleStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
