// Package tui renders nutricount output with lipgloss and hosts the
// interactive bubbletea tracker.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/nutricount/internal/nutrition"
)

// Colors.
const (
	colorOK       = lipgloss.Color("42")
	colorWarning  = lipgloss.Color("214")
	colorCritical = lipgloss.Color("208")
	colorExceeded = lipgloss.Color("196")
	colorSubtle   = lipgloss.Color("241")
	colorAccent   = lipgloss.Color("39")
)

//nolint:gochecknoglobals // Shared immutable styles.
var (
	HeaderStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	LabelStyle         = lipgloss.NewStyle().Foreground(colorSubtle)
	ValueStyle         = lipgloss.NewStyle().Bold(true)
	SubtleStyle        = lipgloss.NewStyle().Foreground(colorSubtle).Italic(true)
	InfoStyle          = lipgloss.NewStyle().Foreground(colorSubtle)
	ErrorStyle         = lipgloss.NewStyle().Foreground(colorExceeded).Bold(true)
	StagedStyle        = lipgloss.NewStyle().Foreground(colorWarning)
	BoxStyle           = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	TableHeaderStyle   = lipgloss.NewStyle().Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	TableSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
)

// StatusStyle returns the style used for a goal status.
func StatusStyle(s nutrition.GoalStatus) lipgloss.Style {
	switch s {
	case nutrition.GoalStatusWarning:
		return lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	case nutrition.GoalStatusCritical:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	case nutrition.GoalStatusExceeded:
		return lipgloss.NewStyle().Foreground(colorExceeded).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	}
}
