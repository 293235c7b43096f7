// Package theme holds the terminal styles shared by the CLI reports.
package theme

import (
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Rule = lipgloss.NewStyle().
		Foreground(Border)
)

// States
var (
	Strong = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Weak = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Neutral = lipgloss.NewStyle().
		Foreground(Text)

	Warning = lipgloss.NewStyle().
		Foreground(Accent)
)

// Components
var (
	BarFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	BarEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// Rating band edges used to colour ratings.
const (
	weakBelow   = 1400
	strongAbove = 1600
)

// RatingStyle picks the state style for a skill rating.
func RatingStyle(rating int) lipgloss.Style {
	switch {
	case rating < weakBelow:
		return Weak
	case rating > strongAbove:
		return Strong
	default:
		return Neutral
	}
}

// Bar renders a horizontal gauge of width cells for value within [lo, hi].
func Bar(value, lo, hi float64, width int) string {
	if width <= 0 {
		return ""
	}
	frac := 0.0
	if hi > lo {
		frac = (value - lo) / (hi - lo)
	}
	frac = max(0, min(1, frac))
	filled := int(frac*float64(width) + 0.5)
	return BarFilled.Render(strings.Repeat("█", filled)) +
		BarEmpty.Render(strings.Repeat("░", width-filled))
}

// Heading renders a title followed by a rule of the same width.
func Heading(text string) string {
	return Title.Render(text) + "\n" + Rule.Render(strings.Repeat("─", lipgloss.Width(text)))
}

// Table returns a table with the shared header and border styling.
func Table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Rule).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return Subtitle.Padding(0, 1)
			}
			return Body.Padding(0, 1)
		})
}
