package ui

import "github.com/charmbracelet/lipgloss"

// Color palette, a single lime accent over grays.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the styles used for result listings.
type Styles struct {
	Header  lipgloss.Style
	Rank    lipgloss.Style
	Title   lipgloss.Style
	Meta    lipgloss.Style
	Snippet lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

// DefaultStyles returns styled components for terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Rank:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Meta:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Snippet: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)).Italic(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
	}
}

// NoColorStyles returns unstyled components for pipes and NO_COLOR.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Rank:    plain,
		Title:   plain,
		Meta:    plain,
		Snippet: plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Dim:     plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
