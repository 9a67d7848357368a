// Package styles provides the lipgloss palette and composed styles shared by
// the CLI output and the dashboard.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette tuned for dark terminals.
var (
	Green  = lipgloss.Color("#00ff88")
	Cyan   = lipgloss.Color("#00ccff")
	Violet = lipgloss.Color("#a78bfa")
	Red    = lipgloss.Color("#ff4444")
	Yellow = lipgloss.Color("#fbbf24")

	Neutral200 = lipgloss.Color("#e5e5e5")
	Neutral500 = lipgloss.Color("#737373")
	Neutral700 = lipgloss.Color("#404040")
	Neutral800 = lipgloss.Color("#262626")

	// Semantic colors
	ColorPrimary   = Green
	ColorSecondary = Cyan
	ColorAccent    = Violet
	ColorSuccess   = Green
	ColorWarning   = Yellow
	ColorError     = Red
	ColorInfo      = Cyan

	ColorText      = Neutral200
	ColorTextMuted = Neutral500

	ColorBg      = lipgloss.Color("#000000")
	ColorBgMuted = Neutral800
	ColorBorder  = Neutral700
)
