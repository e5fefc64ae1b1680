package report

import "charm.land/lipgloss/v2"

// Palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Purple
	Good    = lipgloss.Color("#22C55E") // Green
	Watch   = lipgloss.Color("#F59E0B") // Amber
	Alert   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	labelStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	headerCell = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(0, 1)

	cell = lipgloss.NewStyle().Padding(0, 1)
)
