package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent = lipgloss.Color("#00D7AF")
	ColorText   = lipgloss.Color("#E4E4E4")
	ColorDim    = lipgloss.Color("#6C6C6C")
	ColorGood   = lipgloss.Color("#5FD75F")
	ColorRest   = lipgloss.Color("#5FAFFF")
	ColorWarn   = lipgloss.Color("#FFAF00")
	ColorError  = lipgloss.Color("#FF5F5F")
	ColorBar    = lipgloss.Color("#262626")
)

var (
	StyleTitleBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#003B33")).
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorDim)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleAngle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleFeedback = lipgloss.NewStyle().
			Foreground(ColorWarn)

	StyleInfo = lipgloss.NewStyle().
			Foreground(ColorText)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleBarFilled = lipgloss.NewStyle().
			Foreground(ColorGood)

	StyleBarEmpty = lipgloss.NewStyle().
			Foreground(ColorBar)

	StyleInput = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	StyleInputFocused = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#000000")).
				Background(ColorAccent).
				Padding(0, 1)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDim)
)

// stateStyles colours the state badge.
var stateStyles = map[string]lipgloss.Style{
	"idle":        lipgloss.NewStyle().Foreground(ColorDim).Bold(true),
	"calibrating": lipgloss.NewStyle().Foreground(ColorWarn).Bold(true),
	"ready":       lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
	"active":      lipgloss.NewStyle().Foreground(ColorGood).Bold(true),
	"resting":     lipgloss.NewStyle().Foreground(ColorRest).Bold(true),
	"complete":    lipgloss.NewStyle().Foreground(ColorGood).Bold(true),
}
