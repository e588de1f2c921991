// Package tui is the interactive terminal dashboard: sliders for the diet
// interventions, one chart panel at a time and a per-group table, kept
// current through a latest-wins recompute scheduler.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
const (
	ColorHeader    = lipgloss.Color("39")
	ColorLabel     = lipgloss.Color("245")
	ColorValue     = lipgloss.Color("255")
	ColorMuted     = lipgloss.Color("241")
	ColorBorder    = lipgloss.Color("240")
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorError     = lipgloss.Color("196")
	ColorSpinner   = lipgloss.Color("69")
)

// Glyphs.
const (
	IconArrowUp    = "↑"
	IconArrowDown  = "↓"
	IconArrowRight = "→"
	IconLevelOn    = "■"
	IconLevelOff   = "□"
)

// Layout defaults.
const (
	defaultWidth  = 100
	defaultHeight = 40
	borderPadding = 2
	minChartWidth = 30
	chartHeight   = 14
	tableHeight   = 6
)

// Shared styles.
//
//nolint:gochecknoglobals // Immutable lipgloss styles shared across views.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeader).
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	LabelStyle     = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle     = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	SubtleStyle    = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	OKStyle        = lipgloss.NewStyle().Foreground(ColorOK)
	WarningStyle   = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	HelpStyle      = lipgloss.NewStyle().Foreground(ColorMuted)

	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorValue).
			Background(lipgloss.Color("57")).
			Padding(0, 1)
	TabStyle = lipgloss.NewStyle().Foreground(ColorLabel).Padding(0, 1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(ColorBorder).
				BorderBottom(true).
				Bold(true)
	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))
)
