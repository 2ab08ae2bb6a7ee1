package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ytgrab/ytgrab/internal/config"
)

var (
	// Colors
	ColorPrimary   = lipgloss.Color("#bd93f9") // Purple
	ColorSecondary = lipgloss.Color("#ff79c6") // Pink
	ColorSuccess   = lipgloss.Color("#50fa7b") // Green
	ColorError     = lipgloss.Color("#ff5555") // Red
	ColorWarning   = lipgloss.Color("#ffb86c") // Orange
	ColorText      = lipgloss.Color("#f8f8f2") // Foreground
	ColorSubtext   = lipgloss.Color("#6272a4") // Comment
	ColorBorder    = lipgloss.Color("#44475a") // Selection

	// Styles
	AppStyle = lipgloss.NewStyle().
			Padding(DefaultPaddingX, 2).
			Foreground(ColorText)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(DefaultPaddingY, DefaultPaddingX).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(DefaultPaddingY, DefaultPaddingX)

	FocusedPanelStyle = PanelStyle.
				BorderForeground(ColorSecondary)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorSecondary).
				Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtextStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(lipgloss.Color("#282a36")).
			Padding(DefaultPaddingY, DefaultPaddingX)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Padding(1, 0, 0, 0)
)

// lightPalette swaps the foreground colors for readable ones on light
// terminal backgrounds.
func lightPalette() {
	ColorText = lipgloss.Color("#282a36")
	ColorSubtext = lipgloss.Color("#6272a4")
	AppStyle = AppStyle.Foreground(ColorText)
	ItemStyle = ItemStyle.Foreground(ColorText)
	StatusBarStyle = StatusBarStyle.Background(lipgloss.Color("#f8f8f2")).Foreground(ColorText)
}

// ApplyTheme configures the palette from the theme setting. The adaptive
// theme follows the detected terminal background.
func ApplyTheme(theme int) {
	switch theme {
	case config.ThemeLight:
		lightPalette()
	case config.ThemeAdaptive:
		if !termenv.HasDarkBackground() {
			lightPalette()
		}
	}
}
