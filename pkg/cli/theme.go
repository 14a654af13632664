package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the help screen styles, tree glyphs and category icons.
type Theme struct {
	Bold   lipgloss.Style
	Cyan   lipgloss.Style
	Green  lipgloss.Style
	Yellow lipgloss.Style
	Dim    lipgloss.Style

	Bullet  string
	BoxTree string
	BoxLast string
	BoxItem string

	IconFetch   string
	IconLookup  string
	IconDisk    string
	IconHistory string
	IconHelp    string
}

func DefaultTheme() *Theme {
	t := &Theme{
		Bold:   lipgloss.NewStyle().Bold(true),
		Cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Green:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Dim:    lipgloss.NewStyle().Faint(true),

		Bullet:  "•",
		BoxTree: "├──",
		BoxLast: "└──",
		BoxItem: "│  ",

		IconFetch:   "📥",
		IconLookup:  "🔎",
		IconDisk:    "💾",
		IconHistory: "📜",
		IconHelp:    "💡",
	}

	return t
}

func (t *Theme) Styled(style lipgloss.Style, text string) string {
	return style.Render(text)
}
