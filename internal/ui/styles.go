package ui

import (
	"strings"

	"myday/internal/config"

	"github.com/charmbracelet/lipgloss"
)

// Styles is the theme palette and the styles derived from it.
type Styles struct {
	// Colors
	ColorPrimary   lipgloss.Color
	ColorMuted     lipgloss.Color
	ColorDanger    lipgloss.Color
	ColorWarning   lipgloss.Color
	ColorSuccess   lipgloss.Color
	ColorAccent    lipgloss.Color
	ColorBgLight   lipgloss.Color
	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color

	TitleStyle       lipgloss.Style
	DateStyle        lipgloss.Style
	PaneStyle        lipgloss.Style
	PaneFocusedStyle lipgloss.Style
	PaneTitleStyle   lipgloss.Style

	SidebarItemStyle     lipgloss.Style
	SidebarActiveStyle   lipgloss.Style
	SidebarSelectedStyle lipgloss.Style
	SidebarCountStyle    lipgloss.Style
	SidebarGroupStyle    lipgloss.Style

	TaskDoneStyle       lipgloss.Style
	TaskPendingStyle    lipgloss.Style
	TaskSelectedStyle   lipgloss.Style
	TaskCheckboxDone    string
	TaskCheckboxPending string
	ImportantMark       string
	MyDayMark           string
	RepeatMark          string
	TagStyle            lipgloss.Style
	BucketStyle         lipgloss.Style

	PriorityHighStyle lipgloss.Style
	PriorityLowStyle  lipgloss.Style

	DueDateOverdueStyle lipgloss.Style
	DueDateTodayStyle   lipgloss.Style
	DueDateFutureStyle  lipgloss.Style

	HelpStyle    lipgloss.Style
	HelpKeyStyle lipgloss.Style

	StatusStyle lipgloss.Style
	ErrorStyle  lipgloss.Style

	InputPromptStyle lipgloss.Style
	PreviewStyle     lipgloss.Style
	PreviewTokStyle  lipgloss.Style

	StatLabelStyle lipgloss.Style
}

// NewStyles builds the styles for cfg.Theme.
func NewStyles(cfg *config.Config) *Styles {
	return NewStylesFromTheme(&cfg.Theme)
}

// NewStylesFromTheme fills empty theme colors with the built-in palette.
func NewStylesFromTheme(theme *config.ThemeConfig) *Styles {
	s := &Styles{}

	s.ColorPrimary = colorOrDefault(theme.Primary, "#2563EB")
	s.ColorAccent = colorOrDefault(theme.Accent, "#F59E0B")
	s.ColorMuted = colorOrDefault(theme.Muted, "#6B7280")
	s.ColorDanger = colorOrDefault(theme.Danger, "#DC2626")
	s.ColorText = colorOrDefault(theme.Text, "#F9FAFB")

	// not themeable
	s.ColorWarning = lipgloss.Color("#F59E0B")
	s.ColorSuccess = lipgloss.Color("#10B981")
	s.ColorBgLight = lipgloss.Color("#374151")
	s.ColorTextMuted = lipgloss.Color("#9CA3AF")

	s.initComponentStyles()

	return s
}

// colorOrDefault returns hex, or defaultHex when hex is empty.
func colorOrDefault(hex, defaultHex string) lipgloss.Color {
	if hex != "" {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(defaultHex)
}

// initComponentStyles derives the component styles from the palette.
func (s *Styles) initComponentStyles() {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	pane := func(border lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1)
	}
	highlight := lipgloss.NewStyle().Background(s.ColorBgLight).Foreground(s.ColorText).Bold(true)

	s.TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(s.ColorText).Background(s.ColorPrimary).Padding(0, 1)
	s.DateStyle = fg(s.ColorTextMuted)
	s.PaneStyle = pane(s.ColorMuted)
	s.PaneFocusedStyle = pane(s.ColorPrimary)
	s.PaneTitleStyle = fg(s.ColorPrimary).Bold(true).MarginBottom(1)

	s.SidebarItemStyle = fg(s.ColorText)
	s.SidebarActiveStyle = fg(s.ColorPrimary).Bold(true)
	s.SidebarSelectedStyle = highlight
	s.SidebarCountStyle = fg(s.ColorTextMuted)
	s.SidebarGroupStyle = fg(s.ColorTextMuted).Bold(true)

	s.TaskDoneStyle = fg(s.ColorTextMuted).Strikethrough(true)
	s.TaskPendingStyle = fg(s.ColorText)
	s.TaskSelectedStyle = highlight
	s.TaskCheckboxDone = fg(s.ColorSuccess).Render("[✓]")
	s.TaskCheckboxPending = fg(s.ColorMuted).Render("[ ]")
	s.ImportantMark = fg(s.ColorAccent).Render("★")
	s.MyDayMark = fg(s.ColorWarning).Render("☀")
	s.RepeatMark = fg(s.ColorTextMuted).Render("↻")
	s.TagStyle = fg(s.ColorAccent)
	s.BucketStyle = fg(s.ColorAccent).Bold(true)

	// Medium priority is the default and gets no badge.
	s.PriorityHighStyle = fg(s.ColorDanger).Bold(true)
	s.PriorityLowStyle = fg(s.ColorMuted)

	s.DueDateOverdueStyle = fg(s.ColorDanger).Bold(true)
	s.DueDateTodayStyle = fg(s.ColorWarning)
	s.DueDateFutureStyle = fg(s.ColorTextMuted)

	s.HelpStyle = fg(s.ColorTextMuted)
	s.HelpKeyStyle = fg(s.ColorAccent).Bold(true)
	s.StatusStyle = fg(s.ColorSuccess).Italic(true)
	s.ErrorStyle = fg(s.ColorDanger).Bold(true)

	s.InputPromptStyle = fg(s.ColorPrimary).Bold(true)
	s.PreviewStyle = fg(s.ColorTextMuted).Italic(true)
	s.PreviewTokStyle = fg(s.ColorAccent)
	s.StatLabelStyle = fg(s.ColorTextMuted)
}

// RenderHelp renders key/description pairs as "[key] description".
func (s *Styles) RenderHelp(keys ...string) string {
	parts := make([]string, 0, len(keys)/2)
	for i := 0; i+1 < len(keys); i += 2 {
		parts = append(parts, s.HelpKeyStyle.Render("["+keys[i]+"]")+" "+s.HelpStyle.Render(keys[i+1]))
	}
	return strings.Join(parts, "  ")
}
