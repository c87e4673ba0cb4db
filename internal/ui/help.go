package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	rows  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{"Tab", "Switch between lists and tasks"},
		{"[ / ]", "Previous / next list"},
		{"u / ctrl+z", "Undo"},
		{"ctrl+y", "Redo"},
		{"ctrl+r", "Sync replicas"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}},
	{"Tasks", [][2]string{
		{"a", "Quick add"},
		{"d / Space", "Toggle done"},
		{"i", "Toggle important"},
		{"m", "Add to / remove from My Day"},
		{"x", "Delete task"},
		{"J / K", "Move down / up"},
		{"/", "Search"},
		{"ctrl+g", "Search all lists"},
		{"o", "Cycle sort order"},
		{"c", "Show / hide completed"},
		{"j / k", "Navigate up/down"},
	}},
	{"Quick Add", [][2]string{
		{"p1 p2 p3", "Priority high / medium / low"},
		{"tomorrow 9am", "Due date and time"},
		{"明天下午3点", "Due date and time"},
		{"every week", "Repeat (每天 每周 每月)"},
	}},
	{"Input Mode", [][2]string{
		{"Enter", "Save"},
		{"Esc", "Cancel"},
	}},
}

// HelpOverlay is the full-screen shortcut reference.
type HelpOverlay struct {
	width, height int
	styles        *Styles
}

func NewHelpOverlay(styles *Styles) *HelpOverlay {
	return &HelpOverlay{styles: styles}
}

func (h *HelpOverlay) SetSize(width, height int) {
	h.width, h.height = width, height
}

// View centers the reference in the terminal. The box shrinks with narrow
// terminals down to 20 cells.
func (h *HelpOverlay) View() string {
	boxWidth := 64
	if h.width > 0 {
		boxWidth = min(64, max(20, h.width-4))
	}
	s := h.styles
	heading := lipgloss.NewStyle().Bold(true).Foreground(s.ColorAccent)
	keyCol := lipgloss.NewStyle().Foreground(s.ColorWarning).Width(12)
	descCol := lipgloss.NewStyle().Foreground(s.ColorText)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(s.ColorPrimary).Render("myday - Keyboard Shortcuts"))
	for _, sec := range helpSections {
		b.WriteString("\n\n" + heading.Render(sec.title) + "\n")
		for _, r := range sec.rows {
			b.WriteString(keyCol.Render(r[0]) + descCol.Render(r[1]) + "\n")
		}
	}
	b.WriteString("\n" + lipgloss.NewStyle().Foreground(s.ColorTextMuted).Italic(true).Render("Press ? or Esc to close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.ColorPrimary).
		Padding(1, 2).
		Width(boxWidth).
		Render(b.String())
	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, box)
}
