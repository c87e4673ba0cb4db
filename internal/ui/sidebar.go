package ui

import (
	"fmt"
	"strings"

	"myday/internal/config"
	"myday/internal/model"
	"myday/internal/query"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

// sidebarEntry is one row of the sidebar: a smart list, a user list or a
// group header.
type sidebarEntry struct {
	sel       query.Selector
	title     string
	icon      string
	count     int
	groupID   string // set on group headers
	collapsed bool
	indent    bool
}

func (e sidebarEntry) isGroup() bool { return e.groupID != "" }

// smartIcons decorates the computed views.
var smartIcons = map[query.SmartList]string{
	query.MyDay:     "☀",
	query.Important: "★",
	query.Planned:   "▦",
	query.Inbox:     "✉",
	query.Completed: "✓",
	query.All:       "∞",
}

// SidebarPane lists the smart lists followed by the user lists, filed under
// their groups.
type SidebarPane struct {
	entries []sidebarEntry
	cursor  int
	active  query.Selector
	focused bool
	width   int
	height  int
	styles  *Styles
	keys    SidebarKeyMap
}

// NewSidebarPane creates a sidebar with the smart lists and My Day active.
func NewSidebarPane(styles *Styles, keyCfg *config.KeysConfig) *SidebarPane {
	p := &SidebarPane{
		active: query.Smart(query.MyDay),
		styles: styles,
		keys:   NewSidebarKeyMap(keyCfg),
	}
	p.setLists(listsLoadedMsg{})
	return p
}

// setLists rebuilds the entries and keeps the cursor on the same view.
func (p *SidebarPane) setLists(msg listsLoadedMsg) {
	var prev query.Selector
	var prevGroup string
	if p.cursor < len(p.entries) {
		prev = p.entries[p.cursor].sel
		prevGroup = p.entries[p.cursor].groupID
	}

	entries := make([]sidebarEntry, 0, len(query.SmartLists)+len(msg.lists)+len(msg.groups))
	for _, s := range query.SmartLists {
		entries = append(entries, sidebarEntry{
			sel:   query.Smart(s),
			title: s.Title(),
			icon:  smartIcons[s],
			count: msg.counts[s],
		})
	}

	known := make(map[string]bool, len(msg.groups))
	for _, g := range msg.groups {
		known[g.ID] = true
	}
	listEntry := func(l model.List, indent bool) sidebarEntry {
		icon := l.Icon
		if icon == "" {
			icon = "≡"
		}
		return sidebarEntry{sel: query.List(l.ID), title: l.Title, icon: icon, count: msg.listCounts[l.ID], indent: indent}
	}
	for _, l := range msg.lists {
		if l.GroupID == "" || !known[l.GroupID] {
			entries = append(entries, listEntry(l, false))
		}
	}
	for _, g := range msg.groups {
		entries = append(entries, sidebarEntry{title: g.Title, groupID: g.ID, collapsed: g.IsCollapsed})
		if g.IsCollapsed {
			continue
		}
		for _, l := range msg.lists {
			if l.GroupID == g.ID {
				entries = append(entries, listEntry(l, true))
			}
		}
	}
	p.entries = entries

	p.cursor = 0
	for i, e := range entries {
		if (prevGroup != "" && e.groupID == prevGroup) || (prevGroup == "" && !e.isGroup() && e.sel == prev) {
			p.cursor = i
			break
		}
	}
}

// Active returns the view shown in the task pane.
func (p *SidebarPane) Active() query.Selector { return p.active }

// ActiveTitle returns the display name of the active view.
func (p *SidebarPane) ActiveTitle() string {
	for _, e := range p.entries {
		if !e.isGroup() && e.sel == p.active {
			return e.title
		}
	}
	if p.active.Smart != "" {
		return p.active.Smart.Title()
	}
	return model.DefaultListTitle
}

// Count returns the badge shown next to a smart list.
func (p *SidebarPane) Count(s query.SmartList) int {
	for _, e := range p.entries {
		if e.sel.Smart == s {
			return e.count
		}
	}
	return 0
}

// Has reports whether sel is a row of the sidebar.
func (p *SidebarPane) Has(sel query.Selector) bool {
	for _, e := range p.entries {
		if !e.isGroup() && e.sel == sel {
			return true
		}
	}
	return false
}

// SetActive activates sel. It reports false if sel is not in the sidebar.
func (p *SidebarPane) SetActive(sel query.Selector) bool {
	for i, e := range p.entries {
		if !e.isGroup() && e.sel == sel {
			p.cursor = i
			p.active = sel
			return true
		}
	}
	return false
}

// Step activates the next (delta 1) or previous (delta -1) view, skipping
// group headers and wrapping around.
func (p *SidebarPane) Step(delta int) {
	n := len(p.entries)
	if n == 0 {
		return
	}
	i := p.cursor
	for range n {
		i = ((i+delta)%n + n) % n
		if !p.entries[i].isGroup() {
			p.cursor = i
			p.active = p.entries[i].sel
			return
		}
	}
}

// SetSize sets the pane dimensions.
func (p *SidebarPane) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetFocused sets whether this pane is focused.
func (p *SidebarPane) SetFocused(focused bool) {
	p.focused = focused
}

// Update handles keys and clicks. It reports whether a list was opened and
// returns the group header that was opened, if any.
func (p *SidebarPane) Update(msg tea.Msg) (opened bool, group *sidebarEntry) {
	if !p.focused || len(p.entries) == 0 {
		return false, nil
	}
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			p.cursor = max(p.cursor-1, 0)
		case tea.MouseButtonWheelDown:
			p.cursor = min(p.cursor+1, len(p.entries)-1)
		case tea.MouseButtonLeft:
			if msg.Action != tea.MouseActionPress {
				return false, nil
			}
			i, ok := p.entryAtRow(msg.Y)
			if !ok {
				return false, nil
			}
			p.cursor = i
			return p.open()
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Down):
			p.cursor = min(p.cursor+1, len(p.entries)-1)
		case key.Matches(msg, p.keys.Up):
			p.cursor = max(p.cursor-1, 0)
		case key.Matches(msg, p.keys.Top):
			p.cursor = 0
		case key.Matches(msg, p.keys.Bottom):
			p.cursor = len(p.entries) - 1
		case key.Matches(msg, p.keys.Open):
			return p.open()
		}
	}
	return false, nil
}

// entryAtRow maps a pane-relative row to an entry index, skipping the title
// and the rule between smart lists and user lists.
func (p *SidebarPane) entryAtRow(y int) (int, bool) {
	const headerRows = 2
	row := y - headerRows
	sep := len(query.SmartLists)
	switch {
	case row < 0 || row == sep:
		return 0, false
	case row > sep:
		row--
	}
	if row >= len(p.entries) {
		return 0, false
	}
	return row, true
}

// open activates the entry under the cursor. Group headers are returned for
// the caller to fold.
func (p *SidebarPane) open() (bool, *sidebarEntry) {
	e := p.entries[p.cursor]
	if e.isGroup() {
		return false, &e
	}
	p.active = e.sel
	return true, nil
}

// View renders the sidebar.
func (p *SidebarPane) View() string {
	var b strings.Builder

	b.WriteString(p.styles.PaneTitleStyle.Render("LISTS"))
	b.WriteString("\n")

	inner := max(p.width-4, 10)
	for i, e := range p.entries {
		if i == len(query.SmartLists) {
			b.WriteString(p.styles.StatLabelStyle.Render(strings.Repeat("─", inner)))
			b.WriteString("\n")
		}
		b.WriteString(p.renderEntry(i, e, inner))
		b.WriteString("\n")
	}

	style := p.styles.PaneStyle
	if p.focused {
		style = p.styles.PaneFocusedStyle
	}
	return style.Width(p.width).Height(p.height).Render(b.String())
}

func (p *SidebarPane) renderEntry(i int, e sidebarEntry, width int) string {
	if e.isGroup() {
		arrow := "▾"
		if e.collapsed {
			arrow = "▸"
		}
		label := runewidth.Truncate(arrow+" "+e.title, width, "..")
		if i == p.cursor && p.focused {
			return p.styles.SidebarSelectedStyle.Render(label)
		}
		return p.styles.SidebarGroupStyle.Render(label)
	}

	prefix := e.icon + " "
	if e.indent {
		prefix = "  " + prefix
	}
	count := ""
	if e.count > 0 {
		count = fmt.Sprintf("%d", e.count)
	}
	avail := max(width-runewidth.StringWidth(prefix)-len(count)-1, 3)
	title := runewidth.Truncate(e.title, avail, "..")
	pad := max(width-runewidth.StringWidth(prefix)-runewidth.StringWidth(title)-len(count), 1)
	line := prefix + title + strings.Repeat(" ", pad)

	switch {
	case i == p.cursor && p.focused:
		return p.styles.SidebarSelectedStyle.Render(line + count)
	case e.sel == p.active:
		return p.styles.SidebarActiveStyle.Render(line) + p.styles.SidebarCountStyle.Render(count)
	default:
		return p.styles.SidebarItemStyle.Render(line) + p.styles.SidebarCountStyle.Render(count)
	}
}
