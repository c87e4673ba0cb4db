// Package ui provides the terminal front end for myday.
// This file contains the main App model which coordinates the list sidebar
// and the task pane and routes messages using the Bubble Tea architecture.
package ui

import (
	"fmt"
	"strings"
	"time"

	"myday/internal/config"
	"myday/internal/query"
	"myday/internal/store"
	"myday/internal/watch"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PaneID names a pane.
type PaneID int

const (
	PaneLists PaneID = iota
	PaneTasks
)

// LayoutMode is picked from the terminal width.
type LayoutMode int

const (
	// LayoutWide shows the sidebar and the task pane side-by-side.
	LayoutWide LayoutMode = iota
	// LayoutNarrow stacks a tab bar over the focused pane.
	LayoutNarrow
)

// AppConfig carries the config file settings the TUI reads.
type AppConfig struct {
	Keys                  *config.KeysConfig
	ConfirmDeletions      bool
	ShowCompleted         bool
	NarrowLayoutThreshold int

	// Changes delivers cloud folder changes; nil disables live reload.
	Changes <-chan watch.Change
}

// App is the root Bubble Tea model. It owns the sidebar and task pane and
// routes store results back to them.
type App struct {
	store       *store.Store
	styles      *Styles
	config      *AppConfig
	sidebar     *SidebarPane
	taskPane    *TaskPane
	helpOverlay *HelpOverlay
	history     *History
	undoBusy    bool
	syncBusy    bool
	confirmDel  *confirmDeleteState
	activePane  PaneID
	layoutMode  LayoutMode
	showHelp    bool
	width       int
	height      int
	status      string
	statusErr   bool
	statusUntil time.Time
	quitting    bool

	keys     GlobalKeyMap
	helpKeys HelpKeyMap

	// x ranges of the panes, for mouse hits
	listsPaneStart int
	listsPaneEnd   int
	tasksPaneStart int
	tasksPaneEnd   int
	contentTop     int // Y coordinate where content starts
}

type confirmDeleteState struct {
	title string
	body  string
	cmd   tea.Cmd
}

// NewApp builds the model. The store is read in Init.
func NewApp(st *store.Store, styles *Styles, cfg *AppConfig) *App {
	if cfg == nil {
		cfg = &AppConfig{
			Keys:                  &config.KeysConfig{},
			ConfirmDeletions:      true,
			NarrowLayoutThreshold: 80,
		}
	}
	if cfg.Keys == nil {
		cfg.Keys = &config.KeysConfig{}
	}

	sidebar := NewSidebarPane(styles, cfg.Keys)
	taskPane := NewTaskPane(st, styles, cfg.Keys)
	taskPane.SetShowCompleted(cfg.ShowCompleted)

	app := &App{
		store:       st,
		styles:      styles,
		config:      cfg,
		sidebar:     sidebar,
		taskPane:    taskPane,
		helpOverlay: NewHelpOverlay(styles),
		history:     NewHistory(),
		activePane:  PaneTasks,
		keys:        NewGlobalKeyMap(cfg.Keys),
		helpKeys:    DefaultHelpKeyMap(),
	}
	sidebar.SetFocused(false)
	taskPane.SetFocused(true)
	return app
}

// tickMsg expires status messages.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init loads the sidebar and the first list.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		a.refresh(),
		waitForChangeCmd(a.config.Changes),
	)
}

// refresh reloads the sidebar counts and the task view.
func (a *App) refresh() tea.Cmd {
	return tea.Batch(loadListsCmd(a.store), a.taskPane.LoadTasksCmd())
}

// activate shows the sidebar's active view in the task pane.
func (a *App) activate() tea.Cmd {
	a.taskPane.SetView(a.sidebar.Active(), a.sidebar.ActiveTitle())
	return a.taskPane.LoadTasksCmd()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Store results first, regardless of which pane is active.
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		return a, a.taskPane.Update(msg)

	case listsLoadedMsg:
		a.sidebar.setLists(msg)
		if !a.sidebar.Has(a.sidebar.Active()) {
			a.sidebar.SetActive(query.Smart(query.MyDay))
			return a, a.activate()
		}
		a.taskPane.SetView(a.sidebar.Active(), a.sidebar.ActiveTitle())
		return a, nil

	case taskAddedMsg:
		switch {
		case msg.err != nil:
			a.SetStatus("Add task: "+msg.err.Error(), true)
			return a, nil
		case !msg.created:
			a.SetStatus("Nothing to add: the text had no title", true)
			return a, nil
		}
		a.history.Push(NewAddTaskAction(a.store, msg.task))
		a.SetStatus("Added: "+truncateText(msg.task.Title, 40), false)
		return a, a.refresh()

	case taskToggledMsg:
		if msg.err != nil {
			a.SetStatus("Toggle task: "+msg.err.Error(), true)
			return a, nil
		}
		a.history.Push(NewToggleTaskAction(a.store, msg.before, msg.spawned))
		if msg.spawned != nil && msg.spawned.DueDate != nil {
			due := msg.spawned.DueDate.In(a.store.Calendar().Location)
			a.SetStatus("Next occurrence due "+due.Format("Mon Jan 2"), false)
		}
		return a, a.refresh()

	case taskFlaggedMsg:
		if msg.err != nil {
			a.SetStatus("Update task: "+msg.err.Error(), true)
			return a, nil
		}
		a.history.Push(msg.action)
		return a, a.refresh()

	case taskDeletedMsg:
		if msg.err != nil {
			a.SetStatus("Delete task: "+msg.err.Error(), true)
			return a, nil
		}
		a.history.Push(NewDeleteTaskAction(a.store, msg.task))
		a.SetStatus("Deleted: "+truncateText(msg.task.Title, 40)+" (u to undo)", false)
		return a, a.refresh()

	case taskMovedMsg:
		if msg.err != nil {
			a.SetStatus("Move task: "+msg.err.Error(), true)
		}
		return a, a.taskPane.LoadTasksCmd()

	case groupToggledMsg:
		if msg.err != nil {
			a.SetStatus("Group: "+msg.err.Error(), true)
		}
		return a, loadListsCmd(a.store)

	case syncedMsg:
		a.syncBusy = false
		switch {
		case msg.err != nil:
			a.SetStatus("Sync: "+msg.err.Error(), true)
		case msg.remote:
			a.SetStatus("Reloaded changes from another device", false)
		default:
			a.SetStatus("Synced", false)
		}
		return a, a.refresh()

	case remoteChangeMsg:
		if !msg.ok {
			return a, nil
		}
		cmds := []tea.Cmd{waitForChangeCmd(a.config.Changes)}
		if !a.syncBusy {
			a.syncBusy = true
			cmds = append(cmds, syncCmd(a.store, true))
		}
		return a, tea.Batch(cmds...)

	case undoResultMsg:
		a.undoBusy = false
		if msg.err != nil {
			a.SetStatus("Undo failed: "+msg.err.Error(), true)
		} else if msg.desc != "" {
			a.SetStatus("Undid: "+msg.desc, false)
		} else {
			a.SetStatus("Nothing to undo", false)
		}
		return a, a.refresh()

	case redoResultMsg:
		a.undoBusy = false
		if msg.err != nil {
			a.SetStatus("Redo failed: "+msg.err.Error(), true)
		} else if msg.desc != "" {
			a.SetStatus("Redid: "+msg.desc, false)
		} else {
			a.SetStatus("Nothing to redo", false)
		}
		return a, a.refresh()
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateLayout()
		return a, nil

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case tickMsg:
		if a.status != "" && !a.statusUntil.IsZero() && time.Now().After(a.statusUntil) {
			a.status = ""
			a.statusErr = false
			a.statusUntil = time.Time{}
		}
		return a, tickCmd()
	}

	// Anything else (cursor blink) goes to the task pane's input.
	return a, a.taskPane.Update(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.confirmDel != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			cmd := a.confirmDel.cmd
			a.confirmDel = nil
			return cmd
		case "n", "N", "esc":
			a.confirmDel = nil
			a.SetStatus("Canceled", false)
		}
		return nil
	}

	if a.showHelp {
		if key.Matches(msg, a.helpKeys.Close) {
			a.showHelp = false
		}
		return nil
	}

	if a.taskPane.IsAdding() || a.taskPane.IsSearching() {
		return a.taskPane.Update(msg)
	}

	if a.config.ConfirmDeletions && a.activePane == PaneTasks && key.Matches(msg, a.taskPane.keys.Delete) {
		task, ok := a.taskPane.Selected()
		if !ok {
			a.SetStatus("No task selected", true)
			return nil
		}
		a.confirmDel = &confirmDeleteState{
			title: "Delete task?",
			body:  truncateText(task.Title, 60),
			cmd:   deleteTaskCmd(a.store, task.ID),
		}
		return nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.quitting = true
		return tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.showHelp = true
		return nil

	case key.Matches(msg, a.keys.NextPane):
		a.switchPane()
		return nil

	case key.Matches(msg, a.keys.NextList):
		a.sidebar.Step(1)
		return a.activate()

	case key.Matches(msg, a.keys.PrevList):
		a.sidebar.Step(-1)
		return a.activate()

	case key.Matches(msg, a.keys.Undo):
		if a.undoBusy {
			a.SetStatus("Undo: busy", true)
			return nil
		}
		a.undoBusy = true
		return undoCmd(a.history)

	case key.Matches(msg, a.keys.Redo):
		if a.undoBusy {
			a.SetStatus("Redo: busy", true)
			return nil
		}
		a.undoBusy = true
		return redoCmd(a.history)

	case key.Matches(msg, a.keys.Sync):
		if a.syncBusy {
			a.SetStatus("Sync: busy", true)
			return nil
		}
		a.syncBusy = true
		a.SetStatus("Syncing...", false)
		return syncCmd(a.store, false)

	case key.Matches(msg, a.keys.ShowDone):
		show := !a.taskPane.ShowCompleted()
		a.taskPane.SetShowCompleted(show)
		if show {
			a.SetStatus("Showing completed tasks", false)
		} else {
			a.SetStatus("Hiding completed tasks", false)
		}
		return a.taskPane.LoadTasksCmd()

	case key.Matches(msg, a.keys.Sort):
		a.SetStatus("Sort: "+string(a.taskPane.CycleSort()), false)
		return a.taskPane.LoadTasksCmd()

	case key.Matches(msg, a.keys.SearchAll):
		if a.taskPane.ToggleGlobalSearch() {
			a.SetStatus("Searching all lists", false)
		} else {
			a.SetStatus("Searching this view", false)
		}
		return a.taskPane.LoadTasksCmd()
	}

	switch a.activePane {
	case PaneLists:
		return a.afterSidebar(a.sidebar.Update(msg))
	default:
		return a.taskPane.Update(msg)
	}
}

// afterSidebar applies a sidebar selection: opening a list moves focus to
// its tasks and opening a group folds it.
func (a *App) afterSidebar(opened bool, group *sidebarEntry) tea.Cmd {
	switch {
	case group != nil:
		return toggleGroupCmd(a.store, group.groupID, !group.collapsed)
	case opened:
		a.setActivePane(PaneTasks)
		return a.activate()
	}
	return nil
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if a.confirmDel != nil {
		if msg.Action == tea.MouseActionPress {
			a.confirmDel = nil
			a.SetStatus("Canceled", false)
		}
		return nil
	}

	// A click anywhere closes help.
	if a.showHelp {
		if msg.Action == tea.MouseActionPress {
			a.showHelp = false
		}
		return nil
	}

	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft &&
		a.layoutMode == LayoutNarrow && msg.Y == a.contentTop-1 {
		if msg.X < a.width/2 {
			a.setActivePane(PaneLists)
		} else {
			a.setActivePane(PaneTasks)
		}
		return nil
	}

	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if pane := a.paneAtPosition(msg.X); pane >= 0 && pane != a.activePane {
			a.setActivePane(pane)
		}
	}
	if msg.Y < a.contentTop {
		return nil
	}

	local := msg
	local.Y = msg.Y - a.contentTop
	if a.activePane == PaneTasks && a.layoutMode == LayoutWide {
		local.X = msg.X - a.tasksPaneStart
	}
	switch a.activePane {
	case PaneLists:
		return a.afterSidebar(a.sidebar.Update(local))
	default:
		return a.taskPane.Update(local)
	}
}

func (a *App) switchPane() {
	if a.activePane == PaneLists {
		a.setActivePane(PaneTasks)
	} else {
		a.setActivePane(PaneLists)
	}
}

func (a *App) setActivePane(pane PaneID) {
	a.activePane = pane
	a.sidebar.SetFocused(pane == PaneLists)
	a.taskPane.SetFocused(pane == PaneTasks)
}

// paneAtPosition maps a click column to a pane, or -1.
func (a *App) paneAtPosition(x int) PaneID {
	if a.layoutMode == LayoutNarrow {
		return a.activePane
	}
	if x >= a.listsPaneStart && x < a.listsPaneEnd {
		return PaneLists
	}
	if x >= a.tasksPaneStart && x < a.tasksPaneEnd {
		return PaneTasks
	}
	return -1
}

// updateLayout sizes the panes for the current window.
func (a *App) updateLayout() {
	// Leave room for title bar and help bar
	contentHeight := max(a.height-4, 10)
	a.contentTop = 1

	a.helpOverlay.SetSize(a.width, a.height)

	totalWidth := a.width - 2

	threshold := a.config.NarrowLayoutThreshold
	if threshold <= 0 {
		threshold = 80
	}

	if a.width < threshold {
		a.layoutMode = LayoutNarrow

		narrowHeight := max(contentHeight-1, 8)
		paneWidth := max(totalWidth, 20)

		a.sidebar.SetSize(paneWidth, narrowHeight)
		a.taskPane.SetSize(paneWidth, narrowHeight)

		a.listsPaneStart, a.listsPaneEnd = 0, a.width
		a.tasksPaneStart, a.tasksPaneEnd = 0, a.width
		a.contentTop = 2
		return
	}

	a.layoutMode = LayoutWide
	listsWidth := min(max(totalWidth*28/100, 22), 34)
	tasksWidth := totalWidth - listsWidth - 1

	a.sidebar.SetSize(listsWidth, contentHeight)
	a.taskPane.SetSize(tasksWidth, contentHeight)

	a.listsPaneStart = 0
	a.listsPaneEnd = listsWidth
	a.tasksPaneStart = listsWidth + 1
	a.tasksPaneEnd = a.tasksPaneStart + tasksWidth
}

func (a *App) View() string {
	if a.quitting {
		return a.renderGoodbye()
	}

	if a.confirmDel != nil {
		return a.renderConfirmDelete()
	}

	if a.showHelp {
		return a.helpOverlay.View()
	}

	var b strings.Builder

	b.WriteString(a.renderTitleBar())
	b.WriteString("\n")

	switch a.layoutMode {
	case LayoutNarrow:
		b.WriteString(a.renderNarrowContent())
	default:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, a.sidebar.View(), " ", a.taskPane.View()))
	}
	b.WriteString("\n")

	b.WriteString(a.renderHelpBar())

	return b.String()
}

func (a *App) renderConfirmDelete() string {
	overlayWidth := 60
	if a.width > 0 {
		overlayWidth = min(60, max(20, a.width-4))
	}

	overlayStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(a.styles.ColorDanger).
		Padding(1, 2).
		Width(overlayWidth)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(a.styles.ColorDanger).
		MarginBottom(1)

	bodyStyle := lipgloss.NewStyle().
		Foreground(a.styles.ColorText)

	hintStyle := lipgloss.NewStyle().
		Foreground(a.styles.ColorTextMuted)

	var b strings.Builder
	b.WriteString(titleStyle.Render(a.confirmDel.title))
	b.WriteString("\n\n")
	b.WriteString(bodyStyle.Render(a.confirmDel.body))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("[y/enter] delete    [n/esc] cancel"))

	content := overlayStyle.Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, content)
}

func (a *App) renderNarrowContent() string {
	var b strings.Builder

	b.WriteString(a.renderPaneTabs())
	b.WriteString("\n")

	if a.activePane == PaneLists {
		b.WriteString(a.sidebar.View())
	} else {
		b.WriteString(a.taskPane.View())
	}

	return b.String()
}

// renderPaneTabs draws "Lists | Tasks" with the focused one highlighted.
func (a *App) renderPaneTabs() string {
	tabs := []struct {
		id    PaneID
		label string
	}{
		{PaneLists, "Lists"},
		{PaneTasks, a.sidebar.ActiveTitle()},
	}

	activeTabStyle := lipgloss.NewStyle().
		Foreground(a.styles.ColorPrimary).
		Bold(true)
	inactiveTabStyle := lipgloss.NewStyle().
		Foreground(a.styles.ColorTextMuted)

	var parts []string
	for _, tab := range tabs {
		if tab.id == a.activePane {
			parts = append(parts, activeTabStyle.Render("["+tab.label+"]"))
		} else {
			parts = append(parts, inactiveTabStyle.Render(" "+tab.label+" "))
		}
	}

	tabBar := strings.Join(parts, "  ")
	if padding := (a.width - lipgloss.Width(tabBar)) / 2; padding > 0 {
		tabBar = strings.Repeat(" ", padding) + tabBar
	}
	return tabBar
}

// renderGoodbye shows an exit message with the My Day summary.
func (a *App) renderGoodbye() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  See you later!\n")
	b.WriteString("\n")

	open := a.store.Counts()[query.MyDay]
	if open > 0 {
		b.WriteString(fmt.Sprintf("  %d task(s) left in My Day.\n\n", open))
	}
	return b.String()
}

// renderTitleBar creates the top title bar with counts and the date.
func (a *App) renderTitleBar() string {
	title := a.styles.TitleStyle.Render(" myday ")

	var statsItems []string
	for _, s := range []query.SmartList{query.MyDay, query.Planned, query.Important} {
		if n := a.sidebar.Count(s); n > 0 {
			statsItems = append(statsItems, fmt.Sprintf("%s: %d", s.Title(), n))
		}
	}
	stats := a.styles.StatLabelStyle.Render(strings.Join(statsItems, "  "))

	now := a.store.Now().In(a.store.Calendar().Location)
	greeting := ""
	if name := a.store.Profile().DisplayName; name != "" {
		greeting = "Hi " + name + " · "
	}
	date := a.styles.DateStyle.Render(greeting + now.Format("Mon Jan 2 · 15:04"))

	used := lipgloss.Width(title) + lipgloss.Width(stats) + lipgloss.Width(date)
	spacer := max(a.width-used-4, 2)

	var parts []string
	parts = append(parts, title)
	if len(statsItems) > 0 {
		parts = append(parts, "  "+stats)
	}
	parts = append(parts, strings.Repeat(" ", spacer), date)
	return strings.Join(parts, "")
}

// renderHelpBar shows the short help of the focused pane or input.
func (a *App) renderHelpBar() string {
	if a.status != "" {
		if a.statusErr {
			return a.styles.ErrorStyle.Render(a.status)
		}
		return a.styles.StatusStyle.Render(a.status)
	}

	if a.taskPane.IsAdding() {
		return a.styles.RenderHelp(
			"enter", "add",
			"esc", "done",
			"p1-p3", "priority",
		)
	}

	if a.taskPane.IsSearching() {
		return a.styles.RenderHelp(
			"enter", "keep filter",
			"esc", "clear",
		)
	}

	if a.activePane == PaneLists {
		return a.styles.RenderHelp(
			"enter", "open",
			"j/k", "nav",
			"tab", "tasks",
			"?", "help",
		)
	}
	return a.styles.RenderHelp(
		"a", "add",
		"d", "done",
		"i", "important",
		"m", "my day",
		"x", "del",
		"tab", "lists",
		"?", "help",
	)
}

// SetStatus shows msg in the status line for a few seconds.
func (a *App) SetStatus(msg string, isErr bool) {
	a.status = msg
	a.statusErr = isErr
	ttl := 5 * time.Second
	if isErr {
		ttl = 8 * time.Second
	}
	a.statusUntil = time.Now().Add(ttl)
}

// Run starts the Bubble Tea program over st.
func Run(st *store.Store, styles *Styles, cfg *AppConfig) error {
	app := NewApp(st, styles, cfg)
	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
