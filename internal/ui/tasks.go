package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"myday/internal/config"
	"myday/internal/model"
	"myday/internal/quickadd"
	"myday/internal/query"
	"myday/internal/store"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// inputMode is what the text input is being used for.
type inputMode int

const (
	inputNone inputMode = iota
	inputAdd
	inputSearch
)

// sortCycle is the order the sort key steps through.
var sortCycle = []query.SortOption{
	query.SortManual,
	query.SortDueDate,
	query.SortPriority,
	query.SortCreated,
	query.SortCompleted,
}

// taskLine is one rendered row: a task or a Planned bucket header.
type taskLine struct {
	header string
	task   int // index into tasks, -1 for headers
}

// TaskPane shows the tasks of the active view and hosts quick add and search.
type TaskPane struct {
	tasks   []model.Task
	buckets []query.Bucket
	cursor  int
	focused bool
	width   int
	height  int
	mode    inputMode
	input   textinput.Model
	preview quickadd.Result
	view    viewState
	title   string
	store   *store.Store
	styles  *Styles

	keys      TaskKeyMap
	inputKeys InputKeyMap
}

// NewTaskPane creates a task pane over st showing My Day.
func NewTaskPane(st *store.Store, styles *Styles, keyCfg *config.KeysConfig) *TaskPane {
	if keyCfg == nil {
		keyCfg = &config.KeysConfig{}
	}
	ti := textinput.New()
	ti.Placeholder = "Add a task, e.g. 明天下午3点开会 p1 or call mom friday 6pm"
	ti.CharLimit = 200
	ti.Width = 40

	return &TaskPane{
		focused:   true,
		input:     ti,
		view:      viewState{sel: query.Smart(query.MyDay)},
		title:     query.MyDay.Title(),
		store:     st,
		styles:    styles,
		keys:      NewTaskKeyMap(keyCfg),
		inputKeys: NewInputKeyMap(keyCfg),
	}
}

// LoadTasksCmd returns a command that queries the current view.
func (p *TaskPane) LoadTasksCmd() tea.Cmd {
	return loadTasksCmd(p.store, p.view)
}

// SetView switches to sel and resets the cursor.
func (p *TaskPane) SetView(sel query.Selector, title string) {
	if p.view.sel != sel {
		p.cursor = 0
	}
	p.view.sel = sel
	p.title = title
}

// View state accessors used by the app.
func (p *TaskPane) Selector() query.Selector { return p.view.sel }
func (p *TaskPane) Sort() query.SortOption  { return p.view.query.Sort }
func (p *TaskPane) ShowCompleted() bool     { return p.view.query.ShowCompleted }
func (p *TaskPane) GlobalSearch() bool      { return p.view.global }
func (p *TaskPane) SearchText() string      { return p.view.query.Text }

// SetShowCompleted sets whether completed tasks are listed.
func (p *TaskPane) SetShowCompleted(show bool) {
	p.view.query.ShowCompleted = show
}

// CycleSort steps to the next sort order and returns it.
func (p *TaskPane) CycleSort() query.SortOption {
	cur := p.view.query.Sort
	if cur == "" {
		cur = query.SortManual
	}
	next := sortCycle[0]
	for i, o := range sortCycle {
		if o == cur {
			next = sortCycle[(i+1)%len(sortCycle)]
			break
		}
	}
	p.view.query.Sort = next
	return next
}

// ToggleGlobalSearch switches between searching the view and every list.
func (p *TaskPane) ToggleGlobalSearch() bool {
	p.view.global = !p.view.global
	return p.view.global
}

// setTasks replaces the rows and clamps the cursor.
func (p *TaskPane) setTasks(msg tasksLoadedMsg) {
	p.tasks = msg.tasks
	p.buckets = msg.buckets
	if p.cursor >= len(p.tasks) {
		p.cursor = max(0, len(p.tasks)-1)
	}
}

// Selected returns the task under the cursor.
func (p *TaskPane) Selected() (model.Task, bool) {
	if p.cursor < 0 || p.cursor >= len(p.tasks) {
		return model.Task{}, false
	}
	return p.tasks[p.cursor], true
}

func (p *TaskPane) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.input.Width = max(10, width-6)
}

func (p *TaskPane) SetFocused(focused bool) {
	p.focused = focused
}

func (p *TaskPane) IsFocused() bool {
	return p.focused
}

// IsAdding returns whether quick add is open.
func (p *TaskPane) IsAdding() bool {
	return p.mode == inputAdd
}

// IsSearching returns whether the search field is open.
func (p *TaskPane) IsSearching() bool {
	return p.mode == inputSearch
}

func (p *TaskPane) closeInput() {
	p.mode = inputNone
	p.input.Reset()
	p.input.Blur()
	p.preview = quickadd.Result{}
}

// Update handles keys, mouse and input events for the pane.
func (p *TaskPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	if msg, ok := msg.(tasksLoadedMsg); ok {
		if msg.sel == p.view.sel {
			p.setTasks(msg)
		}
		return nil
	}

	switch p.mode {
	case inputAdd:
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(msg, p.inputKeys.Confirm):
				text := strings.TrimSpace(p.input.Value())
				p.input.Reset()
				p.preview = quickadd.Result{}
				if text == "" {
					p.closeInput()
					return nil
				}
				// Stay open for the next task.
				return quickAddCmd(p.store, text, p.view.sel)
			case key.Matches(msg, p.inputKeys.Cancel):
				p.closeInput()
				return nil
			}
		}
		p.input, cmd = p.input.Update(msg)
		p.preview = p.store.Parser().Parse(p.input.Value())
		return cmd

	case inputSearch:
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(msg, p.inputKeys.Confirm):
				p.mode = inputNone
				p.input.Blur()
				return nil
			case key.Matches(msg, p.inputKeys.Cancel):
				p.closeInput()
				p.view.query.Text = ""
				p.view.global = false
				return p.LoadTasksCmd()
			}
		}
		p.input, cmd = p.input.Update(msg)
		if text := p.input.Value(); text != p.view.query.Text {
			p.view.query.Text = text
			return tea.Batch(cmd, p.LoadTasksCmd())
		}
		return cmd
	}

	if !p.focused {
		return nil
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		return p.handleMouse(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Down):
			if len(p.tasks) > 0 {
				p.cursor = min(p.cursor+1, len(p.tasks)-1)
			}

		case key.Matches(msg, p.keys.Up):
			if len(p.tasks) > 0 {
				p.cursor = max(p.cursor-1, 0)
			}

		case key.Matches(msg, p.keys.Top):
			p.cursor = 0

		case key.Matches(msg, p.keys.Bottom):
			if len(p.tasks) > 0 {
				p.cursor = len(p.tasks) - 1
			}

		case key.Matches(msg, p.keys.Add):
			p.mode = inputAdd
			p.input.Placeholder = "Add a task, e.g. 明天下午3点开会 p1 or call mom friday 6pm"
			p.input.Focus()
			return textinput.Blink

		case key.Matches(msg, p.keys.Search):
			p.mode = inputSearch
			p.input.Placeholder = "Search titles and notes"
			p.input.SetValue(p.view.query.Text)
			p.input.CursorEnd()
			p.input.Focus()
			return textinput.Blink

		case key.Matches(msg, p.keys.MoveUp), key.Matches(msg, p.keys.MoveDown):
			if !p.canReorder() {
				return nil
			}
			task, ok := p.Selected()
			if !ok {
				return nil
			}
			delta := 1
			if key.Matches(msg, p.keys.MoveUp) {
				delta = -1
			}
			p.cursor = max(0, min(p.cursor+delta, len(p.tasks)-1))
			return reorderTaskCmd(p.store, task.ID, delta)
		}

		task, ok := p.Selected()
		if !ok {
			return nil
		}
		switch {
		case key.Matches(msg, p.keys.Toggle):
			return toggleTaskCmd(p.store, task.ID)
		case key.Matches(msg, p.keys.Important):
			return toggleImportantCmd(p.store, task)
		case key.Matches(msg, p.keys.MyDay):
			return toggleMyDayCmd(p.store, task)
		case key.Matches(msg, p.keys.Delete):
			return deleteTaskCmd(p.store, task.ID)
		}
	}

	return nil
}

// canReorder reports whether rows are shown in a list's manual order.
func (p *TaskPane) canReorder() bool {
	return p.view.sel.ListID != "" && !p.view.global && p.view.query.Text == "" &&
		(p.view.query.Sort == "" || p.view.query.Sort == query.SortManual)
}

// maxLines is how many rows fit between the title and the input area.
func (p *TaskPane) maxLines() int {
	n := p.height - 7
	if p.mode != inputNone {
		n -= 3
	}
	if n < 3 {
		n = 5
	}
	return n
}

// lines lays out the rows, inserting a header before each Planned bucket.
func (p *TaskPane) lines() []taskLine {
	out := make([]taskLine, 0, len(p.tasks)+len(p.buckets))
	if len(p.buckets) == 0 {
		for i := range p.tasks {
			out = append(out, taskLine{task: i})
		}
		return out
	}
	i := 0
	for _, b := range p.buckets {
		out = append(out, taskLine{header: p.bucketLabel(b.Day), task: -1})
		for range b.Tasks {
			out = append(out, taskLine{task: i})
			i++
		}
	}
	return out
}

// window returns the first visible line so that the cursor stays in view.
func (p *TaskPane) window(lines []taskLine) int {
	maxLines := p.maxLines()
	cursorLine := 0
	for i, l := range lines {
		if l.task == p.cursor {
			cursorLine = i
			break
		}
	}
	if cursorLine >= maxLines {
		return cursorLine - maxLines + 1
	}
	return 0
}

func (p *TaskPane) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if len(p.tasks) == 0 {
		return nil
	}

	// rows 0 and 1 are the title and the rule
	const headerRows = 2

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		p.cursor = max(p.cursor-1, 0)
		return nil

	case tea.MouseButtonWheelDown:
		p.cursor = min(p.cursor+1, len(p.tasks)-1)
		return nil

	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return nil
		}
		lines := p.lines()
		start := p.window(lines)
		row := msg.Y - headerRows
		if row < 0 || row >= p.maxLines() || start+row >= len(lines) {
			return nil
		}
		idx := lines[start+row].task
		if idx < 0 {
			return nil
		}
		p.cursor = idx

		// Checkbox format: " ![ ] " - about 5 chars
		if msg.X < 5 {
			return toggleTaskCmd(p.store, p.tasks[idx].ID)
		}
	}

	return nil
}

func (p *TaskPane) View() string {
	var b strings.Builder

	title := strings.ToUpper(p.title)
	if p.view.global && p.view.query.Text != "" {
		title = "SEARCH ALL LISTS"
	}
	b.WriteString(p.styles.PaneTitleStyle.Render(title))
	b.WriteString("\n")

	sepWidth := p.width - 4
	if sepWidth < 10 {
		sepWidth = 30
	}
	b.WriteString(lipgloss.NewStyle().Foreground(p.styles.ColorMuted).Render(strings.Repeat("─", sepWidth)))
	b.WriteString("\n")

	if len(p.tasks) == 0 {
		empty := "  Nothing here. Press 'a' to add a task."
		if p.view.query.Text != "" {
			empty = "  No tasks match \"" + p.view.query.Text + "\"."
		}
		b.WriteString(lipgloss.NewStyle().Foreground(p.styles.ColorTextMuted).Italic(true).Render(empty))
		b.WriteString("\n")
	} else {
		lines := p.lines()
		start := p.window(lines)
		end := min(start+p.maxLines(), len(lines))
		for _, l := range lines[start:end] {
			if l.task < 0 {
				b.WriteString(" " + p.styles.BucketStyle.Render(l.header))
			} else {
				b.WriteString(p.renderTask(l.task))
			}
			b.WriteString("\n")
		}

		b.WriteString("\n")
		done, total := p.Stats()
		summary := fmt.Sprintf("%d/%d complete", done, total)
		if s := p.view.query.Sort; s != "" && s != query.SortManual {
			summary += " · sort: " + string(s)
		}
		if p.view.query.Text != "" && p.mode != inputSearch {
			summary += " · filter: " + p.view.query.Text
		}
		b.WriteString("  " + p.styles.StatLabelStyle.Render(summary))
		b.WriteString("\n")
	}

	switch p.mode {
	case inputAdd:
		b.WriteString("\n")
		b.WriteString(p.styles.InputPromptStyle.Render("+ ") + p.input.View())
		b.WriteString("\n")
		if line := p.renderPreview(); line != "" {
			b.WriteString("  " + line)
			b.WriteString("\n")
		}
	case inputSearch:
		b.WriteString("\n")
		b.WriteString(p.styles.InputPromptStyle.Render("/ ") + p.input.View())
		b.WriteString("\n")
	}

	style := p.styles.PaneStyle
	if p.focused {
		style = p.styles.PaneFocusedStyle
	}
	return style.Width(p.width).Height(p.height).Render(b.String())
}

// renderTask draws one task row.
func (p *TaskPane) renderTask(i int) string {
	task := p.tasks[i]
	now := p.store.Now()
	cal := p.store.Calendar()

	badge := p.formatPriorityBadge(task.Priority)
	checkbox := p.styles.TaskCheckboxPending
	if task.IsCompleted {
		checkbox = p.styles.TaskCheckboxDone
	}

	marks := p.formatMarks(task, now, cal)
	due := p.formatDueDate(task.DueDate, now, cal)
	marksWidth := lipgloss.Width(marks)
	dueWidth := lipgloss.Width(due)

	// Layout: [space][priority][checkbox][space][text][marks][pad][due]
	fixedWidth := 6 + marksWidth
	if dueWidth > 0 {
		fixedWidth += dueWidth + 1
	}
	avail := max(p.width-4-fixedWidth, 5)

	text := runewidth.Truncate(task.Title, avail, "..")
	pad := max(avail-runewidth.StringWidth(text), 1)
	tail := marks
	if dueWidth > 0 {
		tail += strings.Repeat(" ", pad) + due
	}

	if i == p.cursor && p.focused && p.mode == inputNone {
		return p.styles.TaskSelectedStyle.Render(" " + badge + checkbox + " " + text + tail + " ")
	}
	styled := p.styles.TaskPendingStyle.Render(text)
	if task.IsCompleted {
		styled = p.styles.TaskDoneStyle.Render(text)
	}
	return " " + badge + checkbox + " " + styled + tail
}

// formatMarks renders the flags after the title: important, My Day, repeat,
// subtask progress and tags.
func (p *TaskPane) formatMarks(task model.Task, now time.Time, cal model.Calendar) string {
	var parts []string
	if task.IsImportant && p.view.sel.Smart != query.Important {
		parts = append(parts, p.styles.ImportantMark)
	}
	if p.view.sel.Smart != query.MyDay && task.InMyDay(now, cal) {
		parts = append(parts, p.styles.MyDayMark)
	}
	if task.Repeat != "" && task.Repeat != model.RepeatNone {
		parts = append(parts, p.styles.RepeatMark)
	}
	if n := len(task.Subtasks); n > 0 {
		done := 0
		for _, s := range task.Subtasks {
			if s.IsCompleted {
				done++
			}
		}
		parts = append(parts, p.styles.StatLabelStyle.Render(fmt.Sprintf("%d/%d", done, n)))
	}
	for _, t := range task.Tags {
		parts = append(parts, p.styles.TagStyle.Render("#"+t.Name))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// renderPreview shows what quick add recognized so far.
func (p *TaskPane) renderPreview() string {
	if len(p.preview.Tokens) == 0 {
		return ""
	}
	text := previewText(p.preview, p.store.Calendar())
	return p.styles.PreviewStyle.Render("→ ") + p.styles.PreviewTokStyle.Render(text)
}

// previewText summarizes a parse result, e.g.
// "开会 · due Wed Feb 11 15:00 · high · weekly".
func previewText(res quickadd.Result, cal model.Calendar) string {
	title := res.Title
	if title == "" {
		title = "(no title)"
	}
	parts := []string{title}
	if res.DueDate != nil {
		due := res.DueDate.In(cal.Location)
		layout := "Mon Jan 2"
		if res.HasTime {
			layout = "Mon Jan 2 15:04"
		}
		parts = append(parts, "due "+due.Format(layout))
	}
	if res.Priority != "" && res.Priority != model.PriorityMedium {
		parts = append(parts, string(res.Priority))
	}
	if res.Repeat != "" && res.Repeat != model.RepeatNone {
		parts = append(parts, string(res.Repeat))
	}
	return strings.Join(parts, " · ")
}

// bucketLabel names a Planned bucket relative to today.
func (p *TaskPane) bucketLabel(day *time.Time) string {
	if day == nil {
		return "No date"
	}
	cal := p.store.Calendar()
	switch days := dayDiff(*day, p.store.Now(), cal); {
	case days < 0:
		return "Overdue · " + day.In(cal.Location).Format("Mon Jan 2")
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	default:
		return day.In(cal.Location).Format("Mon Jan 2")
	}
}

// Stats returns task statistics for the rows in view.
func (p *TaskPane) Stats() (done, total int) {
	for _, task := range p.tasks {
		if task.IsCompleted {
			done++
		}
	}
	return done, len(p.tasks)
}

// formatPriorityBadge marks high and low priority; medium has no badge.
// Returns: "!" for high, "·" for low, " " for medium
func (p *TaskPane) formatPriorityBadge(priority model.Priority) string {
	switch priority {
	case model.PriorityHigh:
		return p.styles.PriorityHighStyle.Render("!")
	case model.PriorityLow:
		return p.styles.PriorityLowStyle.Render("·")
	default:
		return " "
	}
}

// dayDiff counts calendar days from now to t.
func dayDiff(t, now time.Time, cal model.Calendar) int {
	d := cal.StartOfDay(t).Sub(cal.StartOfDay(now)).Hours() / 24
	return int(math.Round(d))
}

// formatDueDate renders the due date in at most four cells: "!" overdue,
// "T" today, "+1" tomorrow, then "3d", "2w" and ">1m".
func (p *TaskPane) formatDueDate(dueDate *time.Time, now time.Time, cal model.Calendar) string {
	if dueDate == nil {
		return ""
	}

	days := dayDiff(*dueDate, now, cal)

	switch {
	case days < 0:
		return p.styles.DueDateOverdueStyle.Render("!")
	case days == 0:
		return p.styles.DueDateTodayStyle.Render("T")
	case days == 1:
		return p.styles.DueDateFutureStyle.Render("+1")
	case days <= 7:
		return p.styles.DueDateFutureStyle.Render(fmt.Sprintf("%dd", days))
	case days <= 30:
		return p.styles.DueDateFutureStyle.Render(fmt.Sprintf("%dw", days/7))
	default:
		return p.styles.DueDateFutureStyle.Render(">1m")
	}
}
