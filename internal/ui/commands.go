// Package ui provides the terminal front end for myday.
// This file contains tea.Cmd factories that wrap store operations. Each
// command returns a corresponding message type defined in messages.go.
package ui

import (
	"context"
	"time"

	"myday/internal/model"
	"myday/internal/query"
	"myday/internal/store"
	"myday/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
)

// syncTimeout bounds a reload from both replicas.
const syncTimeout = 30 * time.Second

// viewState is what the task pane asks the store for.
type viewState struct {
	sel    query.Selector
	query  query.Query
	tag    string
	global bool
}

// =============================================================================
// Load Commands
// =============================================================================

// loadTasksCmd returns a command that queries the current view.
func loadTasksCmd(st *store.Store, v viewState) tea.Cmd {
	return func() tea.Msg {
		if v.sel.Smart == query.Planned && !v.global {
			buckets := st.Planned(v.query, v.tag)
			var flat []model.Task
			for _, b := range buckets {
				flat = append(flat, b.Tasks...)
			}
			return tasksLoadedMsg{sel: v.sel, tasks: flat, buckets: buckets}
		}
		return tasksLoadedMsg{sel: v.sel, tasks: st.Tasks(v.sel, v.query, v.tag, v.global)}
	}
}

// loadListsCmd returns a command that collects the sidebar contents.
func loadListsCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		return listsLoadedMsg{
			lists:      st.Lists(),
			groups:     st.Groups(),
			counts:     st.Counts(),
			listCounts: st.ListCounts(),
		}
	}
}

// =============================================================================
// Task Commands
// =============================================================================

// quickAddCmd parses text and creates the task in the view it was typed into.
func quickAddCmd(st *store.Store, text string, target query.Selector) tea.Cmd {
	return func() tea.Msg {
		task, created, err := st.QuickAdd(text, target)
		return taskAddedMsg{task: task, created: created, err: err}
	}
}

// toggleTaskCmd flips completion, capturing the prior state for undo.
func toggleTaskCmd(st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		before, _ := st.Task(id)
		after, spawned, err := st.ToggleCompleted(id)
		return taskToggledMsg{before: before, after: after, spawned: spawned, err: err}
	}
}

// toggleImportantCmd flips the important flag.
func toggleImportantCmd(st *store.Store, task model.Task) tea.Cmd {
	return func() tea.Msg {
		want := !task.IsImportant
		if _, err := st.SetImportant(task.ID, want); err != nil {
			return taskFlaggedMsg{err: err}
		}
		return taskFlaggedMsg{action: NewImportantAction(st, task, want)}
	}
}

// toggleMyDayCmd pins the task to today or removes the pin.
func toggleMyDayCmd(st *store.Store, task model.Task) tea.Cmd {
	return func() tea.Msg {
		cal := st.Calendar()
		was := task.InMyDay(st.Now(), cal)
		var err error
		if was {
			_, err = st.RemoveFromMyDay(task.ID)
		} else {
			_, err = st.AddToMyDay(task.ID)
		}
		if err != nil {
			return taskFlaggedMsg{err: err}
		}
		return taskFlaggedMsg{action: NewMyDayAction(st, task, !was)}
	}
}

// deleteTaskCmd removes a task. The store hands back the removed task for
// undo restoration.
func deleteTaskCmd(st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		task, err := st.DeleteTask(id)
		return taskDeletedMsg{task: task, err: err}
	}
}

// reorderTaskCmd moves a task delta slots within its list's manual order.
func reorderTaskCmd(st *store.Store, id string, delta int) tea.Cmd {
	return func() tea.Msg {
		task, ok := st.Task(id)
		if !ok {
			return taskMovedMsg{err: store.ErrNotFound}
		}
		full := st.Tasks(query.List(task.ListID), query.Query{ShowCompleted: true}, "", false)
		for i := range full {
			if full[i].ID == id {
				return taskMovedMsg{err: st.Reorder(id, i+delta)}
			}
		}
		return taskMovedMsg{err: store.ErrNotFound}
	}
}

// toggleGroupCmd folds or unfolds a sidebar group.
func toggleGroupCmd(st *store.Store, id string, collapsed bool) tea.Cmd {
	return func() tea.Msg {
		return groupToggledMsg{err: st.SetGroupCollapsed(id, collapsed)}
	}
}

// undoCmd and redoCmd run the history step off the update loop.
func undoCmd(h *History) tea.Cmd {
	return func() tea.Msg {
		label, err := h.Undo()
		return undoResultMsg{desc: label, err: err}
	}
}

func redoCmd(h *History) tea.Cmd {
	return func() tea.Msg {
		label, err := h.Redo()
		return redoResultMsg{desc: label, err: err}
	}
}

// =============================================================================
// Sync Commands
// =============================================================================

// syncCmd flushes and reloads both replicas through the merge.
func syncCmd(st *store.Store, remote bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		return syncedMsg{remote: remote, err: st.Sync(ctx)}
	}
}

// waitForChangeCmd blocks until the watcher reports a change. Returns nil if
// there is no watcher.
func waitForChangeCmd(changes <-chan watch.Change) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-changes
		return remoteChangeMsg{change: c, ok: ok}
	}
}
