// Package ui provides the terminal front end for myday.
package ui

import (
	"errors"
	"sync"

	"myday/internal/model"
	"myday/internal/store"

	"github.com/mattn/go-runewidth"
)

// historyLimit is how many steps the undo history keeps.
const historyLimit = 50

// Action is one reversible edit. Redo may be nil for edits that cannot be
// replayed.
type Action struct {
	Label string
	Undo  func() error
	Redo  func() error
}

// History holds the undo and redo stacks. The store is the single writer, so
// every closure goes through it and History only orders them.
type History struct {
	mu     sync.Mutex
	done   []*Action
	undone []*Action
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Push records a new edit and forgets anything that could be redone.
func (h *History) Push(a *Action) {
	if a == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undone = nil
	if len(h.done) == historyLimit {
		h.done = append(h.done[:0], h.done[1:]...)
	}
	h.done = append(h.done, a)
}

// CanUndo reports whether Undo has something to do.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.done) > 0
}

// CanRedo reports whether Redo has something to do.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undone) > 0
}

// Undo reverts the latest edit and returns its label. An empty history
// returns "" and no error.
func (h *History) Undo() (string, error) {
	return h.step(&h.done, &h.undone, func(a *Action) func() error { return a.Undo }, true)
}

// Redo replays the latest undone edit and returns its label.
func (h *History) Redo() (string, error) {
	return h.step(&h.undone, &h.done, func(a *Action) func() error { return a.Redo }, false)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done, h.undone = nil, nil
}

// step pops from src, runs fn outside the lock and pushes the action onto
// dst. A failed fn puts the action back on src. When needRedo is set,
// actions without a Redo are dropped instead of moved.
func (h *History) step(src, dst *[]*Action, fn func(*Action) func() error, needRedo bool) (string, error) {
	h.mu.Lock()
	n := len(*src)
	if n == 0 {
		h.mu.Unlock()
		return "", nil
	}
	a := (*src)[n-1]
	*src = (*src)[:n-1]
	h.mu.Unlock()

	err := fn(a)()

	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case err != nil:
		*src = append(*src, a)
		return "", err
	case !needRedo || a.Redo != nil:
		*dst = append(*dst, a)
	}
	return a.Label, nil
}

// NewAddTaskAction creates an undoable action for a quick add.
func NewAddTaskAction(st *store.Store, task model.Task) *Action {
	return &Action{
		Label: "Added: " + truncateText(task.Title, 20),
		Undo: func() error {
			_, err := st.DeleteTask(task.ID)
			return err
		},
		Redo: func() error {
			return st.RestoreTask(task)
		},
	}
}

// NewDeleteTaskAction creates an undoable action for task deletion.
// The task is captured before deletion so it can be restored.
func NewDeleteTaskAction(st *store.Store, task model.Task) *Action {
	return &Action{
		Label: "Deleted task: " + truncateText(task.Title, 20),
		Undo: func() error {
			return st.RestoreTask(task)
		},
		Redo: func() error {
			_, err := st.DeleteTask(task.ID)
			return err
		},
	}
}

// NewToggleTaskAction creates an undoable action for a completion toggle.
// Undoing the completion of a repeating task also removes the occurrence it
// spawned.
func NewToggleTaskAction(st *store.Store, before model.Task, spawned *model.Task) *Action {
	desc := "Completed: " + truncateText(before.Title, 20)
	if before.IsCompleted {
		desc = "Reopened: " + truncateText(before.Title, 20)
	}
	return &Action{
		Label: desc,
		Undo: func() error {
			var errs []error
			if spawned != nil {
				if _, err := st.DeleteTask(spawned.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
					errs = append(errs, err)
				}
			}
			_, err := st.SetCompleted(before.ID, before.IsCompleted)
			return errors.Join(append(errs, err)...)
		},
		Redo: func() error {
			if _, err := st.SetCompleted(before.ID, !before.IsCompleted); err != nil {
				return err
			}
			if spawned != nil {
				if err := st.RestoreTask(*spawned); err != nil && !errors.Is(err, store.ErrExists) {
					return err
				}
			}
			return nil
		},
	}
}

// NewImportantAction creates an undoable action for the important flag.
func NewImportantAction(st *store.Store, task model.Task, important bool) *Action {
	desc := "Marked important: " + truncateText(task.Title, 20)
	if !important {
		desc = "Unmarked important: " + truncateText(task.Title, 20)
	}
	return &Action{
		Label: desc,
		Undo: func() error {
			_, err := st.SetImportant(task.ID, !important)
			return err
		},
		Redo: func() error {
			_, err := st.SetImportant(task.ID, important)
			return err
		},
	}
}

// NewMyDayAction creates an undoable action for the My Day pin.
func NewMyDayAction(st *store.Store, task model.Task, pinned bool) *Action {
	pin := func() error {
		_, err := st.AddToMyDay(task.ID)
		return err
	}
	unpin := func() error {
		_, err := st.RemoveFromMyDay(task.ID)
		return err
	}
	if pinned {
		return &Action{
			Label: "Added to My Day: " + truncateText(task.Title, 20),
			Undo:  unpin,
			Redo:  pin,
		}
	}
	return &Action{
		Label: "Removed from My Day: " + truncateText(task.Title, 20),
		Undo:  pin,
		Redo:  unpin,
	}
}

// truncateText shortens text to maxLen cells with an ellipsis if needed.
func truncateText(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	return runewidth.Truncate(text, maxLen, "..")
}
