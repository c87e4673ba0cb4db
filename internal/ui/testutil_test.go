package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"myday/internal/config"
	"myday/internal/model"
	"myday/internal/storage"
	"myday/internal/store"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// testNow is Wednesday 2026-02-11 15:00 UTC.
var testNow = time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC)

// setupTest prepares the test environment for deterministic rendering.
// It disables colors to ensure consistent output across environments.
func setupTest(t *testing.T) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
}

// createTestStore creates a Store over a temporary directory with a fixed
// clock.
func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	dual := storage.NewDual(storage.NewDirReplica("local", t.TempDir(), nil), nil, nil)
	st, err := store.Open(context.Background(), dual, store.Options{
		Calendar: model.NewCalendar(time.UTC),
		Now:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

// createTestStyles creates a default Styles instance for testing.
func createTestStyles() *Styles {
	return NewStylesFromTheme(&config.ThemeConfig{})
}

// createTestApp creates an app sized for the wide layout with its data
// loaded. Deletions are not confirmed unless confirm is set.
func createTestApp(t *testing.T, st *store.Store, confirm bool) *App {
	t.Helper()
	app := NewApp(st, createTestStyles(), &AppConfig{
		Keys:                  &config.KeysConfig{},
		ConfirmDeletions:      confirm,
		NarrowLayoutThreshold: 80,
	})
	// A static cursor keeps the text input from scheduling blink timers.
	app.taskPane.input.Cursor.SetMode(cursor.CursorStatic)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	run(app, app.refresh())
	return app
}

// run executes cmd and feeds the resulting messages back into the app until
// nothing is left. Only messages produced by this package are delivered.
func run(app *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			run(app, c)
		}
	case tasksLoadedMsg, listsLoadedMsg, taskAddedMsg, taskToggledMsg, taskFlaggedMsg,
		taskDeletedMsg, taskMovedMsg, groupToggledMsg, syncedMsg, undoResultMsg, redoResultMsg:
		_, next := app.Update(msg)
		run(app, next)
	}
}

// press sends a key to the app and runs the resulting commands.
func press(app *App, k string) {
	_, cmd := app.Update(keyMsg(k))
	run(app, cmd)
}

// typeText sends text to the app as one rune burst.
func typeText(app *App, text string) {
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	run(app, cmd)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	case "ctrl+y":
		return tea.KeyMsg{Type: tea.KeyCtrlY}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// titles returns the titles of the rows in the task pane.
func titles(p *TaskPane) []string {
	out := make([]string, len(p.tasks))
	for i, t := range p.tasks {
		out[i] = t.Title
	}
	return out
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
