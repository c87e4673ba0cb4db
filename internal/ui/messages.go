// Package ui provides the terminal front end for myday.
// This file defines message types for store operations using the Bubble Tea
// command pattern. Every store call returns one of these messages so that
// the event loop stays non-blocking.
package ui

import (
	"myday/internal/model"
	"myday/internal/query"
	"myday/internal/watch"
)

// =============================================================================
// Undo/Redo Messages
// =============================================================================

// undoResultMsg carries the label of the reverted step.
type undoResultMsg struct {
	desc string
	err  error
}

// redoResultMsg carries the label of the replayed step.
type redoResultMsg struct {
	desc string
	err  error
}

// =============================================================================
// Load Messages
// =============================================================================

// tasksLoadedMsg carries the rows of the current view. For the Planned view
// buckets is set and tasks is the buckets flattened in order.
type tasksLoadedMsg struct {
	sel     query.Selector
	tasks   []model.Task
	buckets []query.Bucket
}

// listsLoadedMsg carries everything the sidebar shows.
type listsLoadedMsg struct {
	lists      []model.List
	groups     []model.Group
	counts     map[query.SmartList]int
	listCounts map[string]int
}

// =============================================================================
// Task Messages
// =============================================================================

// taskAddedMsg is sent after a quick add. created is false when the text
// parsed to an empty title.
type taskAddedMsg struct {
	task    model.Task
	created bool
	err     error
}

// taskToggledMsg is sent when a task's completion flips.
type taskToggledMsg struct {
	before  model.Task
	after   model.Task
	spawned *model.Task // next occurrence of a repeating task
	err     error
}

// taskFlaggedMsg is sent when the important flag or the My Day pin changes.
type taskFlaggedMsg struct {
	action *Action
	err    error
}

// taskDeletedMsg carries the removed task so the delete can be undone.
type taskDeletedMsg struct {
	task model.Task // full task for restoration on undo
	err  error
}

// taskMovedMsg is sent after a manual reorder.
type taskMovedMsg struct {
	err error
}

// groupToggledMsg is sent when a sidebar group is folded or unfolded.
type groupToggledMsg struct {
	err error
}

// =============================================================================
// Sync Messages
// =============================================================================

// syncedMsg is sent when a reload from both replicas completes.
type syncedMsg struct {
	remote bool // triggered by a watched change rather than a key press
	err    error
}

// remoteChangeMsg is sent when the cloud folder changed on disk. ok is false
// once the watcher has stopped.
type remoteChangeMsg struct {
	change watch.Change
	ok     bool
}
