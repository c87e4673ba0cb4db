// Package model defines the entities shared by the parser, query engine,
// merge and storage layers: tasks, tags, lists, groups and the persisted
// snapshot that holds them.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents task priority levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities for sorting (high=3, medium=2, low=1).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// RepeatRule describes how a task recurs.
type RepeatRule string

const (
	RepeatNone    RepeatRule = "none"
	RepeatDaily   RepeatRule = "daily"
	RepeatWeekly  RepeatRule = "weekly"
	RepeatMonthly RepeatRule = "monthly"
)

// Valid reports whether r is one of the known repeat rules.
func (r RepeatRule) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Next returns the due date of the following occurrence.
// ok is false for RepeatNone.
func (r RepeatRule) Next(due time.Time) (next time.Time, ok bool) {
	switch r {
	case RepeatDaily:
		return due.AddDate(0, 0, 1), true
	case RepeatWeekly:
		return due.AddDate(0, 0, 7), true
	case RepeatMonthly:
		return due.AddDate(0, 1, 0), true
	}
	return time.Time{}, false
}

// Subtask is a checklist item inside a task.
type Subtask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

// Task represents a single todo item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"` // markdown
	IsCompleted bool       `json:"is_completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsImportant bool       `json:"is_important"`
	MyDayDate   *time.Time `json:"my_day_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedAt   time.Time  `json:"created_at"`
	ListID      string     `json:"list_id"`
	ManualOrder float64    `json:"manual_order"`
	Subtasks    []Subtask  `json:"subtasks,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
	Repeat      RepeatRule `json:"repeat"`
}

// NewID returns a time-ordered unique identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewTask returns an open task with a fresh id and both timestamps set to now.
func NewTask(title string, now time.Time) Task {
	return Task{
		ID:        NewID(),
		Title:     title,
		Priority:  PriorityMedium,
		Repeat:    RepeatNone,
		ListID:    DefaultListID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch stamps a mutation. UpdatedAt always moves forward: to now, or one
// nanosecond past its current value when now is not later (a replica with a
// clock ahead of ours, or two edits in one clock tick).
func (t *Task) Touch(now time.Time) {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
		return
	}
	t.UpdatedAt = t.UpdatedAt.Add(time.Nanosecond)
}

// SetCompleted keeps IsCompleted and CompletedAt in lockstep.
func (t *Task) SetCompleted(done bool, now time.Time) {
	if done == t.IsCompleted && (done == (t.CompletedAt != nil)) {
		return
	}
	t.IsCompleted = done
	if done {
		at := now
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	t.Touch(now)
}

// SetMyDay pins the task to the calendar day containing day, or clears it when
// day is nil. The stored value is the start of that day in cal.
func (t *Task) SetMyDay(day *time.Time, cal Calendar) {
	if day == nil {
		t.MyDayDate = nil
		return
	}
	start := cal.StartOfDay(*day)
	t.MyDayDate = &start
}

// InMyDay reports whether the task is pinned to the same calendar day as ref.
func (t *Task) InMyDay(ref time.Time, cal Calendar) bool {
	return t.MyDayDate != nil && cal.SameDay(*t.MyDayDate, ref)
}

// HasTag reports whether the task carries a tag with the given normalized name.
func (t *Task) HasTag(normalized string) bool {
	for _, tag := range t.Tags {
		if NormalizeTagName(tag.Name) == normalized {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.DueDate = cloneTime(t.DueDate)
	out.MyDayDate = cloneTime(t.MyDayDate)
	out.CompletedAt = cloneTime(t.CompletedAt)
	if t.Subtasks != nil {
		out.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	if t.Tags != nil {
		out.Tags = append([]Tag(nil), t.Tags...)
	}
	return out
}

// NextOccurrence returns the follow-up task for a repeating task with a due
// date. Subtasks are reopened and the new task is not completed.
func (t Task) NextOccurrence(now time.Time) (Task, bool) {
	if t.DueDate == nil {
		return Task{}, false
	}
	due, ok := t.Repeat.Next(*t.DueDate)
	if !ok {
		return Task{}, false
	}
	next := t.Clone()
	next.ID = NewID()
	next.DueDate = &due
	next.IsCompleted = false
	next.CompletedAt = nil
	next.MyDayDate = nil
	next.CreatedAt = now
	next.UpdatedAt = now
	for i := range next.Subtasks {
		next.Subtasks[i].ID = NewID()
		next.Subtasks[i].IsCompleted = false
	}
	return next, true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
