package store

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"myday/internal/model"
	"myday/internal/query"
)

const (
	maxTitleLen = 200
	maxNotesLen = 10000
	maxTagLen   = 40
)

// Draft describes a task to create.
type Draft struct {
	Title     string
	Notes     string
	ListID    string
	Priority  model.Priority
	DueDate   *time.Time
	Important bool
	MyDay     bool
	Repeat    model.RepeatRule
	Tags      []string
	Subtasks  []string
}

// Patch lists the task fields to change. Nil fields are left alone.
type Patch struct {
	Title    *string
	Notes    *string
	Priority *model.Priority
	DueDate  *time.Time
	ClearDue bool
	Repeat   *model.RepeatRule
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", fmt.Errorf("title (max %d): %w", maxTitleLen, ErrTooLong)
	}
	return title, nil
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return fmt.Errorf("notes (max %d): %w", maxNotesLen, ErrTooLong)
	}
	return nil
}

// QuickAdd parses text and creates the task in the view it was typed into:
// a user list adds it there, My Day pins it to today and Important flags it.
// Other views use the default list. When the parse leaves no title nothing
// is created and created is false.
func (s *Store) QuickAdd(text string, target query.Selector) (task model.Task, created bool, err error) {
	res := s.parser.Parse(text)
	if res.Empty() {
		return model.Task{}, false, nil
	}
	d := Draft{
		Title:    res.Title,
		Priority: res.Priority,
		DueDate:  res.DueDate,
		Repeat:   res.Repeat,
		ListID:   target.ListID,
	}
	switch target.Smart {
	case query.MyDay:
		d.MyDay = true
	case query.Important:
		d.Important = true
	}
	task, err = s.CreateTask(d)
	if err != nil {
		return model.Task{}, false, err
	}
	return task, true, nil
}

// CreateTask creates a task from d. An unknown list id falls back to the
// default list.
func (s *Store) CreateTask(d Draft) (model.Task, error) {
	title, err := validateTitle(d.Title)
	if err != nil {
		return model.Task{}, err
	}
	if err := validateNotes(d.Notes); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Task{}, err
	}

	now := s.Now()
	t := model.NewTask(title, now)
	t.Notes = d.Notes
	if d.Priority.Valid() {
		t.Priority = d.Priority
	}
	if d.Repeat.Valid() {
		t.Repeat = d.Repeat
	}
	if d.DueDate != nil {
		due := *d.DueDate
		t.DueDate = &due
	}
	t.IsImportant = d.Important
	if d.MyDay {
		t.SetMyDay(&now, s.cal)
	}
	if s.snap.HasList(d.ListID) {
		t.ListID = d.ListID
	}
	catalog := model.TagCatalog(s.snap.Tasks)
	for _, name := range d.Tags {
		if tag, ok := resolveTag(catalog, name, model.DefaultTagColor); ok && !t.HasTag(model.NormalizeTagName(tag.Name)) {
			t.Tags = append(t.Tags, tag)
		}
	}
	model.SortTags(t.Tags)
	for _, sub := range d.Subtasks {
		if sub = strings.TrimSpace(sub); sub != "" {
			t.Subtasks = append(t.Subtasks, model.Subtask{ID: model.NewID(), Title: sub})
		}
	}
	t.ManualOrder = model.NextManualOrder(s.snap.Tasks, t.ListID)

	s.snap.Tasks = append(s.snap.Tasks, t)
	s.changedLocked("add", "task", t.Title)
	return t.Clone(), nil
}

// resolveTag reuses the id and colour of a catalog tag with the same
// normalized name, or makes a new tag.
func resolveTag(catalog []model.Tag, name string, color model.TagColor) (model.Tag, bool) {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	if name == "" || utf8.RuneCountInString(name) > maxTagLen {
		return model.Tag{}, false
	}
	key := model.NormalizeTagName(name)
	for _, tag := range catalog {
		if model.NormalizeTagName(tag.Name) == key {
			return tag, true
		}
	}
	return model.NewTag(name, color), true
}

// mutate applies fn to the task with id and records the change. fn returns
// the operation name for the save context, or "" when nothing changed.
func (s *Store) mutate(id string, fn func(t *model.Task, now time.Time) (string, error)) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Task{}, err
	}
	t, err := s.taskLocked(id)
	if err != nil {
		return model.Task{}, err
	}
	now := s.Now()
	op, err := fn(t, now)
	if err != nil {
		return model.Task{}, err
	}
	if op != "" {
		t.Touch(now)
		s.changedLocked(op, "task", t.Title)
	}
	return t.Clone(), nil
}

// ToggleCompleted flips completion. Completing a repeating task that has a
// due date also creates its next occurrence, which is returned as spawned.
func (s *Store) ToggleCompleted(id string) (task model.Task, spawned *model.Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Task{}, nil, err
	}
	t, err := s.taskLocked(id)
	if err != nil {
		return model.Task{}, nil, err
	}
	now := s.Now()
	done := !t.IsCompleted
	t.SetCompleted(done, now)
	task = t.Clone()

	if !done {
		s.changedLocked("uncomplete", "task", task.Title)
		return task, nil, nil
	}
	s.changedLocked("complete", "task", task.Title)

	next, ok := task.NextOccurrence(now)
	if !ok {
		return task, nil, nil
	}
	next.ManualOrder = model.NextManualOrder(s.snap.Tasks, next.ListID)
	s.snap.Tasks = append(s.snap.Tasks, next)
	s.changedLocked("repeat", "task", next.Title)
	out := next.Clone()
	return task, &out, nil
}

// SetCompleted sets completion explicitly without spawning repeats. It is
// used to undo a toggle.
func (s *Store) SetCompleted(id string, done bool) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, now time.Time) (string, error) {
		if t.IsCompleted == done {
			return "", nil
		}
		t.SetCompleted(done, now)
		if done {
			return "complete", nil
		}
		return "uncomplete", nil
	})
}

// SetImportant sets the important flag.
func (s *Store) SetImportant(id string, important bool) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		if t.IsImportant == important {
			return "", nil
		}
		t.IsImportant = important
		return "update", nil
	})
}

// AddToMyDay pins the task to today.
func (s *Store) AddToMyDay(id string) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, now time.Time) (string, error) {
		if t.InMyDay(now, s.cal) {
			return "", nil
		}
		t.SetMyDay(&now, s.cal)
		return "myday", nil
	})
}

// RemoveFromMyDay clears the My Day pin.
func (s *Store) RemoveFromMyDay(id string) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		if t.MyDayDate == nil {
			return "", nil
		}
		t.SetMyDay(nil, s.cal)
		return "myday", nil
	})
}

// UpdateTask applies p.
func (s *Store) UpdateTask(id string, p Patch) (model.Task, error) {
	var title string
	if p.Title != nil {
		v, err := validateTitle(*p.Title)
		if err != nil {
			return model.Task{}, err
		}
		title = v
	}
	if p.Notes != nil {
		if err := validateNotes(*p.Notes); err != nil {
			return model.Task{}, err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return model.Task{}, fmt.Errorf("invalid priority %q: must be low, medium, or high", *p.Priority)
	}
	if p.Repeat != nil && !p.Repeat.Valid() {
		return model.Task{}, fmt.Errorf("invalid repeat %q", *p.Repeat)
	}

	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		if p.Title != nil {
			t.Title = title
		}
		if p.Notes != nil {
			t.Notes = *p.Notes
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		switch {
		case p.ClearDue:
			t.DueDate = nil
		case p.DueDate != nil:
			due := *p.DueDate
			t.DueDate = &due
		}
		if p.Repeat != nil {
			t.Repeat = *p.Repeat
		}
		return "update", nil
	})
}

// MoveTask moves the task to the end of another list and closes the gap it
// leaves behind.
func (s *Store) MoveTask(id, listID string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Task{}, err
	}
	if !s.snap.HasList(listID) {
		return model.Task{}, fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	t, err := s.taskLocked(id)
	if err != nil {
		return model.Task{}, err
	}
	if t.ListID == listID {
		return t.Clone(), nil
	}
	now := s.Now()
	from := t.ListID
	t.ManualOrder = model.NextManualOrder(s.snap.Tasks, listID)
	t.ListID = listID
	t.Touch(now)
	moved := t.Clone()
	s.compactLocked(from, now)
	s.changedLocked("move", "task", moved.Title)
	return moved, nil
}

// Reorder moves the task to position index (0-based) among the tasks of its
// list in manual order, then renumbers the list 1..n.
func (s *Store) Reorder(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	t, err := s.taskLocked(id)
	if err != nil {
		return err
	}
	now := s.Now()
	s.compactLocked(t.ListID, now)

	n := 0
	for i := range s.snap.Tasks {
		if s.snap.Tasks[i].ListID == t.ListID {
			n++
		}
	}
	from := t.ManualOrder
	to := float64(max(0, min(index, n-1)) + 1)
	if to == from {
		return nil
	}
	// Land between the task now at the target slot and its neighbour on the
	// side the task comes from.
	if to < from {
		t.ManualOrder = to - 0.5
	} else {
		t.ManualOrder = to + 0.5
	}
	t.Touch(now)
	s.compactLocked(t.ListID, now)
	s.changedLocked("reorder", "task", t.Title)
	return nil
}

// compactLocked renumbers a list and touches every task whose order changed.
func (s *Store) compactLocked(listID string, now time.Time) {
	for _, i := range model.CompactManualOrder(s.snap.Tasks, listID) {
		s.snap.Tasks[i].Touch(now)
	}
}

// AddSubtask appends a subtask.
func (s *Store) AddSubtask(id, title string) (model.Subtask, error) {
	title, err := validateTitle(title)
	if err != nil {
		return model.Subtask{}, err
	}
	sub := model.Subtask{ID: model.NewID(), Title: title}
	_, err = s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		t.Subtasks = append(t.Subtasks, sub)
		return "update", nil
	})
	return sub, err
}

// ToggleSubtask flips a subtask.
func (s *Store) ToggleSubtask(id, subtaskID string) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].IsCompleted = !t.Subtasks[i].IsCompleted
				return "update", nil
			}
		}
		return "", fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	})
}

// RemoveSubtask deletes a subtask.
func (s *Store) RemoveSubtask(id, subtaskID string) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks = append(t.Subtasks[:i:i], t.Subtasks[i+1:]...)
				return "update", nil
			}
		}
		return "", fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	})
}

// AddTag labels the task. A tag already used elsewhere keeps its id and
// colour; color applies only to a new tag.
func (s *Store) AddTag(id, name string, color model.TagColor) (model.Task, error) {
	s.mu.Lock()
	catalog := model.TagCatalog(s.snap.Tasks)
	s.mu.Unlock()
	tag, ok := resolveTag(catalog, name, color)
	if !ok {
		return model.Task{}, fmt.Errorf("invalid tag %q", name)
	}
	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		if t.HasTag(model.NormalizeTagName(tag.Name)) {
			return "", nil
		}
		t.Tags = append(append([]model.Tag(nil), t.Tags...), tag)
		model.SortTags(t.Tags)
		return "tag", nil
	})
}

// RemoveTag removes the tag with the same normalized name.
func (s *Store) RemoveTag(id, name string) (model.Task, error) {
	key := model.NormalizeTagName(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	return s.mutate(id, func(t *model.Task, _ time.Time) (string, error) {
		kept := t.Tags[:0:0]
		for _, tag := range t.Tags {
			if model.NormalizeTagName(tag.Name) != key {
				kept = append(kept, tag)
			}
		}
		if len(kept) == len(t.Tags) {
			return "", nil
		}
		t.Tags = kept
		return "untag", nil
	})
}

// DeleteTask removes the task and compacts its list. The removed task is
// returned for undo.
func (s *Store) DeleteTask(id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Task{}, err
	}
	i := s.snap.TaskIndex(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	removed := s.snap.Tasks[i]
	s.snap.Tasks = append(s.snap.Tasks[:i:i], s.snap.Tasks[i+1:]...)
	s.compactLocked(removed.ListID, s.Now())
	s.changedLocked("delete", "task", removed.Title)
	return removed.Clone(), nil
}

// RestoreTask puts back a task returned by DeleteTask at its old position.
// Its id and timestamps are preserved.
func (s *Store) RestoreTask(task model.Task) error {
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id is required")
	}
	if _, err := validateTitle(task.Title); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if s.snap.TaskIndex(task.ID) >= 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrExists)
	}
	task = task.Clone()
	if !s.snap.HasList(task.ListID) {
		task.ListID = model.DefaultListID
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.Now()
	}
	task.SetCompleted(task.IsCompleted, task.UpdatedAt)
	now := s.Now()
	task.Touch(now)
	task.ManualOrder -= 0.5
	s.snap.Tasks = append(s.snap.Tasks, task)
	s.compactLocked(task.ListID, now)
	s.changedLocked("restore", "task", task.Title)
	return nil
}
