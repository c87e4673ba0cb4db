// Package query derives the task views shown to the user: smart-list
// membership, tag and text filters, sort orders and the day buckets of the
// Planned view.
package query

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"myday/internal/model"
)

// SmartList names a computed view.
type SmartList string

const (
	Inbox     SmartList = "inbox"
	MyDay     SmartList = "my_day"
	Important SmartList = "important"
	Planned   SmartList = "planned"
	Completed SmartList = "completed"
	All       SmartList = "all"
)

// SmartLists is the sidebar order of the computed views.
var SmartLists = []SmartList{MyDay, Important, Planned, Inbox, Completed, All}

// Title returns the display name of a smart list.
func (s SmartList) Title() string {
	switch s {
	case Inbox:
		return "Inbox"
	case MyDay:
		return "My Day"
	case Important:
		return "Important"
	case Planned:
		return "Planned"
	case Completed:
		return "Completed"
	case All:
		return "All"
	}
	return string(s)
}

// Selector picks either a smart list or a user list.
type Selector struct {
	Smart  SmartList
	ListID string
}

// Smart selects a smart list.
func Smart(s SmartList) Selector { return Selector{Smart: s} }

// List selects the user list with id.
func List(id string) Selector { return Selector{ListID: id} }

// ParseSelector maps a smart-list name to its selector and anything else to
// a user list id.
func ParseSelector(s string) Selector {
	name := SmartList(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, sl := range SmartLists {
		if sl == name {
			return Smart(sl)
		}
	}
	if name == "myday" {
		return Smart(MyDay)
	}
	return List(strings.TrimSpace(s))
}

func (s Selector) String() string {
	if s.Smart != "" {
		return string(s.Smart)
	}
	return "list:" + s.ListID
}

// Query carries the secondary filters and the sort order.
type Query struct {
	Text          string
	Tags          []string
	ShowCompleted bool
	Sort          SortOption
}

// Member reports whether t belongs to the view sel at ref.
func Member(t *model.Task, sel Selector, ref time.Time, cal model.Calendar) bool {
	if sel.Smart == "" {
		return t.ListID == sel.ListID
	}
	open := !t.IsCompleted
	switch sel.Smart {
	case Inbox:
		return open && t.DueDate == nil && !inMyDay(t, ref, cal)
	case MyDay:
		return open && inMyDay(t, ref, cal)
	case Important:
		return open && t.IsImportant
	case Planned:
		return open && t.DueDate != nil
	case Completed:
		return t.IsCompleted
	case All:
		return true
	}
	return false
}

func inMyDay(t *model.Task, ref time.Time, cal model.Calendar) bool {
	return t.MyDayDate != nil && cal.SameDay(*t.MyDayDate, ref)
}

// Engine filters and sorts tasks. It memoizes sort results and is safe for
// concurrent use.
type Engine struct {
	cache *sortCache
}

// NewEngine returns an engine with a sort cache of DefaultCacheSize entries.
func NewEngine() *Engine {
	return &Engine{cache: newSortCache(DefaultCacheSize)}
}

// Tasks returns the tasks of the selected view, filtered and sorted.
//
// When globalSearch is set and q.Text is not blank the selector is ignored and
// every task is searched.
func (e *Engine) Tasks(all []model.Task, sel Selector, q Query, selectedTag string, globalSearch bool, ref time.Time, cal model.Calendar) []model.Task {
	text := strings.TrimSpace(q.Text)
	bypass := globalSearch && text != ""

	fold := cases.Fold()
	needle := fold.String(text)
	tags := tagFilter(q.Tags, selectedTag)

	out := make([]model.Task, 0, len(all))
	for i := range all {
		t := &all[i]
		if !bypass && !Member(t, sel, ref, cal) {
			continue
		}
		if !q.ShowCompleted && t.IsCompleted && !(sel.Smart == Completed && !bypass) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(t, tags) {
			continue
		}
		if needle != "" && !matches(t, needle, fold) {
			continue
		}
		out = append(out, *t)
	}
	return e.Sort(out, q.Sort)
}

// Counts returns the number of open tasks in each smart list, plus the
// number of completed tasks.
func (e *Engine) Counts(all []model.Task, ref time.Time, cal model.Calendar) map[SmartList]int {
	counts := make(map[SmartList]int, len(SmartLists))
	for i := range all {
		for _, sl := range SmartLists {
			if sl == All && all[i].IsCompleted {
				continue
			}
			if Member(&all[i], Smart(sl), ref, cal) {
				counts[sl]++
			}
		}
	}
	return counts
}

// ListCounts returns the number of open tasks per user list id.
func ListCounts(all []model.Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range all {
		if !t.IsCompleted {
			counts[t.ListID]++
		}
	}
	return counts
}

func tagFilter(tags []string, selected string) map[string]bool {
	set := make(map[string]bool, len(tags)+1)
	for _, name := range tags {
		if n := model.NormalizeTagName(name); n != "" {
			set[n] = true
		}
	}
	if n := model.NormalizeTagName(selected); n != "" {
		set[n] = true
	}
	return set
}

func hasAnyTag(t *model.Task, set map[string]bool) bool {
	for _, tag := range t.Tags {
		if set[model.NormalizeTagName(tag.Name)] {
			return true
		}
	}
	return false
}

func matches(t *model.Task, needle string, fold cases.Caser) bool {
	if strings.Contains(fold.String(t.Title), needle) || strings.Contains(fold.String(t.Notes), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(fold.String(tag.Name), needle) {
			return true
		}
	}
	return false
}

// ParseSort maps a user-facing name to a sort option.
func ParseSort(s string) (SortOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "manual":
		return SortManual, nil
	case "due", "due_date":
		return SortDueDate, nil
	case "priority":
		return SortPriority, nil
	case "created", "created_at":
		return SortCreated, nil
	case "completed", "completed_at":
		return SortCompleted, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}
