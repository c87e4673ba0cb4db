package model

import (
	"sort"
	"time"
)

// DefaultListID is the list every orphaned task falls back to.
const DefaultListID = "default"

// DefaultListTitle is the title given to a freshly created default list.
const DefaultListTitle = "Tasks"

// List is a user-defined container of tasks.
type List struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Icon        string    `json:"icon,omitempty"`
	Theme       string    `json:"theme,omitempty"`
	GroupID     string    `json:"group_id,omitempty"`
	ManualOrder float64   `json:"manual_order"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntityID implements the merge contract for structural entities.
func (l List) EntityID() string { return l.ID }

// Stamp implements the merge contract for structural entities.
func (l List) Stamp() time.Time { return l.UpdatedAt }

// DefaultList returns the distinguished fallback list.
func DefaultList() List {
	return List{ID: DefaultListID, Title: DefaultListTitle, Icon: "☰", ManualOrder: 0}
}

// Group folds lists together in the sidebar.
type Group struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ManualOrder float64   `json:"manual_order"`
	IsCollapsed bool      `json:"is_collapsed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntityID implements the merge contract for structural entities.
func (g Group) EntityID() string { return g.ID }

// Stamp implements the merge contract for structural entities.
func (g Group) Stamp() time.Time { return g.UpdatedAt }

// NextManualOrder returns max(manual_order)+1 over the tasks of listID.
func NextManualOrder(tasks []Task, listID string) float64 {
	var hi float64
	for _, t := range tasks {
		if t.ListID == listID && t.ManualOrder > hi {
			hi = t.ManualOrder
		}
	}
	return hi + 1
}

// CompactManualOrder renumbers the tasks of listID to 1..n, keeping their
// current relative order (ties broken by creation time, then id).
// It returns the indexes of the tasks whose value changed.
func CompactManualOrder(tasks []Task, listID string) []int {
	var idx []int
	for i := range tasks {
		if tasks[i].ListID == listID {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := tasks[idx[a]], tasks[idx[b]]
		if ta.ManualOrder != tb.ManualOrder {
			return ta.ManualOrder < tb.ManualOrder
		}
		if !ta.CreatedAt.Equal(tb.CreatedAt) {
			return ta.CreatedAt.Before(tb.CreatedAt)
		}
		return ta.ID < tb.ID
	})
	var changed []int
	for rank, i := range idx {
		want := float64(rank + 1)
		if tasks[i].ManualOrder != want {
			tasks[i].ManualOrder = want
			changed = append(changed, i)
		}
	}
	return changed
}
