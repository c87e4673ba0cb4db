// Package merge reconciles two independently edited replicas of the same
// data. It is a pure function of its inputs and never fails.
package merge

import (
	"sort"
	"time"

	"myday/internal/model"
)

// Window is the largest updated_at gap treated as a near-simultaneous edit.
// Inside the window the two records are unioned field by field instead of
// the newer one overwriting the older.
const Window = time.Second

// Task merges two versions of the same task.
func Task(local, remote model.Task) model.Task {
	newer, older := local, remote
	if remote.UpdatedAt.After(local.UpdatedAt) {
		newer, older = remote, local
	}

	out := newer.Clone()
	gap := local.UpdatedAt.Sub(remote.UpdatedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap <= Window {
		out.Tags = unionTags(newer.Tags, older.Tags)
		out.Subtasks = unionSubtasks(newer.Subtasks, older.Subtasks)
		if out.Notes == "" && older.Notes != "" {
			out.Notes = older.Notes
		}
		out.MyDayDate = laterOf(newer.MyDayDate, older.MyDayDate)
		out.CompletedAt = laterOf(newer.CompletedAt, older.CompletedAt)
		out.IsCompleted = out.CompletedAt != nil
	}
	out.UpdatedAt = maxTime(local.UpdatedAt, remote.UpdatedAt)
	return out
}

// Tasks merges two task collections. Tasks present on both sides are merged
// with Task; local-only tasks keep their position; remote-only tasks are
// appended ordered by (updated_at, created_at).
func Tasks(local, remote []model.Task) []model.Task {
	remoteByID := make(map[string]int, len(remote))
	for i, t := range remote {
		remoteByID[t.ID] = i
	}

	out := make([]model.Task, 0, len(local)+len(remote))
	matched := make(map[string]bool, len(local))
	for _, l := range local {
		if i, ok := remoteByID[l.ID]; ok && !matched[l.ID] {
			out = append(out, Task(l, remote[i]))
			matched[l.ID] = true
			continue
		}
		if matched[l.ID] {
			continue
		}
		matched[l.ID] = true
		out = append(out, l.Clone())
	}

	var extra []model.Task
	for _, r := range remote {
		if matched[r.ID] {
			continue
		}
		matched[r.ID] = true
		extra = append(extra, r.Clone())
	}
	sort.SliceStable(extra, func(i, j int) bool {
		a, b := extra[i], extra[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return append(out, extra...)
}

// Entity is a structural record merged wholesale by its timestamp.
type Entity interface {
	EntityID() string
	Stamp() time.Time
}

// Entities merges two collections matched by id. On collision the record
// with the later stamp wins, ties going to local. Unmatched records from
// either side are kept, local first.
func Entities[E Entity](local, remote []E) []E {
	remoteByID := make(map[string]E, len(remote))
	for _, r := range remote {
		remoteByID[r.EntityID()] = r
	}
	seen := make(map[string]bool, len(local)+len(remote))
	out := make([]E, 0, len(local)+len(remote))
	for _, l := range local {
		if seen[l.EntityID()] {
			continue
		}
		seen[l.EntityID()] = true
		if r, ok := remoteByID[l.EntityID()]; ok && r.Stamp().After(l.Stamp()) {
			out = append(out, r)
			continue
		}
		out = append(out, l)
	}
	for _, r := range remote {
		if seen[r.EntityID()] {
			continue
		}
		seen[r.EntityID()] = true
		out = append(out, r)
	}
	return out
}

// Snapshots merges two snapshots into a new, normalized one. Either side may
// be nil, which counts as empty.
func Snapshots(local, remote *model.Snapshot) *model.Snapshot {
	if local == nil {
		local = model.NewSnapshot()
	}
	if remote == nil {
		remote = model.NewSnapshot()
	}

	out := &model.Snapshot{
		SchemaVersion: model.SchemaVersion,
		Tasks:         Tasks(local.Tasks, remote.Tasks),
		Lists:         Entities(local.Lists, remote.Lists),
		Groups:        Entities(local.Groups, remote.Groups),
		Profile:       local.Profile,
		AppPrefs:      local.AppPrefs,
	}
	if remote.Profile.UpdatedAt.After(local.Profile.UpdatedAt) {
		out.Profile = remote.Profile
	}
	if remote.AppPrefs.UpdatedAt.After(local.AppPrefs.UpdatedAt) {
		out.AppPrefs = remote.AppPrefs
	}
	out.Normalize()
	compactCollisions(out.Tasks)
	return out
}

// compactCollisions renumbers every list in which two tasks share a manual
// order, as happens when two devices each append to the same list. Lists
// without a collision keep their values. UpdatedAt is left alone so every
// device merging the same inputs gets the same result.
func compactCollisions(tasks []model.Task) {
	type slot struct {
		list  string
		order float64
	}
	seen := make(map[slot]bool, len(tasks))
	dup := make(map[string]bool)
	for _, t := range tasks {
		k := slot{t.ListID, t.ManualOrder}
		if seen[k] {
			dup[t.ListID] = true
		}
		seen[k] = true
	}
	for listID := range dup {
		model.CompactManualOrder(tasks, listID)
	}
}

// unionTags unions by normalized name. The newer side's spelling wins and the
// result is sorted case-insensitively.
func unionTags(newer, older []model.Tag) []model.Tag {
	if len(newer) == 0 && len(older) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(newer)+len(older))
	var out []model.Tag
	for _, side := range [][]model.Tag{newer, older} {
		for _, tag := range side {
			key := model.NormalizeTagName(tag.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, tag)
		}
	}
	model.SortTags(out)
	return out
}

// unionSubtasks unions by id keeping the newer side's order first. On
// collision the kept title is used unless empty, and completion is OR'd.
func unionSubtasks(newer, older []model.Subtask) []model.Subtask {
	if len(newer) == 0 && len(older) == 0 {
		return nil
	}
	olderByID := make(map[string]model.Subtask, len(older))
	for _, s := range older {
		olderByID[s.ID] = s
	}
	seen := make(map[string]bool, len(newer)+len(older))
	out := make([]model.Subtask, 0, len(newer)+len(older))
	for _, s := range newer {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		if o, ok := olderByID[s.ID]; ok {
			if s.Title == "" {
				s.Title = o.Title
			}
			s.IsCompleted = s.IsCompleted || o.IsCompleted
		}
		out = append(out, s)
	}
	for _, s := range older {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	}
	v := maxTime(*a, *b)
	return &v
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
