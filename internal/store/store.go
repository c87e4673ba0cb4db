// Package store is the single writer over the in-memory snapshot. Every
// mutation runs under one lock, bumps updated_at and schedules a debounced
// write through storage.Dual. Reads go through the query engine.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"myday/internal/merge"
	"myday/internal/model"
	"myday/internal/quickadd"
	"myday/internal/query"
	"myday/internal/storage"
)

// DefaultDebounce is how long the store waits after the last mutation before
// writing.
const DefaultDebounce = 400 * time.Millisecond

var (
	ErrNotFound    = errors.New("not found")
	ErrEmptyTitle  = errors.New("title is required")
	ErrTooLong     = errors.New("value too long")
	ErrClosed      = errors.New("store is closed")
	ErrDefaultList = errors.New("the default list cannot be deleted")
	ErrExists      = errors.New("already exists")
)

// SaveContext describes a persisted change, for semantic commit messages
// such as "Complete task: Review PR".
type SaveContext struct {
	Filename  string // file written in the data directory
	Operation string // add, complete, uncomplete, update, delete, restore, move, ...
	ItemType  string // task, list, group, profile, prefs
	ItemName  string // short human-readable name
}

// Options configures a Store.
type Options struct {
	Calendar model.Calendar
	Locale   string
	Debounce time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Store owns the current snapshot.
type Store struct {
	mu       sync.Mutex
	snap     *model.Snapshot
	dirty    bool
	pending  []SaveContext
	timer    *time.Timer
	closed   bool
	onSave   func(SaveContext)
	debounce time.Duration

	writeMu sync.Mutex // serializes writes; held across I/O, never under mu

	dual   *storage.Dual
	engine *query.Engine
	parser *quickadd.Parser
	cal    model.Calendar
	locale string
	now    func() time.Time
	logger *slog.Logger
}

// Open loads the snapshot through dual and returns a store over it. Replica
// failures are logged and do not prevent opening.
func Open(ctx context.Context, dual *storage.Dual, opts Options) (*Store, error) {
	if dual == nil || dual.Local == nil {
		return nil, errors.New("store needs a local replica")
	}
	s := newStore(dual, opts)
	snap, err := dual.Load(ctx)
	if err != nil {
		s.logger.Warn("opened with degraded storage", "error", err)
	}
	s.snap = snap
	return s, nil
}

func newStore(dual *storage.Dual, opts Options) *Store {
	s := &Store{
		dual:     dual,
		engine:   query.NewEngine(),
		cal:      opts.Calendar,
		locale:   opts.Locale,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		now:      opts.Now,
		snap:     model.NewSnapshot(),
	}
	if s.cal.Location == nil {
		s.cal = model.NewCalendar(time.Local)
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.parser = quickadd.New(s.cal, quickadd.WithClock(s.Now), quickadd.WithLocale(s.locale))
	return s
}

// Now returns the current time according to the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Calendar returns the calendar used for day boundaries.
func (s *Store) Calendar() model.Calendar { return s.cal }

// Parser returns the quick-add parser bound to the store clock.
func (s *Store) Parser() *quickadd.Parser { return s.parser }

// SetOnSave registers fn to be called after each successful local write, once
// per change included in that write.
func (s *Store) SetOnSave(fn func(SaveContext)) {
	s.mu.Lock()
	s.onSave = fn
	s.mu.Unlock()
}

// truncateForCommit shortens s to at most maxLen runes.
func truncateForCommit(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

// changedLocked records a mutation and (re)arms the write timer. A newer
// mutation stops a timer that has not fired yet; a write already in progress
// is left alone and the next one picks up the new state.
func (s *Store) changedLocked(op, itemType, name string) {
	s.dirty = true
	s.pending = append(s.pending, SaveContext{
		Filename:  storage.SnapshotFile,
		Operation: op,
		ItemType:  itemType,
		ItemName:  truncateForCommit(name, 50),
	})
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Warn("background save failed", "error", err)
		}
	})
}

// Flush writes pending changes now.
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.flushLocked(ctx)
}

// flushLocked requires writeMu.
func (s *Store) flushLocked(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.snap.Clone()
	pending := s.pending
	s.pending = nil
	s.dirty = false
	onSave := s.onSave
	s.mu.Unlock()

	err := s.dual.Persist(ctx, snap)
	failed := storage.FailedReplicas(err)
	if err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
	}
	if slices.Contains(failed, s.dual.Local.Name()) {
		s.mu.Lock()
		s.pending = append(pending, s.pending...)
		s.mu.Unlock()
		return fmt.Errorf("save: %w", err)
	}
	if onSave != nil {
		for _, sc := range pending {
			onSave(sc)
		}
	}
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Close flushes pending changes and stops scheduling background writes.
// Mutations after Close fail with ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

// Sync flushes, then reloads both replicas through the merge and adopts the
// result. Changes made while the reload runs are merged over it.
func (s *Store) Sync(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	flushErr := s.flushLocked(ctx)
	merged, err := s.dual.Load(ctx)

	s.mu.Lock()
	if s.dirty {
		merged = merge.Snapshots(s.snap, merged)
	}
	s.snap = merged
	s.mu.Unlock()
	return errors.Join(flushErr, err)
}

func (s *Store) checkOpenLocked() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) taskLocked(id string) (*model.Task, error) {
	i := s.snap.TaskIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &s.snap.Tasks[i], nil
}

// =============================================================================
// Read side
// =============================================================================

// allTasksLocked returns deep copies ordered by manual order, the order the
// query engine treats as "manual".
func (s *Store) allTasksLocked() []model.Task {
	out := make([]model.Task, len(s.snap.Tasks))
	for i, t := range s.snap.Tasks {
		out[i] = t.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ManualOrder != out[j].ManualOrder {
			return out[i].ManualOrder < out[j].ManualOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Tasks returns the tasks of a view.
func (s *Store) Tasks(sel query.Selector, q query.Query, selectedTag string, globalSearch bool) []model.Task {
	s.mu.Lock()
	all := s.allTasksLocked()
	s.mu.Unlock()
	return s.engine.Tasks(all, sel, q, selectedTag, globalSearch, s.Now(), s.cal)
}

// Planned returns the Planned view grouped by due day.
func (s *Store) Planned(q query.Query, selectedTag string) []query.Bucket {
	s.mu.Lock()
	all := s.allTasksLocked()
	s.mu.Unlock()
	return s.engine.Planned(all, q, selectedTag, s.Now(), s.cal)
}

// Counts returns the size of every smart list.
func (s *Store) Counts() map[query.SmartList]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Counts(s.snap.Tasks, s.Now(), s.cal)
}

// ListCounts returns the number of open tasks per user list.
func (s *Store) ListCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.ListCounts(s.snap.Tasks)
}

// Task returns a copy of the task with id.
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.snap.TaskIndex(id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.snap.Tasks[i].Clone(), true
}

// TagCatalog returns every distinct tag in use.
func (s *Store) TagCatalog() []model.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.TagCatalog(s.snap.Tasks)
}

// Lists returns the user lists ordered by manual order, default list first.
func (s *Store) Lists() []model.List {
	s.mu.Lock()
	lists := append([]model.List(nil), s.snap.Lists...)
	s.mu.Unlock()
	sort.SliceStable(lists, func(i, j int) bool {
		if (lists[i].ID == model.DefaultListID) != (lists[j].ID == model.DefaultListID) {
			return lists[i].ID == model.DefaultListID
		}
		return lists[i].ManualOrder < lists[j].ManualOrder
	})
	return lists
}

// Groups returns the list groups ordered by manual order.
func (s *Store) Groups() []model.Group {
	s.mu.Lock()
	groups := append([]model.Group(nil), s.snap.Groups...)
	s.mu.Unlock()
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].ManualOrder < groups[j].ManualOrder })
	return groups
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Profile returns the profile singleton.
func (s *Store) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Profile
}

// Prefs returns the preferences singleton.
func (s *Store) Prefs() model.AppPrefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.AppPrefs
}
