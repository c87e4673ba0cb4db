package query

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"

	"myday/internal/model"
)

// SortOption orders a task view.
type SortOption string

const (
	SortManual    SortOption = "manual"
	SortDueDate   SortOption = "due_date"
	SortPriority  SortOption = "priority"
	SortCreated   SortOption = "created_at"
	SortCompleted SortOption = "completed_at"
)

// DefaultCacheSize bounds the number of memoized sort results.
const DefaultCacheSize = 20

// Sort returns tasks in the requested order. Manual order keeps the input
// order. Results are memoized by the sort option and a signature of every
// field a comparator reads, plus the update time.
func (e *Engine) Sort(tasks []model.Task, opt SortOption) []model.Task {
	if opt == SortManual || opt == "" || len(tasks) < 2 {
		return tasks
	}
	less := comparator(opt)
	if less == nil {
		return tasks
	}

	key := cacheKey(opt, tasks)
	if order, ok := e.cache.get(key); ok {
		if out, ok := applyOrder(tasks, order); ok {
			return out
		}
	}

	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })

	order := make([]string, len(out))
	for i := range out {
		order[i] = out[i].ID
	}
	e.cache.put(key, order)
	return out
}

// CacheStats reports sort cache hits and misses.
func (e *Engine) CacheStats() (hits, misses int) {
	return e.cache.stats()
}

func comparator(opt SortOption) func(a, b *model.Task) bool {
	switch opt {
	case SortDueDate:
		return byDueDate
	case SortPriority:
		return byPriority
	case SortCreated:
		return newestFirst
	case SortCompleted:
		return byCompletedAt
	}
	return nil
}

// byDueDate: due ascending with no due date last, then important first, then
// priority rank descending, then newest created first.
func byDueDate(a, b *model.Task) bool {
	if c := compareDue(a.DueDate, b.DueDate); c != 0 {
		return c < 0
	}
	if a.IsImportant != b.IsImportant {
		return a.IsImportant
	}
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	return newestFirst(a, b)
}

// byPriority: priority rank descending, then due ascending with no due date
// last, then newest created first.
func byPriority(a, b *model.Task) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	if c := compareDue(a.DueDate, b.DueDate); c != 0 {
		return c < 0
	}
	return newestFirst(a, b)
}

func newestFirst(a, b *model.Task) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

// byCompletedAt: most recently completed first, never completed last.
func byCompletedAt(a, b *model.Task) bool {
	switch {
	case a.CompletedAt == nil && b.CompletedAt == nil:
		return false
	case a.CompletedAt == nil:
		return false
	case b.CompletedAt == nil:
		return true
	}
	return a.CompletedAt.After(*b.CompletedAt)
}

func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func cacheKey(opt SortOption, tasks []model.Task) string {
	h := sha256.New()
	buf := make([]byte, 0, 64)
	for i := range tasks {
		t := &tasks[i]
		buf = append(buf[:0], t.ID...)
		buf = append(buf, '|')
		buf = appendTime(buf, &t.UpdatedAt)
		buf = appendTime(buf, &t.CreatedAt)
		buf = appendTime(buf, t.DueDate)
		buf = appendTime(buf, t.CompletedAt)
		buf = append(buf, string(t.Priority)...)
		buf = strconv.AppendBool(buf, t.IsCompleted)
		buf = strconv.AppendBool(buf, t.IsImportant)
		buf = append(buf, ';')
		h.Write(buf)
	}
	return string(opt) + ":" + hex.EncodeToString(h.Sum(nil))
}

// appendTime writes t as Unix nanoseconds, or "-" for nil.
func appendTime(buf []byte, t *time.Time) []byte {
	if t == nil {
		return append(buf, "-,"...)
	}
	return append(strconv.AppendInt(buf, t.UnixNano(), 10), ',')
}

func applyOrder(tasks []model.Task, order []string) ([]model.Task, bool) {
	if len(order) != len(tasks) {
		return nil, false
	}
	byID := make(map[string]int, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = i
	}
	out := make([]model.Task, 0, len(tasks))
	for _, id := range order {
		i, ok := byID[id]
		if !ok {
			return nil, false
		}
		out = append(out, tasks[i])
	}
	return out, true
}

// sortCache is a bounded FIFO map from cache key to id order.
type sortCache struct {
	mu     sync.Mutex
	max    int
	keys   []string
	orders map[string][]string
	hits   int
	misses int
}

func newSortCache(size int) *sortCache {
	return &sortCache{max: size, orders: make(map[string][]string, size)}
}

func (c *sortCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return order, ok
}

func (c *sortCache) put(key string, order []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[key]; ok {
		c.orders[key] = order
		return
	}
	c.orders[key] = order
	c.keys = append(c.keys, key)
	for len(c.keys) > c.max {
		delete(c.orders, c.keys[0])
		c.keys = c.keys[1:]
	}
}

func (c *sortCache) stats() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *sortCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

// Bucket is one day of the Planned view. Day is nil for tasks without a due
// date.
type Bucket struct {
	Day   *time.Time
	Tasks []model.Task
}

// GroupPlanned buckets tasks by the start of their due day. Buckets are in
// ascending day order with the no-due-date bucket last, and tasks inside a
// bucket use the due-date order.
func (e *Engine) GroupPlanned(tasks []model.Task, cal model.Calendar) []Bucket {
	sorted := e.Sort(tasks, SortDueDate)

	var (
		buckets []Bucket
		undated []model.Task
	)
	for _, t := range sorted {
		if t.DueDate == nil {
			undated = append(undated, t)
			continue
		}
		day := cal.StartOfDay(*t.DueDate)
		if n := len(buckets); n > 0 && buckets[n-1].Day.Equal(day) {
			buckets[n-1].Tasks = append(buckets[n-1].Tasks, t)
			continue
		}
		buckets = append(buckets, Bucket{Day: &day, Tasks: []model.Task{t}})
	}
	if len(undated) > 0 {
		buckets = append(buckets, Bucket{Tasks: undated})
	}
	return buckets
}

// Planned returns the Planned view grouped by day.
func (e *Engine) Planned(all []model.Task, q Query, selectedTag string, ref time.Time, cal model.Calendar) []Bucket {
	q.Sort = SortDueDate
	return e.GroupPlanned(e.Tasks(all, Smart(Planned), q, selectedTag, false, ref, cal), cal)
}
