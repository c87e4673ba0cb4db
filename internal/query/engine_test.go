package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myday/internal/model"
)

var (
	ref = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	cal = model.NewCalendar(time.UTC)
)

type opt func(*model.Task)

func due(d time.Time) opt { return func(t *model.Task) { t.DueDate = &d } }
func myDay(d time.Time) opt { return func(t *model.Task) { s := cal.StartOfDay(d); t.MyDayDate = &s } }
func important() opt { return func(t *model.Task) { t.IsImportant = true } }
func done(at time.Time) opt { return func(t *model.Task) { t.SetCompleted(true, at) } }
func prio(p model.Priority) opt { return func(t *model.Task) { t.Priority = p } }
func created(at time.Time) opt { return func(t *model.Task) { t.CreatedAt = at } }
func inList(id string) opt { return func(t *model.Task) { t.ListID = id } }
func notes(s string) opt { return func(t *model.Task) { t.Notes = s } }
func tags(names ...string) opt {
	return func(t *model.Task) {
		for _, n := range names {
			t.Tags = append(t.Tags, model.NewTag(n, model.TagBlue))
		}
	}
}

func task(id string, opts ...opt) model.Task {
	t := model.NewTask(id, ref.Add(-time.Hour))
	t.ID = id
	for _, o := range opts {
		o(&t)
	}
	return t
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSmartListMembership(t *testing.T) {
	yesterday := ref.AddDate(0, 0, -1)
	all := []model.Task{
		task("inbox"),
		task("myday", myDay(ref)),
		task("stale-myday", myDay(yesterday)),
		task("important", important()),
		task("planned", due(ref.AddDate(0, 0, 3))),
		task("overdue", due(yesterday), important()),
		task("done", done(ref)),
	}
	e := NewEngine()
	q := Query{ShowCompleted: true}

	tests := []struct {
		sel  SmartList
		want []string
	}{
		{Inbox, []string{"inbox", "stale-myday", "important"}},
		{MyDay, []string{"myday"}},
		{Important, []string{"important", "overdue"}},
		{Planned, []string{"planned", "overdue"}},
		{Completed, []string{"done"}},
		{All, []string{"inbox", "myday", "stale-myday", "important", "planned", "overdue", "done"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			got := e.Tasks(all, Smart(tt.sel), q, "", false, ref, cal)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestMyDayExpiresAtDayBoundary(t *testing.T) {
	e := NewEngine()
	for days := 1; days <= 30; days++ {
		pinned := ref.AddDate(0, 0, -days)
		all := []model.Task{task("t", myDay(pinned))}

		assert.Empty(t, e.Tasks(all, Smart(MyDay), Query{}, "", false, ref, cal), "pinned %d days ago", days)
		assert.Equal(t, []string{"t"}, ids(e.Tasks(all, Smart(Inbox), Query{}, "", false, ref, cal)), "pinned %d days ago", days)
	}

	// Late evening of the same day is still My Day.
	all := []model.Task{task("t", myDay(ref))}
	late := time.Date(2026, 2, 9, 23, 59, 0, 0, time.UTC)
	assert.Len(t, e.Tasks(all, Smart(MyDay), Query{}, "", false, late, cal), 1)
}

func TestUserListAndCompletedToggle(t *testing.T) {
	all := []model.Task{
		task("a", inList("work")),
		task("b", inList("work"), done(ref)),
		task("c", inList("home")),
	}
	e := NewEngine()

	got := e.Tasks(all, List("work"), Query{}, "", false, ref, cal)
	assert.Equal(t, []string{"a"}, ids(got))

	got = e.Tasks(all, List("work"), Query{ShowCompleted: true}, "", false, ref, cal)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	got = e.Tasks(all, Smart(Completed), Query{}, "", false, ref, cal)
	assert.Equal(t, []string{"b"}, ids(got), "toggle does not hide the Completed list")
}

func TestSearchAndTags(t *testing.T) {
	all := []model.Task{
		task("Buy Milk", tags("Errands")),
		task("call", notes("ask about the MILK delivery")),
		task("draft", tags("work", "writing")),
		task("done milk", done(ref)),
	}
	e := NewEngine()

	got := e.Tasks(all, Smart(All), Query{Text: "milk"}, "", false, ref, cal)
	assert.Equal(t, []string{"Buy Milk", "call"}, ids(got))

	got = e.Tasks(all, Smart(All), Query{Text: "errand"}, "", false, ref, cal)
	assert.Equal(t, []string{"Buy Milk"}, ids(got), "tag names are searched")

	got = e.Tasks(all, Smart(All), Query{Tags: []string{" WORK "}}, "", false, ref, cal)
	assert.Equal(t, []string{"draft"}, ids(got))

	got = e.Tasks(all, Smart(All), Query{}, "errands", false, ref, cal)
	assert.Equal(t, []string{"Buy Milk"}, ids(got))

	got = e.Tasks(all, Smart(All), Query{Tags: []string{"writing"}}, "errands", false, ref, cal)
	assert.Equal(t, []string{"Buy Milk", "draft"}, ids(got), "tag set and selected tag are OR'd")
}

func TestGlobalSearchBypassesSelector(t *testing.T) {
	all := []model.Task{
		task("report", inList("work")),
		task("report card", inList("home"), due(ref)),
	}
	e := NewEngine()

	got := e.Tasks(all, List("work"), Query{Text: "report"}, "", true, ref, cal)
	assert.Equal(t, []string{"report", "report card"}, ids(got))

	got = e.Tasks(all, List("work"), Query{Text: "report"}, "", false, ref, cal)
	assert.Equal(t, []string{"report"}, ids(got))

	got = e.Tasks(all, List("work"), Query{Text: "  "}, "", true, ref, cal)
	assert.Equal(t, []string{"report"}, ids(got), "blank search keeps list scoping")
}

func TestSortOrders(t *testing.T) {
	d1 := ref.AddDate(0, 0, 1)
	d2 := ref.AddDate(0, 0, 2)
	all := []model.Task{
		task("none-old", created(ref.Add(-5*time.Hour))),
		task("d2-low", due(d2), prio(model.PriorityLow), created(ref.Add(-4*time.Hour))),
		task("d1-high", due(d1), prio(model.PriorityHigh), created(ref.Add(-3*time.Hour))),
		task("d1-important", due(d1), important(), prio(model.PriorityLow), created(ref.Add(-2*time.Hour))),
		task("d1-medium-new", due(d1), created(ref.Add(-time.Hour))),
		task("d1-medium-old", due(d1), created(ref.Add(-6*time.Hour))),
		task("none-new", prio(model.PriorityHigh), created(ref.Add(-30*time.Minute))),
	}
	e := NewEngine()

	tests := []struct {
		sort SortOption
		want []string
	}{
		{SortManual, []string{"none-old", "d2-low", "d1-high", "d1-important", "d1-medium-new", "d1-medium-old", "none-new"}},
		{SortDueDate, []string{"d1-important", "d1-high", "d1-medium-new", "d1-medium-old", "d2-low", "none-new", "none-old"}},
		{SortPriority, []string{"d1-high", "none-new", "d1-medium-new", "d1-medium-old", "none-old", "d1-important", "d2-low"}},
		{SortCreated, []string{"none-new", "d1-medium-new", "d1-important", "d1-high", "d2-low", "none-old", "d1-medium-old"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got := e.Sort(all, tt.sort)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSortCompletedAt(t *testing.T) {
	all := []model.Task{
		task("open"),
		task("early", done(ref.Add(-time.Hour))),
		task("late", done(ref)),
	}
	got := NewEngine().Sort(all, SortCompleted)
	assert.Equal(t, []string{"late", "early", "open"}, ids(got))
}

func TestSortCacheTracksSignature(t *testing.T) {
	all := []model.Task{
		task("a", due(ref.AddDate(0, 0, 2))),
		task("b", due(ref.AddDate(0, 0, 1))),
	}
	e := NewEngine()

	first := e.Sort(all, SortDueDate)
	second := e.Sort(all, SortDueDate)
	assert.Equal(t, ids(first), ids(second))
	hits, misses := e.CacheStats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	// A mutation moves due date and bumps updated_at; the cached order must
	// not be reused.
	d := ref.AddDate(0, 0, 5)
	all[1].DueDate = &d
	all[1].Touch(ref.Add(time.Minute))
	third := e.Sort(all, SortDueDate)
	assert.Equal(t, []string{"a", "b"}, ids(third))
	_, misses = e.CacheStats()
	assert.Equal(t, 2, misses)
}

func TestSortCacheKeyCoversSortFields(t *testing.T) {
	base := func() []model.Task {
		return []model.Task{
			task("a", due(ref.AddDate(0, 0, 2))),
			task("b", due(ref.AddDate(0, 0, 1))),
		}
	}
	at := func(d time.Time) *time.Time { return &d }
	e := NewEngine()
	assert.Equal(t, []string{"b", "a"}, ids(e.Sort(base(), SortDueDate)))

	// updated_at stays put in every case below.
	moved := base()
	moved[1].DueDate = at(ref.AddDate(0, 0, 9))
	assert.Equal(t, []string{"a", "b"}, ids(e.Sort(moved, SortDueDate)))

	reprioritized := base()
	reprioritized[0].Priority = model.PriorityHigh
	assert.Equal(t, []string{"a", "b"}, ids(e.Sort(reprioritized, SortPriority)))
	assert.Equal(t, []string{"b", "a"}, ids(e.Sort(base(), SortPriority)))

	completed := base()
	completed[0].CompletedAt = at(ref)
	assert.Equal(t, []string{"a", "b"}, ids(e.Sort(completed, SortCompleted)))
	completed[1].CompletedAt = at(ref.Add(time.Hour))
	assert.Equal(t, []string{"b", "a"}, ids(e.Sort(completed, SortCompleted)))
}

func TestSortCacheEvictsOldestFirst(t *testing.T) {
	e := NewEngine()
	for i := 0; i < DefaultCacheSize+5; i++ {
		all := []model.Task{task(fmt.Sprintf("a%d", i)), task(fmt.Sprintf("b%d", i))}
		e.Sort(all, SortCreated)
	}
	assert.Equal(t, DefaultCacheSize, e.cache.count())

	// The first inserted key was evicted.
	e.Sort([]model.Task{task("a0"), task("b0")}, SortCreated)
	hits, _ := e.CacheStats()
	assert.Equal(t, 0, hits)

	// The newest is still cached.
	last := DefaultCacheSize + 4
	e.Sort([]model.Task{task(fmt.Sprintf("a%d", last)), task(fmt.Sprintf("b%d", last))}, SortCreated)
	hits, _ = e.CacheStats()
	assert.Equal(t, 1, hits)
}

func TestGroupPlanned(t *testing.T) {
	d1 := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	d1early := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	d0 := time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC)
	all := []model.Task{
		task("later", due(d1)),
		task("undated"),
		task("early", due(d1early)),
		task("past", due(d0)),
	}
	buckets := NewEngine().GroupPlanned(all, cal)
	require.Len(t, buckets, 3)

	assert.Equal(t, time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC), *buckets[0].Day)
	assert.Equal(t, []string{"past"}, ids(buckets[0].Tasks))
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), *buckets[1].Day)
	assert.Equal(t, []string{"early", "later"}, ids(buckets[1].Tasks))
	assert.Nil(t, buckets[2].Day)
	assert.Equal(t, []string{"undated"}, ids(buckets[2].Tasks))
}

func TestPlannedView(t *testing.T) {
	all := []model.Task{
		task("x", due(ref.AddDate(0, 0, 1))),
		task("y"),
		task("z", due(ref.AddDate(0, 0, 1)), done(ref)),
	}
	buckets := NewEngine().Planned(all, Query{ShowCompleted: true}, "", ref, cal)
	require.Len(t, buckets, 1)
	assert.Equal(t, []string{"x"}, ids(buckets[0].Tasks))
}

func TestCounts(t *testing.T) {
	all := []model.Task{
		task("a"),
		task("b", myDay(ref), important()),
		task("c", done(ref)),
		task("d", due(ref)),
	}
	counts := NewEngine().Counts(all, ref, cal)
	assert.Equal(t, 1, counts[Inbox])
	assert.Equal(t, 1, counts[MyDay])
	assert.Equal(t, 1, counts[Important])
	assert.Equal(t, 1, counts[Planned])
	assert.Equal(t, 1, counts[Completed])
	assert.Equal(t, 3, counts[All])
}

func TestParseSelectorAndSort(t *testing.T) {
	assert.Equal(t, Smart(MyDay), ParseSelector("my-day"))
	assert.Equal(t, Smart(MyDay), ParseSelector("myday"))
	assert.Equal(t, Smart(Planned), ParseSelector("Planned"))
	assert.Equal(t, List("work"), ParseSelector("work"))

	s, err := ParseSort("due")
	require.NoError(t, err)
	assert.Equal(t, SortDueDate, s)
	_, err = ParseSort("random")
	assert.Error(t, err)
}

func benchTasks(n int) []model.Task {
	out := make([]model.Task, n)
	for i := range out {
		t := task(fmt.Sprintf("t%05d", i), created(ref.Add(-time.Duration(i)*time.Minute)))
		if i%3 == 0 {
			d := ref.AddDate(0, 0, i%17)
			t.DueDate = &d
		}
		if i%5 == 0 {
			t.IsImportant = true
		}
		out[i] = t
	}
	return out
}

func BenchmarkSortDueDateCold(b *testing.B) {
	all := benchTasks(5000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		NewEngine().Sort(all, SortDueDate)
	}
}

func BenchmarkSortDueDateCached(b *testing.B) {
	all := benchTasks(5000)
	e := NewEngine()
	e.Sort(all, SortDueDate)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Sort(all, SortDueDate)
	}
}

func BenchmarkTasksSearch(b *testing.B) {
	all := benchTasks(5000)
	e := NewEngine()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Tasks(all, Smart(All), Query{Text: "t04", Sort: SortPriority}, "", true, ref, cal)
	}
}
