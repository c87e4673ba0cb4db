package reports

import (
	"cmp"
	"slices"
	"sort"
	"time"

	"myday/internal/model"
)

// MaxSuggestions caps Suggestions.
const MaxSuggestions = 5

// Source is what the generator reads. *store.Store satisfies it.
type Source interface {
	Snapshot() *model.Snapshot
	Now() time.Time
	Calendar() model.Calendar
}

// Generator creates reports from the current snapshot.
type Generator struct {
	src Source
}

// NewGenerator creates a new report generator.
func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// GenerateDaily generates a report for the day containing date.
func (g *Generator) GenerateDaily(date time.Time) *DailyReport {
	snap := g.src.Snapshot()
	cal := g.src.Calendar()
	now := g.src.Now()
	day := cal.StartOfDay(date)
	next := cal.AddDays(day, 1)
	titles := listTitles(snap)

	r := &DailyReport{
		Date:        day,
		Completed:   []TaskLine{},
		DueToday:    []TaskLine{},
		Overdue:     []TaskLine{},
		MyDay:       []TaskLine{},
		Streak:      StreakAt(snap.Tasks, date, cal),
		GeneratedAt: now,
	}
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if within(t.CreatedAt, day, next) {
			r.AddedCount++
		}
		if t.IsCompleted {
			if t.CompletedAt != nil && within(*t.CompletedAt, day, next) {
				r.Completed = append(r.Completed, line(t, titles))
			}
			continue
		}
		if t.DueDate != nil {
			switch due := cal.StartOfDay(*t.DueDate); {
			case due.Equal(day):
				r.DueToday = append(r.DueToday, line(t, titles))
			case due.Before(day):
				r.Overdue = append(r.Overdue, line(t, titles))
			}
		}
		if t.InMyDay(day, cal) {
			r.MyDay = append(r.MyDay, line(t, titles))
		}
	}
	if cal.SameDay(date, now) {
		r.Suggestions = Suggest(snap, now, cal)
	}
	return r
}

// GenerateWeekly generates the review of the Sunday-aligned week that
// contains date.
func (g *Generator) GenerateWeekly(date time.Time) *WeeklyReview {
	snap := g.src.Snapshot()
	cal := g.src.Calendar()
	start := cal.AddDays(date, -(cal.Weekday(date) - 1))
	end := cal.AddDays(start, 7)
	titles := listTitles(snap)

	r := &WeeklyReview{
		StartDate:   start,
		EndDate:     end.Add(-time.Nanosecond),
		ByDay:       make([]DayTaskCount, 7),
		ByList:      []ListCount{},
		GeneratedAt: g.src.Now(),
	}
	for i := range r.ByDay {
		d := cal.AddDays(start, i)
		r.ByDay[i] = DayTaskCount{Date: d.Format("2006-01-02"), DayOfWeek: d.Weekday().String()}
	}

	byList := make(map[string]int)
	addedDone := 0
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if within(t.CreatedAt, start, end) {
			r.TotalAdded++
			r.ByDay[dayIndex(t.CreatedAt, start, cal)].Added++
			if t.IsCompleted {
				addedDone++
			}
		}
		if t.IsCompleted && t.CompletedAt != nil && within(*t.CompletedAt, start, end) {
			r.TotalCompleted++
			r.ByDay[dayIndex(*t.CompletedAt, start, cal)].Completed++
			byList[titles[t.ListID]]++
		}
	}
	if r.TotalAdded > 0 {
		r.CompletionRate = float64(addedDone) / float64(r.TotalAdded) * 100
	}
	for list, n := range byList {
		r.ByList = append(r.ByList, ListCount{List: list, Count: n})
	}
	sort.Slice(r.ByList, func(i, j int) bool {
		if r.ByList[i].Count != r.ByList[j].Count {
			return r.ByList[i].Count > r.ByList[j].Count
		}
		return r.ByList[i].List < r.ByList[j].List
	})
	ref := r.EndDate
	if now := g.src.Now(); now.Before(ref) {
		ref = now
	}
	r.Streak = StreakAt(snap.Tasks, ref, cal)
	return r
}

// StreakAt computes the completion streak as of ref. The current streak ends
// on ref's day, or on the day before when ref's day has no completion yet.
// Completions after ref are ignored.
func StreakAt(tasks []model.Task, ref time.Time, cal model.Calendar) Streak {
	refDay := cal.StartOfDay(ref)
	days := make(map[time.Time]bool)
	for i := range tasks {
		t := &tasks[i]
		if !t.IsCompleted || t.CompletedAt == nil {
			continue
		}
		d := cal.StartOfDay(*t.CompletedAt)
		if d.After(refDay) {
			continue
		}
		days[d] = true
	}

	var s Streak
	cursor := refDay
	if !days[cursor] {
		cursor = cal.AddDays(cursor, -1)
	}
	for days[cursor] {
		s.Current++
		cursor = cal.AddDays(cursor, -1)
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })
	run := 0
	for i, d := range sorted {
		if i > 0 && cal.AddDays(sorted[i-1], 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		s.Longest = max(s.Longest, run)
	}
	return s
}

// Suggest picks open tasks for today's My Day: overdue first, then due
// today, then important, then high priority. Tasks already in today's My Day
// are skipped.
func Suggest(snap *model.Snapshot, now time.Time, cal model.Calendar) []Suggestion {
	today := cal.StartOfDay(now)
	titles := listTitles(snap)

	type candidate struct {
		t    *model.Task
		rank int
		why  Reason
	}
	var cands []candidate
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if t.IsCompleted || t.InMyDay(now, cal) {
			continue
		}
		var c candidate
		switch {
		case t.DueDate != nil && cal.StartOfDay(*t.DueDate).Before(today):
			c = candidate{t, 0, ReasonOverdue}
		case t.DueDate != nil && cal.StartOfDay(*t.DueDate).Equal(today):
			c = candidate{t, 1, ReasonDueToday}
		case t.IsImportant:
			c = candidate{t, 2, ReasonImportant}
		case t.Priority == model.PriorityHigh:
			c = candidate{t, 3, ReasonHigh}
		default:
			continue
		}
		cands = append(cands, c)
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		if a.t.DueDate != nil && b.t.DueDate != nil {
			if c := a.t.DueDate.Compare(*b.t.DueDate); c != 0 {
				return c
			}
		}
		return a.t.CreatedAt.Compare(b.t.CreatedAt)
	})

	out := make([]Suggestion, 0, min(len(cands), MaxSuggestions))
	for _, c := range cands {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, Suggestion{Task: line(c.t, titles), Reason: c.why})
	}
	return out
}

func listTitles(snap *model.Snapshot) map[string]string {
	m := make(map[string]string, len(snap.Lists))
	for _, l := range snap.Lists {
		m[l.ID] = l.Title
	}
	return m
}

func line(t *model.Task, titles map[string]string) TaskLine {
	l := TaskLine{
		ID:        t.ID,
		Title:     t.Title,
		List:      titles[t.ListID],
		Priority:  t.Priority,
		Important: t.IsImportant,
	}
	if t.DueDate != nil {
		due := *t.DueDate
		l.DueDate = &due
	}
	return l
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func dayIndex(t, start time.Time, cal model.Calendar) int {
	d := cal.StartOfDay(t)
	for i := range 7 {
		if cal.AddDays(start, i).Equal(d) {
			return i
		}
	}
	return 0
}
