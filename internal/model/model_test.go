package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

func TestSetCompletedKeepsTimestampInLockstep(t *testing.T) {
	task := NewTask("write report", t0)

	task.SetCompleted(true, t0.Add(time.Minute))
	require.True(t, task.IsCompleted)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, t0.Add(time.Minute), *task.CompletedAt)
	assert.Equal(t, t0.Add(time.Minute), task.UpdatedAt)

	task.SetCompleted(false, t0.Add(2*time.Minute))
	assert.False(t, task.IsCompleted)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, t0.Add(2*time.Minute), task.UpdatedAt)
}

func TestTouchAlwaysAdvances(t *testing.T) {
	task := NewTask("x", t0)
	task.Touch(t0.Add(-time.Hour))
	assert.Equal(t, t0.Add(time.Nanosecond), task.UpdatedAt, "a clock behind the stamp still advances it")
	task.Touch(t0)
	assert.Equal(t, t0.Add(2*time.Nanosecond), task.UpdatedAt, "the same tick twice gives two stamps")
	task.Touch(t0.Add(time.Second))
	assert.Equal(t, t0.Add(time.Second), task.UpdatedAt)
}

func TestSetMyDayNormalizesToStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	task := NewTask("x", t0)
	day := time.Date(2026, 2, 9, 23, 30, 0, 0, time.UTC) // 07:30 on the 10th in loc

	cal := NewCalendar(loc)

	task.SetMyDay(&day, cal)
	require.NotNil(t, task.MyDayDate)
	assert.True(t, task.MyDayDate.Equal(time.Date(2026, 2, 10, 0, 0, 0, 0, loc)))
	assert.True(t, task.InMyDay(time.Date(2026, 2, 10, 12, 0, 0, 0, loc), cal))
	assert.False(t, task.InMyDay(time.Date(2026, 2, 11, 0, 0, 0, 0, loc), cal))

	task.SetMyDay(nil, cal)
	assert.Nil(t, task.MyDayDate)
}

func TestNextOccurrence(t *testing.T) {
	due := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		repeat RepeatRule
		want   time.Time
		ok     bool
	}{
		{RepeatDaily, due.AddDate(0, 0, 1), true},
		{RepeatWeekly, due.AddDate(0, 0, 7), true},
		{RepeatMonthly, due.AddDate(0, 1, 0), true},
		{RepeatNone, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.repeat), func(t *testing.T) {
			task := NewTask("standup", t0)
			task.DueDate = &due
			task.Repeat = tt.repeat
			task.Subtasks = []Subtask{{ID: "s1", Title: "notes", IsCompleted: true}}
			task.SetCompleted(true, t0)

			next, ok := task.NextOccurrence(t0.Add(time.Hour))
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.NotEqual(t, task.ID, next.ID)
			assert.Equal(t, tt.want, *next.DueDate)
			assert.False(t, next.IsCompleted)
			assert.Nil(t, next.CompletedAt)
			assert.False(t, next.Subtasks[0].IsCompleted)
			assert.NotEqual(t, "s1", next.Subtasks[0].ID)
			assert.True(t, task.Subtasks[0].IsCompleted, "original must not be mutated")
		})
	}
}

func TestTagCatalogDedupesByNormalizedName(t *testing.T) {
	a := NewTask("a", t0)
	a.Tags = []Tag{{ID: "1", Name: "Work"}, {ID: "2", Name: "home"}}
	b := NewTask("b", t0)
	b.Tags = []Tag{{ID: "3", Name: " work "}, {ID: "4", Name: "Errands"}}

	got := TagCatalog([]Task{a, b})
	require.Len(t, got, 3)
	assert.Equal(t, "Errands", got[0].Name)
	assert.Equal(t, "home", got[1].Name)
	assert.Equal(t, "1", got[2].ID)
}

func TestCompactManualOrder(t *testing.T) {
	mk := func(id, list string, order float64) Task {
		task := NewTask(id, t0)
		task.ID = id
		task.ListID = list
		task.ManualOrder = order
		return task
	}
	tasks := []Task{
		mk("c", "l1", 7),
		mk("a", "l1", 2),
		mk("x", "l2", 5),
		mk("b", "l1", 4.5),
	}

	changed := CompactManualOrder(tasks, "l1")
	assert.ElementsMatch(t, []int{0, 1, 3}, changed)
	assert.Equal(t, 3.0, tasks[0].ManualOrder)
	assert.Equal(t, 1.0, tasks[1].ManualOrder)
	assert.Equal(t, 2.0, tasks[3].ManualOrder)
	assert.Equal(t, 5.0, tasks[2].ManualOrder, "other lists are untouched")

	assert.Empty(t, CompactManualOrder(tasks, "l1"))
	assert.Equal(t, 4.0, NextManualOrder(tasks, "l1"))
}

func TestSnapshotNormalize(t *testing.T) {
	s := &Snapshot{
		Lists: []List{{ID: "work", Title: "Work"}},
		Tasks: []Task{{ID: "1", ListID: "gone"}, {ID: "2", ListID: "work"}},
	}
	require.True(t, s.Normalize())
	assert.Equal(t, SchemaVersion, s.SchemaVersion)
	assert.Equal(t, DefaultListID, s.Lists[0].ID)
	assert.Equal(t, DefaultListID, s.Tasks[0].ListID)
	assert.Equal(t, "work", s.Tasks[1].ListID)
	assert.NotNil(t, s.Groups)

	assert.False(t, s.Normalize(), "second pass is a no-op")
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := NewSnapshot()
	due := t0
	task := NewTask("x", t0)
	task.DueDate = &due
	task.Tags = []Tag{{ID: "t", Name: "a"}}
	s.Tasks = append(s.Tasks, task)

	c := s.Clone()
	c.Tasks[0].Tags[0].Name = "changed"
	*c.Tasks[0].DueDate = t0.Add(time.Hour)
	c.Lists[0].Title = "changed"

	assert.Equal(t, "a", s.Tasks[0].Tags[0].Name)
	assert.Equal(t, t0, *s.Tasks[0].DueDate)
	assert.Equal(t, DefaultListTitle, s.Lists[0].Title)
}

func TestDecodeTaskTolerance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, task Task)
	}{
		{
			name:  "bare string tags",
			input: `{"id":"1","title":"x","tags":["Work","home"]}`,
			check: func(t *testing.T, task Task) {
				require.Len(t, task.Tags, 2)
				assert.Equal(t, "Work", task.Tags[0].Name)
				assert.Equal(t, TagGray, task.Tags[0].Color)
				assert.NotEmpty(t, task.Tags[0].ID)
			},
		},
		{
			name:  "mixed tags",
			input: `{"id":"1","title":"x","tags":["a",{"id":"t2","name":"b","color":"red"}]}`,
			check: func(t *testing.T, task Task) {
				require.Len(t, task.Tags, 2)
				assert.Equal(t, TagRed, task.Tags[1].Color)
				assert.Equal(t, "t2", task.Tags[1].ID)
			},
		},
		{
			name:  "missing fields get defaults",
			input: `{"id":"1","title":"x","created_at":"2026-02-09T10:00:00Z"}`,
			check: func(t *testing.T, task Task) {
				assert.Equal(t, PriorityMedium, task.Priority)
				assert.Equal(t, RepeatNone, task.Repeat)
				assert.Equal(t, DefaultListID, task.ListID)
				assert.Equal(t, t0, task.UpdatedAt)
			},
		},
		{
			name:  "legacy field names",
			input: `{"id":"1","text":"old","done":true,"description":"notes","updated_at":"2026-02-09T10:00:00Z"}`,
			check: func(t *testing.T, task Task) {
				assert.Equal(t, "old", task.Title)
				assert.Equal(t, "notes", task.Notes)
				assert.True(t, task.IsCompleted)
				require.NotNil(t, task.CompletedAt)
				assert.Equal(t, t0, *task.CompletedAt)
			},
		},
		{
			name:  "completed_at without flag is dropped",
			input: `{"id":"1","title":"x","is_completed":false,"completed_at":"2026-02-09T10:00:00Z"}`,
			check: func(t *testing.T, task Task) {
				assert.Nil(t, task.CompletedAt)
			},
		},
		{
			name:  "unknown enums fall back",
			input: `{"id":"1","title":"x","priority":"urgent","repeat":"hourly"}`,
			check: func(t *testing.T, task Task) {
				assert.Equal(t, PriorityMedium, task.Priority)
				assert.Equal(t, RepeatNone, task.Repeat)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var task Task
			require.NoError(t, json.Unmarshal([]byte(tt.input), &task))
			tt.check(t, task)
		})
	}
}

func TestDecodeDerivedIDsAreStable(t *testing.T) {
	input := []byte(`{"id":"1","title":"x","tags":["Work"],"subtasks":[{"title":"a"}]}`)
	var a, b Task
	require.NoError(t, json.Unmarshal(input, &a))
	require.NoError(t, json.Unmarshal(input, &b))
	assert.Equal(t, a.Tags[0].ID, b.Tags[0].ID)
	assert.Equal(t, a.Subtasks[0].ID, b.Subtasks[0].ID)
	assert.NotEmpty(t, a.Subtasks[0].ID)
}

func TestTaskEncodeDecodeKeepsFields(t *testing.T) {
	task := NewTask("ship it", t0)
	due := t0.Add(48 * time.Hour)
	task.DueDate = &due
	task.Priority = PriorityHigh
	task.Repeat = RepeatWeekly
	task.Tags = []Tag{NewTag("release", TagBlue)}
	task.Subtasks = []Subtask{{ID: "s", Title: "tag"}}
	task.SetCompleted(true, t0.Add(time.Hour))

	data, err := json.Marshal(task)
	require.NoError(t, err)
	var got Task
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, task, got)
}

func TestCalendarWeekday(t *testing.T) {
	cal := NewCalendar(time.UTC)
	assert.Equal(t, 2, cal.Weekday(t0))
	assert.Equal(t, 1, cal.Weekday(t0.AddDate(0, 0, -1)))
	assert.Equal(t, 7, cal.Weekday(t0.AddDate(0, 0, 5)))
}

func TestCalendarNextWeekday(t *testing.T) {
	cal := NewCalendar(time.UTC)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), cal.NextWeekday(t0, 2, false))
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), cal.NextWeekday(t0, 2, true))
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), cal.NextWeekday(t0, 1, true))
}
