// Package reports summarizes tasks for a day or a week: what got done, what
// is due, the completion streak and suggestions for My Day.
package reports

import (
	"time"

	"myday/internal/model"
)

// TaskLine is the part of a task a report shows.
type TaskLine struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	List      string         `json:"list"`
	Priority  model.Priority `json:"priority"`
	Important bool           `json:"important,omitempty"`
	DueDate   *time.Time     `json:"due_date,omitempty"`
}

// DailyReport contains aggregated data for a single day.
type DailyReport struct {
	Date        time.Time    `json:"date"`
	Completed   []TaskLine   `json:"completed"`
	AddedCount  int          `json:"added_count"`
	DueToday    []TaskLine   `json:"due_today"`
	Overdue     []TaskLine   `json:"overdue"`
	MyDay       []TaskLine   `json:"my_day"`
	Streak      Streak       `json:"streak"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// WeeklyReview contains aggregated data for a Sunday-aligned week.
type WeeklyReview struct {
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	TotalCompleted int            `json:"total_completed"`
	TotalAdded     int            `json:"total_added"`
	CompletionRate float64        `json:"completion_rate"` // percent of tasks added this week that are done
	ByDay          []DayTaskCount `json:"by_day"`
	ByList         []ListCount    `json:"by_list"`
	Streak         Streak         `json:"streak"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// DayTaskCount represents task counts for a specific day.
type DayTaskCount struct {
	Date      string `json:"date"`
	DayOfWeek string `json:"day_of_week"`
	Completed int    `json:"completed"`
	Added     int    `json:"added"`
}

// ListCount is the number of completions in one list.
type ListCount struct {
	List  string `json:"list"`
	Count int    `json:"count"`
}

// Streak counts consecutive days with at least one completion.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Reason says why a task is suggested for My Day.
type Reason string

const (
	ReasonOverdue   Reason = "overdue"
	ReasonDueToday  Reason = "due_today"
	ReasonImportant Reason = "important"
	ReasonHigh      Reason = "high_priority"
)

// Suggestion is a task worth adding to My Day.
type Suggestion struct {
	Task   TaskLine `json:"task"`
	Reason Reason   `json:"reason"`
}
