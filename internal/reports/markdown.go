package reports

import (
	"fmt"
	"strings"
)

// FormatDailyMarkdown renders a daily report.
func FormatDailyMarkdown(r *DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily report: %s\n\n", r.Date.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Completed %d, added %d. Streak: %s.\n", len(r.Completed), r.AddedCount, streakText(r.Streak))

	section(&b, "Completed", r.Completed, "x")
	section(&b, "Overdue", r.Overdue, " ")
	section(&b, "Due today", r.DueToday, " ")
	section(&b, "My Day", r.MyDay, " ")

	if len(r.Suggestions) > 0 {
		b.WriteString("\n## Suggested for My Day\n\n")
		for _, s := range r.Suggestions {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Task.Title, strings.ReplaceAll(string(s.Reason), "_", " "))
		}
	}
	return b.String()
}

// FormatWeeklyMarkdown renders a weekly review.
func FormatWeeklyMarkdown(r *WeeklyReview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Weekly review: %s to %s\n\n", r.StartDate.Format("Jan 2"), r.EndDate.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "Completed %d, added %d, %.0f%% of new tasks done. Streak: %s.\n",
		r.TotalCompleted, r.TotalAdded, r.CompletionRate, streakText(r.Streak))

	b.WriteString("\n## By day\n\n| Day | Completed | Added |\n|---|---|---|\n")
	for _, d := range r.ByDay {
		fmt.Fprintf(&b, "| %s %s | %d | %d |\n", d.DayOfWeek[:3], d.Date, d.Completed, d.Added)
	}

	if len(r.ByList) > 0 {
		b.WriteString("\n## By list\n\n")
		for _, l := range r.ByList {
			fmt.Fprintf(&b, "- %s: %d\n", l.List, l.Count)
		}
	}
	return b.String()
}

func section(b *strings.Builder, title string, lines []TaskLine, mark string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, l := range lines {
		fmt.Fprintf(b, "- [%s] %s", mark, l.Title)
		if l.List != "" {
			fmt.Fprintf(b, " _%s_", l.List)
		}
		if l.Important {
			b.WriteString(" ★")
		}
		if l.DueDate != nil {
			fmt.Fprintf(b, " (due %s)", l.DueDate.Format("Jan 2"))
		}
		b.WriteString("\n")
	}
}

func streakText(s Streak) string {
	unit := "days"
	if s.Current == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%d %s (best %d)", s.Current, unit, s.Longest)
}
