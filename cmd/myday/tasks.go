package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"myday/internal/model"
	"myday/internal/query"
	"myday/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func addCmd(g *globalFlags) *cobra.Command {
	var list string
	cmd := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Add a task using quick-add syntax",
		Long: `Add a task. Dates, times, priorities and repeats in the text are
recognized and removed from the title:

    myday add call mom tomorrow 6pm p1
    myday add 明天下午3点开会 每周`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				sel, err := resolveSelector(s.store, list)
				if err != nil {
					return err
				}
				task, created, err := s.store.QuickAdd(strings.Join(args, " "), sel)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !created {
					fmt.Fprintln(out, "Not created: the text has no title.")
					return nil
				}
				fmt.Fprintf(out, "Added: %s\n", taskLine(task, s.store.Calendar(), s.store.Now()))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&list, "list", "l", "", "List or smart list to add to (my_day, important, or a list name)")
	return cmd
}

func listCmd(g *globalFlags) *cobra.Command {
	var (
		list, sortBy, search, tag string
		showCompleted, global     bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the tasks of a list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := query.ParseSort(sortBy)
			if err != nil {
				return err
			}
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				sel, err := resolveSelector(s.store, list)
				if err != nil {
					return err
				}
				q := query.Query{Text: search, ShowCompleted: showCompleted, Sort: sort}
				printTasks(cmd.OutOrStdout(), s.store, sel, q, tag, global)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&list, "list", "l", string(query.All), "List or smart list (my_day, important, planned, inbox, completed, all, or a list name)")
	f.StringVarP(&sortBy, "sort", "s", "manual", "Sort order (manual, due, priority, created, completed)")
	f.StringVarP(&search, "search", "q", "", "Only tasks whose title, notes or tags contain this text")
	f.StringVarP(&tag, "tag", "t", "", "Only tasks with this tag")
	f.BoolVarP(&showCompleted, "all", "a", false, "Include completed tasks")
	f.BoolVarP(&global, "global", "g", false, "Search every list instead of the selected one")
	return cmd
}

func doneCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle a task between open and completed",
		Long:  "Toggle a task. ID is the short id shown by 'myday list' or any longer part of the full id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				id, err := findTask(s.store, args[0])
				if err != nil {
					return err
				}
				task, spawned, err := s.store.ToggleCompleted(id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				cal, now := s.store.Calendar(), s.store.Now()
				if task.IsCompleted {
					fmt.Fprintf(out, "Completed: %s\n", taskLine(task, cal, now))
				} else {
					fmt.Fprintf(out, "Reopened: %s\n", taskLine(task, cal, now))
				}
				if spawned != nil {
					fmt.Fprintf(out, "Next:      %s\n", taskLine(*spawned, cal, now))
				}
				return nil
			})
		},
	}
}

// resolveSelector maps a smart-list name, list id or list title to a
// selector. Empty selects the default list.
func resolveSelector(st *store.Store, name string) (query.Selector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return query.List(model.DefaultListID), nil
	}
	sel := query.ParseSelector(name)
	if sel.Smart != "" {
		return sel, nil
	}
	for _, l := range st.Lists() {
		if l.ID == name || strings.EqualFold(l.Title, name) {
			return query.List(l.ID), nil
		}
	}
	return query.Selector{}, fmt.Errorf("no list named %q", name)
}

// findTask resolves an id or id suffix to a full task id.
func findTask(st *store.Store, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("task id is required")
	}
	if t, ok := st.Task(ref); ok {
		return t.ID, nil
	}
	var matches []string
	for _, t := range st.Snapshot().Tasks {
		if strings.HasSuffix(t.ID, ref) || strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("task %q: %w", ref, store.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("task %q is ambiguous: %d tasks match", ref, len(matches))
}

func printTasks(w io.Writer, st *store.Store, sel query.Selector, q query.Query, tag string, global bool) {
	cal, now := st.Calendar(), st.Now()
	if sel.Smart == query.Planned && !(global && q.Text != "") {
		buckets := st.Planned(q, tag)
		if len(buckets) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("Nothing planned."))
			return
		}
		for i, b := range buckets {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, headerStyle.Render(bucketTitle(b.Day, cal, now)))
			for _, t := range b.Tasks {
				fmt.Fprintln(w, "  "+taskLine(t, cal, now))
			}
		}
		return
	}

	tasks := st.Tasks(sel, q, tag, global)
	if len(tasks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No tasks."))
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, taskLine(t, cal, now))
	}
}

// shortID is the part of a task id shown in listings. UUIDv7 ids start with
// a timestamp, so the random tail tells tasks apart.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// taskLine renders a task on one line, e.g.
// "1a2b3c4d [ ] Buy milk · due Thu Feb 12 · high · ★ ☀ · #home".
func taskLine(t model.Task, cal model.Calendar, now time.Time) string {
	box := "[ ]"
	if t.IsCompleted {
		box = "[x]"
	}
	parts := []string{fmt.Sprintf("%s %s %s", mutedStyle.Render(shortID(t.ID)), box, t.Title)}
	if t.DueDate != nil {
		parts = append(parts, "due "+formatDue(*t.DueDate, cal))
	}
	if t.Priority != "" && t.Priority != model.PriorityMedium {
		parts = append(parts, string(t.Priority))
	}
	if t.Repeat != "" && t.Repeat != model.RepeatNone {
		parts = append(parts, string(t.Repeat))
	}
	var marks []string
	if t.IsImportant {
		marks = append(marks, "★")
	}
	if t.InMyDay(now, cal) {
		marks = append(marks, "☀")
	}
	if len(marks) > 0 {
		parts = append(parts, strings.Join(marks, " "))
	}
	if len(t.Tags) > 0 {
		tags := make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = "#" + tag.Name
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if n := len(t.Subtasks); n > 0 {
		done := 0
		for _, st := range t.Subtasks {
			if st.IsCompleted {
				done++
			}
		}
		parts = append(parts, fmt.Sprintf("%d/%d", done, n))
	}
	return strings.Join(parts, " · ")
}

// formatDue shows the date, and the time when it is not midnight.
func formatDue(due time.Time, cal model.Calendar) string {
	if cal.Location != nil {
		due = due.In(cal.Location)
	}
	if cal.StartOfDay(due).Equal(due) {
		return due.Format("Mon Jan 2")
	}
	return due.Format("Mon Jan 2 15:04")
}

func bucketTitle(day *time.Time, cal model.Calendar, now time.Time) string {
	if day == nil {
		return "No date"
	}
	today := cal.StartOfDay(now)
	switch {
	case day.Before(today):
		return "Overdue · " + day.Format("Mon Jan 2")
	case day.Equal(today):
		return "Today"
	case day.Equal(cal.AddDays(today, 1)):
		return "Tomorrow"
	}
	return day.Format("Mon Jan 2")
}
