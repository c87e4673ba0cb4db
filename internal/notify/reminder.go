package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"myday/internal/model"
)

// AlertKind says why a task is being announced.
type AlertKind string

const (
	AlertDueToday AlertKind = "due_today" // all-day due date is today
	AlertDueSoon  AlertKind = "due_soon"  // timed due date within the lead time
	AlertOverdue  AlertKind = "overdue"
)

// Alert is one notification about one task.
type Alert struct {
	TaskID string
	Kind   AlertKind
	Due    time.Time
	Title  string
	Body   string
}

func (a Alert) key() string {
	return a.TaskID + "|" + string(a.Kind) + "|" + a.Due.UTC().Format(time.RFC3339)
}

// DueAlerts lists the alerts owed at now for the open tasks. A due date at
// midnight is treated as all-day.
func DueAlerts(tasks []model.Task, now time.Time, lead time.Duration, cal model.Calendar) []Alert {
	today := cal.StartOfDay(now)
	var alerts []Alert
	for _, t := range tasks {
		if t.IsCompleted || t.DueDate == nil {
			continue
		}
		due := *t.DueDate
		if cal.Location != nil {
			due = due.In(cal.Location)
		}
		allDay := cal.StartOfDay(due).Equal(due)

		a := Alert{TaskID: t.ID, Due: due, Title: t.Title}
		switch {
		case cal.StartOfDay(due).Before(today):
			a.Kind = AlertOverdue
			a.Body = "Overdue since " + due.Format("Mon Jan 2")
		case allDay && cal.SameDay(due, now):
			a.Kind = AlertDueToday
			a.Body = "Due today"
		case !allDay && !now.Before(due.Add(-lead)):
			if now.Before(due) {
				a.Kind = AlertDueSoon
				a.Body = "Due at " + due.Format("15:04")
			} else {
				a.Kind = AlertOverdue
				a.Body = "Was due at " + due.Format("15:04")
			}
		default:
			continue
		}
		alerts = append(alerts, a)
	}
	slices.SortStableFunc(alerts, func(a, b Alert) int { return a.Due.Compare(b.Due) })
	return alerts
}

// Reminder sends each alert once per process.
type Reminder struct {
	notifier Notifier
	cfg      Config
	cal      model.Calendar
	logger   *slog.Logger
	sent     map[string]struct{}
}

// NewReminder returns a reminder. A nil logger uses slog.Default().
func NewReminder(n Notifier, cfg Config, cal model.Calendar, logger *slog.Logger) *Reminder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Reminder{
		notifier: n,
		cfg:      cfg,
		cal:      cal,
		logger:   logger,
		sent:     make(map[string]struct{}),
	}
}

// Check sends the alerts that have not been sent yet and returns them. An
// alert whose notification failed is retried on the next check.
func (r *Reminder) Check(tasks []model.Task, now time.Time) ([]Alert, error) {
	var (
		out  []Alert
		errs []error
	)
	for _, a := range DueAlerts(tasks, now, r.cfg.LeadTime, r.cal) {
		if _, ok := r.sent[a.key()]; ok {
			continue
		}
		send := r.notifier.Send
		if r.cfg.Sound {
			send = r.notifier.SendWithSound
		}
		if err := send(a.Title, a.Body); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", a.TaskID, err))
			continue
		}
		r.sent[a.key()] = struct{}{}
		r.logger.Debug("Sent reminder", "task", a.TaskID, "kind", a.Kind)
		out = append(out, a)
	}
	return out, errors.Join(errs...)
}

// Run checks tasks every interval until ctx is done.
func (r *Reminder) Run(ctx context.Context, tasks func() []model.Task, now func() time.Time) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := r.Check(tasks(), now()); err != nil {
			r.logger.Warn("Reminder failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
