package model

import "time"

// Calendar resolves calendar days in a fixed location. Weekdays are numbered
// 1 (Sunday) through 7 (Saturday).
type Calendar struct {
	Location *time.Location
}

// NewCalendar returns a calendar for loc; nil means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Location: loc}
}

// LoadCalendar resolves an IANA zone name. An empty name selects the local
// zone of the process.
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		return NewCalendar(time.Local), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, err
	}
	return NewCalendar(loc), nil
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// StartOfDay returns midnight of t's day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc())
}

// AddDays moves the start of t's day by n calendar days.
func (c Calendar) AddDays(t time.Time, n int) time.Time {
	y, m, d := t.In(c.loc()).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, c.loc())
}

// At returns the given wall clock time on day's date.
func (c Calendar) At(day time.Time, hour, minute int) time.Time {
	y, m, d := day.In(c.loc()).Date()
	return time.Date(y, m, d, hour, minute, 0, 0, c.loc())
}

// Weekday returns 1 for Sunday through 7 for Saturday.
func (c Calendar) Weekday(t time.Time) int {
	return int(t.In(c.loc()).Weekday()) + 1
}

// SameDay reports whether a and b fall on the same day.
func (c Calendar) SameDay(a, b time.Time) bool {
	return c.StartOfDay(a).Equal(c.StartOfDay(b))
}

// NextWeekday returns the start of the next day numbered target, counting
// today as a match unless forceNext is set.
func (c Calendar) NextWeekday(now time.Time, target int, forceNext bool) time.Time {
	delta := (target - c.Weekday(now) + 7) % 7
	if forceNext && delta == 0 {
		delta = 7
	}
	return c.AddDays(now, delta)
}
