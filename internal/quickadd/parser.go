// Package quickadd turns a line of free text such as "明天下午3点开会 p1 每周" or
// "review docs tomorrow 9am every day p2" into the fields of a new task.
//
// Parsing never fails. Text that carries no recognizable token simply becomes
// the title.
package quickadd

import (
	"regexp"
	"strings"
	"time"

	"myday/internal/model"
)

// Language is the keyword set used for date and time tokens.
type Language string

const (
	Chinese Language = "zh"
	English Language = "en"
)

// Result is the outcome of parsing one line.
type Result struct {
	Title    string
	Priority model.Priority
	DueDate  *time.Time
	HasTime  bool
	Repeat   model.RepeatRule
	Tokens   []string // recognized tokens, in extraction order
	Language Language
}

// Empty reports whether the parse left no title.
func (r Result) Empty() bool { return r.Title == "" }

var priorityTokens = map[string]model.Priority{
	"p1": model.PriorityHigh,
	"p2": model.PriorityMedium,
	"p3": model.PriorityLow,
}

var enRepeat = map[string]model.RepeatRule{
	"every_day":   model.RepeatDaily,
	"everyday":    model.RepeatDaily,
	"daily":       model.RepeatDaily,
	"every_week":  model.RepeatWeekly,
	"weekly":      model.RepeatWeekly,
	"every_month": model.RepeatMonthly,
	"monthly":     model.RepeatMonthly,
}

// zhRepeatRe also takes the weekday of 每周一 / 每星期五, which is handed on to
// the date resolver as 周一 / 周五.
var zhRepeatRe = regexp.MustCompile(`每天|每日|每(?:周|星期)([一二三四五六日天])?|每月`)

var zhRepeat = map[string]model.RepeatRule{
	"每天": model.RepeatDaily, "每日": model.RepeatDaily,
	"每周": model.RepeatWeekly, "每星期": model.RepeatWeekly,
	"每月": model.RepeatMonthly,
}

// Parser parses quick-add text relative to a clock and calendar.
type Parser struct {
	cal    model.Calendar
	now    func() time.Time
	locale string
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the reference clock.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLocale forces English rules when locale starts with "en".
func WithLocale(locale string) Option {
	return func(p *Parser) { p.locale = locale }
}

// New returns a parser using cal and the wall clock.
func New(cal model.Calendar, opts ...Option) *Parser {
	p := &Parser{cal: cal, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Calendar returns the parser's calendar.
func (p *Parser) Calendar() model.Calendar { return p.cal }

// Parse parses text against the parser's current time.
func (p *Parser) Parse(text string) Result {
	return ParseAt(text, p.now(), p.cal, p.locale)
}

// ParseAt is the pure form of Parse: the result depends only on its inputs.
//
// Extraction order is priority, repeat, date, then time. Only the first token
// of each class decides the value but every token of the class is removed.
// The residual title is scanned again until nothing more is recognized, so
// parsing the title of a result extracts nothing.
//
// A value found only by a later scan (say "next p1 week", where dropping p1
// joins "next week") is kept; a value from an earlier scan is never replaced.
func ParseAt(text string, now time.Time, cal model.Calendar, locale string) Result {
	res, seen := parseOnce(text, now, cal, locale)
	for res.Title != "" {
		again, found := parseOnce(res.Title, now, cal, locale)
		if len(again.Tokens) == 0 {
			break
		}
		if found.priority && !seen.priority {
			res.Priority = again.Priority
		}
		if found.repeat && !seen.repeat {
			res.Repeat = again.Repeat
		}
		if found.due && !seen.due {
			res.DueDate, res.HasTime = again.DueDate, again.HasTime
		}
		seen.merge(found)
		res.Title = again.Title
		res.Tokens = append(res.Tokens, again.Tokens...)
	}
	return res
}

// classes records which token classes a scan recognized.
type classes struct {
	priority, repeat, due bool
}

func (c *classes) merge(o classes) {
	c.priority = c.priority || o.priority
	c.repeat = c.repeat || o.repeat
	c.due = c.due || o.due
}

func parseOnce(text string, now time.Time, cal model.Calendar, locale string) (Result, classes) {
	res := Result{Priority: model.PriorityMedium, Repeat: model.RepeatNone, Language: Chinese}
	var found classes

	text = normalize(text)
	if text == "" {
		return res, found
	}
	tokens := tokenize(text)

	tokens, dropped := removeAll(tokens, func(lower string) bool {
		_, ok := priorityTokens[lower]
		return ok
	})
	if len(dropped) > 0 {
		res.Priority = priorityTokens[strings.ToLower(dropped[0])]
		res.Tokens = append(res.Tokens, dropped...)
		found.priority = true
	}

	before := len(res.Tokens)
	tokens = extractRepeat(tokens, &res)
	found.repeat = len(res.Tokens) > before

	if strings.HasPrefix(strings.ToLower(locale), "en") || hasLatin(tokens) {
		res.Language = English
		tokens = extractEnglish(tokens, now, cal, &res)
	} else {
		tokens = extractChinese(tokens, now, cal, &res)
	}

	res.Title = strings.Join(tokens, " ")
	found.due = res.DueDate != nil
	return res, found
}

func extractRepeat(tokens []string, res *Result) []string {
	var kept []string
	found := false
	note := func(rule model.RepeatRule, raw string) {
		if !found {
			res.Repeat = rule
			found = true
		}
		res.Tokens = append(res.Tokens, raw)
	}
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if rule, ok := enRepeat[lower]; ok {
			note(rule, display(lower))
			continue
		}
		if !zhRepeatRe.MatchString(tok) {
			kept = append(kept, tok)
			continue
		}
		rest := zhRepeatRe.ReplaceAllStringFunc(tok, func(m string) string {
			day := zhRepeatRe.FindStringSubmatch(m)[1]
			if day == "" {
				note(zhRepeat[m], m)
				return " "
			}
			note(model.RepeatWeekly, strings.TrimSuffix(m, day))
			return " 周" + day + " "
		})
		kept = append(kept, strings.Fields(rest)...)
	}
	return kept
}

func extractEnglish(tokens []string, now time.Time, cal model.Calendar, res *Result) []string {
	var (
		hit   dateHit
		found bool
	)
	tokens, dropped := removeAll(tokens, func(lower string) bool {
		h, ok := englishDate(lower, now, cal)
		if ok && !found {
			hit, found = h, true
		}
		return ok
	})
	if !found {
		return tokens
	}
	for _, d := range dropped {
		res.Tokens = append(res.Tokens, display(strings.ToLower(d)))
	}

	var (
		clock    clockHit
		hasClock bool
	)
	tokens, dropped = removeAll(tokens, func(lower string) bool {
		c, ok := englishClock(lower)
		if ok && !hasClock {
			clock, hasClock = c, true
		}
		return ok
	})
	res.Tokens = append(res.Tokens, dropped...)
	applyDue(res, hit, clock, hasClock, cal)
	return tokens
}

func extractChinese(tokens []string, now time.Time, cal model.Calendar, res *Result) []string {
	hit, found := chineseDate(strings.Join(tokens, " "), now, cal)
	if !found {
		return tokens
	}
	res.Tokens = append(res.Tokens, hit.raw)
	tokens = stripChinese(tokens, zhDateRe)

	clock, hasClock := chineseClock(strings.Join(tokens, " "))
	if hasClock {
		res.Tokens = append(res.Tokens, clock.raw)
		tokens = stripClock(tokens)
		tokens = stripChinese(tokens, hhmmRe)
	}
	applyDue(res, hit, clock, hasClock, cal)
	return tokens
}

// applyDue sets the due date from a resolved date and optional time. A bare
// "tonight" lands at eveningHour; an explicit morning hour with "tonight" is
// read as the evening.
func applyDue(res *Result, hit dateHit, clock clockHit, hasClock bool, cal model.Calendar) {
	due := hit.day
	switch {
	case hasClock:
		hour := clock.hour
		if hit.evening && hour < 12 {
			hour += 12
		}
		due = cal.At(hit.day, hour, clock.minute)
		res.HasTime = true
	case hit.evening:
		due = cal.At(hit.day, eveningHour, 0)
		res.HasTime = true
	}
	res.DueDate = &due
}
