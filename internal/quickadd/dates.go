package quickadd

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"myday/internal/model"
)

// eveningHour is the time given to "tonight" / 今晚 when no time is typed.
const eveningHour = 20

// dateHit is a resolved date keyword.
type dateHit struct {
	day     time.Time // start of day
	evening bool      // tonight / 今晚
	raw     string
}

// clockHit is a resolved time-of-day token.
type clockHit struct {
	hour, minute int
	raw          string
}

// ---- English ----

var (
	enClockRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	enAmPmRe  = regexp.MustCompile(`^(1[0-2]|0?[1-9])(?::([0-5]\d))?(am|pm)$`)
)

// englishDate resolves a lowercased token to a date.
func englishDate(lower string, now time.Time, cal model.Calendar) (dateHit, bool) {
	hit := dateHit{raw: display(lower)}
	switch lower {
	case "today":
		hit.day = cal.StartOfDay(now)
	case "tonight":
		hit.day = cal.StartOfDay(now)
		hit.evening = true
	case "tomorrow", "tmr", "tmrw":
		hit.day = cal.AddDays(now, 1)
	case "day_after_tomorrow":
		hit.day = cal.AddDays(now, 2)
	case "next_week":
		hit.day = cal.AddDays(now, 7)
	default:
		if name, ok := strings.CutPrefix(lower, "next_"); ok {
			n, ok := weekdayNumbers[name]
			if !ok {
				return dateHit{}, false
			}
			hit.day = cal.NextWeekday(now, n, true)
			return hit, true
		}
		name, ok := weekdayNames[lower]
		if !ok {
			return dateHit{}, false
		}
		hit.day = cal.NextWeekday(now, weekdayNumbers[name], false)
	}
	return hit, true
}

// englishClock parses "HH:MM" and "h[:mm]am|pm".
func englishClock(lower string) (clockHit, bool) {
	if m := enClockRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return clockHit{hour: h, minute: minute, raw: lower}, true
	}
	m := enAmPmRe.FindStringSubmatch(lower)
	if m == nil {
		return clockHit{}, false
	}
	h, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch {
	case m[3] == "am" && h == 12:
		h = 0
	case m[3] == "pm" && h < 12:
		h += 12
	}
	return clockHit{hour: h, minute: minute, raw: lower}, true
}

// ---- Chinese ----

var (
	zhDateRe  = regexp.MustCompile(`下周([一二三四五六日天])|(?:周|星期)([一二三四五六日天])|下周|今天|明天|后天|今晚`)
	zhClockRe = regexp.MustCompile(`(上午|下午|晚上|中午)?([01]?\d|2[0-3])点(半|([0-5]?\d)分?)?`)
	hhmmRe    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

var zhWeekdays = map[string]int{
	"一": 2, "二": 3, "三": 4, "四": 5, "五": 6, "六": 7, "日": 1, "天": 1,
}

// chineseDate resolves the leftmost date keyword in text.
func chineseDate(text string, now time.Time, cal model.Calendar) (dateHit, bool) {
	m := zhDateRe.FindStringSubmatch(text)
	if m == nil {
		return dateHit{}, false
	}
	hit := dateHit{raw: m[0]}
	switch {
	case m[1] != "":
		hit.day = cal.NextWeekday(now, zhWeekdays[m[1]], true)
	case m[2] != "":
		hit.day = cal.NextWeekday(now, zhWeekdays[m[2]], false)
	case m[0] == "下周":
		hit.day = cal.AddDays(now, 7)
	case m[0] == "今天":
		hit.day = cal.StartOfDay(now)
	case m[0] == "今晚":
		hit.day = cal.StartOfDay(now)
		hit.evening = true
	case m[0] == "明天":
		hit.day = cal.AddDays(now, 1)
	case m[0] == "后天":
		hit.day = cal.AddDays(now, 2)
	}
	return hit, true
}

// zhClockMatches returns the submatch indexes of the time phrases in text
// that stand alone: a digit right before or after a match ("25点", "3点60")
// means the number was not a clock time.
func zhClockMatches(text string) [][]int {
	var out [][]int
	for _, m := range zhClockRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 && isDigit(text[m[0]-1]) || m[1] < len(text) && isDigit(text[m[1]]) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// stripClock removes the standalone time phrases from tokens.
func stripClock(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		var b strings.Builder
		last := 0
		for _, m := range zhClockMatches(tok) {
			b.WriteString(tok[last:m[0]])
			b.WriteByte(' ')
			last = m[1]
		}
		b.WriteString(tok[last:])
		out = append(out, strings.Fields(b.String())...)
	}
	return out
}

// chineseClock resolves the leftmost time phrase or HH:MM in text.
func chineseClock(text string) (clockHit, bool) {
	var zh []int
	if all := zhClockMatches(text); len(all) > 0 {
		zh = all[0]
	}
	hm := hhmmRe.FindStringSubmatchIndex(text)
	switch {
	case zh == nil && hm == nil:
		return clockHit{}, false
	case zh == nil || (hm != nil && hm[0] < zh[0]):
		h, _ := strconv.Atoi(text[hm[2]:hm[3]])
		minute, _ := strconv.Atoi(text[hm[4]:hm[5]])
		return clockHit{hour: h, minute: minute, raw: text[hm[0]:hm[1]]}, true
	}

	group := func(i int) string {
		if zh[2*i] < 0 {
			return ""
		}
		return text[zh[2*i]:zh[2*i+1]]
	}
	h, _ := strconv.Atoi(group(2))
	minute := 0
	switch {
	case group(3) == "半":
		minute = 30
	case group(4) != "":
		minute, _ = strconv.Atoi(group(4))
	}
	return clockHit{hour: applyPeriod(group(1), h), minute: minute, raw: group(0)}, true
}

// applyPeriod shifts an hour by its 上午/下午/晚上/中午 qualifier.
func applyPeriod(period string, hour int) int {
	switch period {
	case "下午", "晚上":
		if hour < 12 {
			hour += 12
		}
	case "中午":
		if hour < 11 {
			hour += 12
		}
	case "上午":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

// stripChinese replaces every match of re in tokens with a space and
// re-splits, returning the surviving tokens.
func stripChinese(tokens []string, re *regexp.Regexp) []string {
	var out []string
	for _, tok := range tokens {
		out = append(out, strings.Fields(re.ReplaceAllString(tok, " "))...)
	}
	return out
}
