package quickadd

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var punctReplacer = strings.NewReplacer("，", " ", "。", " ", "、", " ")

// normalize turns Chinese punctuation into spaces, narrows full-width forms
// (so "：" becomes ":") and trims.
func normalize(text string) string {
	text = punctReplacer.Replace(text)
	text = width.Narrow.String(text)
	return strings.TrimSpace(text)
}

var weekdayNames = map[string]string{
	"sunday": "sunday", "sun": "sunday",
	"monday": "monday", "mon": "monday",
	"tuesday": "tuesday", "tue": "tuesday", "tues": "tuesday",
	"wednesday": "wednesday", "wed": "wednesday",
	"thursday": "thursday", "thu": "thursday", "thur": "thursday", "thurs": "thursday",
	"friday": "friday", "fri": "friday",
	"saturday": "saturday", "sat": "saturday",
}

var weekdayNumbers = map[string]int{
	"sunday": 1, "monday": 2, "tuesday": 3, "wednesday": 4,
	"thursday": 5, "friday": 6, "saturday": 7,
}

// tokenize splits on whitespace and collapses the English multi-word phrases
// into single underscored tokens: "day after tomorrow", "next week",
// "next <weekday>" and "every day|week|month".
func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		lower := strings.ToLower(fields[i])
		next := func(k int) string {
			if i+k < len(fields) {
				return strings.ToLower(fields[i+k])
			}
			return ""
		}
		switch lower {
		case "day":
			if next(1) == "after" && next(2) == "tomorrow" {
				out = append(out, "day_after_tomorrow")
				i += 2
				continue
			}
		case "next":
			if next(1) == "week" {
				out = append(out, "next_week")
				i++
				continue
			}
			if wd, ok := weekdayNames[next(1)]; ok {
				out = append(out, "next_"+wd)
				i++
				continue
			}
		case "every":
			switch next(1) {
			case "day", "week", "month":
				out = append(out, "every_"+next(1))
				i++
				continue
			}
		}
		out = append(out, fields[i])
	}
	return out
}

// display turns a collapsed token back into the words the user typed.
func display(token string) string {
	return strings.ReplaceAll(token, "_", " ")
}

// hasLatin reports whether any token contains a Latin letter.
func hasLatin(tokens []string) bool {
	for _, tok := range tokens {
		for _, r := range tok {
			if unicode.Is(unicode.Latin, r) {
				return true
			}
		}
	}
	return false
}

// removeAll drops every token for which match reports true and returns the
// survivors together with the dropped tokens.
func removeAll(tokens []string, match func(lower string) bool) (kept, dropped []string) {
	for _, tok := range tokens {
		if match(strings.ToLower(tok)) {
			dropped = append(dropped, tok)
			continue
		}
		kept = append(kept, tok)
	}
	return kept, dropped
}
