package scheduling

import (
	"fmt"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveDateText turns a natural-language date expression into an ISO date
// relative to now. Supported inputs: "today", "tomorrow" (and the common
// misspellings tommorow/tmrw/tmr), "yesterday", a weekday name with an
// optional "next " prefix, and a literal YYYY-MM-DD, which passes through.
func ResolveDateText(text string, now time.Time) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	today := now.UTC().Truncate(24 * time.Hour)

	switch {
	case normalized == "today":
		return today.Format(DateLayout), nil
	case normalized == "yesterday":
		return today.AddDate(0, 0, -1).Format(DateLayout), nil
	case normalized == "tomorrow" || normalized == "tmrw" || normalized == "tmr" ||
		strings.HasPrefix(normalized, "tommor"):
		return today.AddDate(0, 0, 1).Format(DateLayout), nil
	}

	name := strings.TrimPrefix(normalized, "next ")
	if wd, ok := weekdayNames[name]; ok {
		// The next strictly future occurrence: asking for the current
		// weekday means a week from now, not today.
		days := int(wd-today.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days).Format(DateLayout), nil
	}

	if t, err := ParseDate(normalized); err == nil {
		return t.Format(DateLayout), nil
	}

	return "", fmt.Errorf("cannot resolve date expression %q", text)
}
