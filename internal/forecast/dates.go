package forecast

import (
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

var dateLayouts = []string{
	dayLayout,
	"2006-01",
	"2006/01/02",
	"2006/01",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// NormalizeDate parses a day or month anchor into its YYYY-MM-DD calendar date.
// Timestamps keep the calendar date they were written with, regardless of offset.
func NormalizeDate(raw string) (string, bool) {
	t, ok := parseDate(raw)
	if !ok {
		return "", false
	}
	return t.Format(dayLayout), true
}

func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
