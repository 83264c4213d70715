package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// SessionDate returns the calendar date of t in loc.
func SessionDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseSessionDate parses a YYYY-MM-DD date at midnight in loc.
func ParseSessionDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

func IsWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// PreviousTradingDay steps back one calendar day at a time, skipping weekends.
func PreviousTradingDay(t time.Time) time.Time {
	prev := t.AddDate(0, 0, -1)
	for IsWeekend(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// MinutesOfDay returns the minutes elapsed since midnight in loc.
func MinutesOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// FormatClock renders minutes since midnight as e.g. "9:30 AM".
func FormatClock(minutes int) string {
	hour, minute := (minutes/60)%24, minutes%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, suffix)
}

// ParseTimestamp accepts unix seconds, unix milliseconds or RFC3339 and
// returns the instant in UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
		}
		if n >= 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
	}
	return t.UTC(), nil
}
