package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts tried for server timestamps that carry no zone. They are read as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp reads a server-assigned timestamp. Values without a zone are
// UTC; bare integers are unix milliseconds (or seconds when too small).
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < 1e11 {
			return time.Unix(n, 0).UTC(), nil
		}
		return time.UnixMilli(n).UTC(), nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	for _, layout := range zonelessLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// ParseSince resolves a history filter such as "2h", "3d", "today",
// "yesterday" or a date to an absolute lower bound.
func ParseSince(value string, now time.Time) (time.Time, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time query")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch value {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if ts, ok := parseRelativeTime(value, now); ok {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return ts, nil
	}
	return ParseTimestamp(value)
}

func parseRelativeTime(value string, now time.Time) (time.Time, bool) {
	if len(value) < 2 {
		return time.Time{}, false
	}
	unit := value[len(value)-1:]
	var step time.Duration
	switch unit {
	case "m":
		step = time.Minute
	case "h":
		step = time.Hour
	case "d":
		step = 24 * time.Hour
	case "w":
		step = 7 * 24 * time.Hour
	default:
		return time.Time{}, false
	}
	amount, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || amount <= 0 {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(amount) * step), true
}
