package store

import (
	"fmt"
	"time"
)

// timeLayout has a fixed fraction width so text comparison matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	if t, rfcErr := time.Parse(time.RFC3339, s); rfcErr == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
}

// nullableString returns nil for empty strings so the column stores NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
