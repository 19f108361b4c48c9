package utils

import (
	"fmt"
	"strings"
	"time"
)

// DeadlineLayout is the layout deadlines and timestamps are rendered with in remarks.
const DeadlineLayout = "2006-01-02T15:04"

var deadlineLayouts = []string{
	DeadlineLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatDeadline renders t for remark templates.
func FormatDeadline(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DeadlineLayout)
}

// FormatDeadlinePtr renders t or "" for nil.
func FormatDeadlinePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDeadline(*t)
}

// ParseDeadline accepts the remark layout, RFC 3339, and a bare date. Values
// without a zone are read in loc.
func ParseDeadline(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("deadline is empty")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed deadline %q, expected %s", raw, DeadlineLayout)
}

// ParseOptionalDeadline is ParseDeadline for optional form fields.
func ParseOptionalDeadline(raw string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDeadline(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
