package shared

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts RFC3339 timestamps or bare YYYY-MM-DD dates; campaign
// start and due dates usually arrive as the latter.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or %s: %w", dateLayout, err)
	}
	return parsed, nil
}
