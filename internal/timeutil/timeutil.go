package timeutil

import (
	"fmt"
	"time"
)

// LayoutMillis is the wire format used by the payment processors and the
// summary endpoints: UTC, millisecond precision, zero-padded, trailing Z.
const LayoutMillis = "2006-01-02T15:04:05.000Z"

func Format(t time.Time) string {
	return t.UTC().Format(LayoutMillis)
}

// Parse accepts only the fixed-width wire format. Score computation depends
// on an exact round trip, so nothing looser is allowed here.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(LayoutMillis, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp '%s' (expected %s): %w", s, LayoutMillis, err)
	}
	return t.UTC(), nil
}

// ParseQuery parses the from/to query parameters of the summary endpoint.
// Load generators send a few ISO 8601 variants, so this is more forgiving
// than Parse.
func ParseQuery(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		LayoutMillis,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid ISO UTC date '%s' (expected e.g. 2020-07-10T12:34:56.000Z)", s)
}
