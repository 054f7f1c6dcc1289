package timeutil

import (
	"time"
)

// RFC3339Millis is RFC 3339 UTC with fixed millisecond precision, used in API payloads.
const RFC3339Millis = "2006-01-02T15:04:05.000Z"

// RFC3339Micros is RFC 3339 UTC with fixed microsecond precision, used in log timestamps.
const RFC3339Micros = "2006-01-02T15:04:05.000000Z"

// Time marshals as RFC 3339 UTC with millisecond precision, e.g. "2024-01-15T10:30:00.000Z".
// Unmarshaling JSON null leaves the value untouched, like time.Time.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(RFC3339Millis) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// StoreNow returns the current instant in the precision both profile stores
// persist (UTC, microseconds), so values read back compare equal.
func StoreNow() time.Time {
	return Storage(time.Now())
}

// Storage normalises t to UTC microsecond precision.
func Storage(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
