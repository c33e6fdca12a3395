package timex

import (
	"errors"
	"fmt"
	"time"
)

// LocalLayout is the human-facing "yyyy-MM-dd HH:mm" layout.
const LocalLayout = "2006-01-02 15:04"

// ErrOutOfRange is returned for instants that RFC3339 cannot carry.
var ErrOutOfRange = errors.New("instant out of range")

// FormatStored renders t for persistence: RFC3339 with nanoseconds, in UTC.
// The zero time is stored as an empty string.
func FormatStored(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// CheckStorable rejects instants whose UTC year is outside 0..9999, which
// FormatStored would write but ParseStored could not read back.
func CheckStorable(t time.Time) error {
	if t.IsZero() {
		return nil
	}
	if y := t.UTC().Year(); y < 0 || y > 9999 {
		return fmt.Errorf("%w: year %d", ErrOutOfRange, y)
	}
	return nil
}

// ParseStored is the inverse of FormatStored. Values written by older
// builds in LocalLayout are still accepted and read in loc.
func ParseStored(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(LocalLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable instant %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatLocal renders t in LocalLayout within loc (time.Local when nil).
func FormatLocal(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "ND"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(LocalLayout)
}
