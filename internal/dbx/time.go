package dbx

import "time"

// Timestamps are stored as RFC 3339 text in UTC so the same schema works on
// SQLite and PostgreSQL.

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// NullableTime formats t or returns nil for a nil pointer.
func NullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}
