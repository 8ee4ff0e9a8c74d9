package persistence

import (
	"database/sql"
	"time"
)

func timeToUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func unixMillisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(v)
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}

	return v
}

func stringOrEmpty(v sql.NullString) string {
	if !v.Valid {
		return ""
	}

	return v.String
}
