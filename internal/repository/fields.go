package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// column returns row[i], or "" for short rows.
func column(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseRecordID reads the id column. Zero, negative and unparsable values are
// rejected so the row can be dropped.
func parseRecordID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func formatRecordID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func optionalString(raw string) *string {
	if raw == "" {
		return nil
	}
	v := raw
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
