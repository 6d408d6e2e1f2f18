package canonical

import (
	"strings"
	"time"
)

// TimestampLayout is how timestamps are written to the canonical CSV.
// Fractional seconds are only emitted when present.
const TimestampLayout = "2006-01-02 15:04:05.999999999-07:00"

// timestampLayouts are tried in order. Zone-less inputs are read as UTC.
// Fractional seconds after the seconds field are accepted by every layout
// that has one.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700", // Jira REST: 2024-01-01T00:00:00.000+0000
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00", // canonical CSV
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/Jan/06 3:04 PM", // Jira CSV export
	"02/Jan/06 15:04",
	"02/Jan/2006 3:04 PM",
	"2006/01/02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006",
}

// ParseTimestamp coerces s into a timestamp. Blank or unparseable input
// yields nil, never an error.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return &t
		}
	}
	return nil
}

// FormatTimestamp renders t for the canonical CSV; nil renders as an empty cell.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimestampLayout)
}
