package api

import "time"

// timeLayouts are tried in order, longest first
var timeLayouts = []string{
	"15:04:05",
	"15:04:5",
	"15:4:05",
	"15:4:5",
	"15:04",
	"15:4",
	"15",
}

// ParseTimeOfDay parses a time of day such as "14:05:09", "14:5" or "14". The
// returned time is on the zero date. The bool is false when no layout matches.
func ParseTimeOfDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
