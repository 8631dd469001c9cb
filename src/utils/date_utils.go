package utils

import (
	"strings"
	"time"
)

// Accepted textual timestamp layouts for trade dates, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseFlexibleDate parses an ISO-8601 timestamp. If the raw string does not
// parse, it retries with the first space replaced by the ISO 'T' separator,
// which accepts the common "2006-01-02 15:04" CSV form.
func ParseFlexibleDate(dateStr string) (time.Time, bool) {
	s := strings.TrimSpace(dateStr)
	if s == "" {
		return time.Time{}, false
	}

	candidates := []string{s, strings.Replace(s, " ", "T", 1)}
	for _, candidate := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
