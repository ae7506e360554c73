package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// now is the reference time for relative posting dates
var now = time.Now

var daysAgo = regexp.MustCompile(`(\d+)\+?\s*days?\s+ago`)

// relativeDate turns labels like "Posted 3 days ago", "Today" or "Yesterday"
// into a date. Unrecognized text returns nil.
func relativeDate(label string) *time.Time {
	lower := strings.ToLower(label)
	today := now().UTC().Truncate(24 * time.Hour)

	var t time.Time
	switch {
	case strings.Contains(lower, "just posted"), strings.Contains(lower, "today"):
		t = today
	case strings.Contains(lower, "yesterday"):
		t = today.AddDate(0, 0, -1)
	default:
		m := daysAgo.FindStringSubmatch(lower)
		if m == nil {
			return nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		t = today.AddDate(0, 0, -n)
	}
	return &t
}

// parseDate tries the given layouts in order
func parseDate(value string, layouts ...string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
