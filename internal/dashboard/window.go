package dashboard

import (
	"strings"
	"time"
)

// InputLayout is the operator-facing date-time format.
const InputLayout = "2006-01-02T15:04"

var inputLayouts = []string{InputLayout, "2006-01-02T15:04:05"}

// Window is an inclusive UTC time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NormalizeWindow parses operator-supplied local date-times in loc and returns
// inclusive UTC bounds.
func NormalizeWindow(start, end string, loc *time.Location) (Window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return Window{}, invalid("please select both start and end dates")
	}

	from, err := parseLocal(start, loc)
	if err != nil {
		return Window{}, invalid("invalid start date %q", start)
	}
	to, err := parseLocal(end, loc)
	if err != nil {
		return Window{}, invalid("invalid end date %q", end)
	}
	if from.After(to) {
		return Window{}, invalid("start date must be before end date")
	}

	return Window{Start: from.UTC(), End: to.UTC()}, nil
}

// LastDay returns input strings covering the 24 hours before now.
func LastDay(now time.Time, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	return now.Add(-24 * time.Hour).Format(InputLayout), now.Format(InputLayout)
}

func parseLocal(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range inputLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
