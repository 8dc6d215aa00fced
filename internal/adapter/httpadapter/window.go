package httpadapter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

// Accepted start/end layouts. Values without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseWindow reads the requested window from the query string:
//
//	start=<time|now>[&hours=N]   N hours from start (default defaultHours)
//	start=<time>&to=<time>       explicit bounds
//	(nothing)                    domain.DefaultWindow
//
// "from" is accepted as an alias for "start".
func parseWindow(q url.Values, now time.Time, defaultHours int) (domain.Window, error) {
	start := q.Get("start")
	if start == "" {
		start = q.Get("from")
	}
	end := q.Get("to")

	if start == "" {
		if end != "" {
			return domain.Window{}, fmt.Errorf("%w: to requires start", domain.ErrInvalidWindow)
		}
		return domain.DefaultWindow(now), nil
	}

	from, err := parseQueryTime(start, now)
	if err != nil {
		return domain.Window{}, err
	}
	if end != "" {
		to, err := parseQueryTime(end, now)
		if err != nil {
			return domain.Window{}, err
		}
		return domain.NewWindow(from, to)
	}

	hours := defaultHours
	if h := q.Get("hours"); h != "" {
		hours, err = strconv.Atoi(h)
		if err != nil {
			return domain.Window{}, fmt.Errorf("%w: hours %q is not a number", domain.ErrInvalidWindow, h)
		}
	}
	return domain.WindowFrom(from, hours)
}

func parseQueryTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "now") {
		return now.UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse time %q", domain.ErrInvalidWindow, s)
}
