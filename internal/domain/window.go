package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidWindow is returned for a window whose end is not after its start.
var ErrInvalidWindow = errors.New("invalid time window")

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time `json:"from"`
	End   time.Time `json:"to"`
}

// NewWindow validates and builds a window.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start.UTC(), End: end.UTC()}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate reports ErrInvalidWindow for zero bounds or an empty interval.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidWindow)
	}
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration is End minus Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// DefaultWindow covers the last 24 hours up to the end of the current UTC day.
func DefaultWindow(now time.Time) Window {
	now = now.UTC()
	return Window{Start: now.Add(-24 * time.Hour), End: startOfDay(now).Add(24 * time.Hour)}
}

// WindowFrom covers hours starting at start.
func WindowFrom(start time.Time, hours int) (Window, error) {
	if hours <= 0 {
		return Window{}, fmt.Errorf("%w: hours must be positive, got %d", ErrInvalidWindow, hours)
	}
	return NewWindow(start, start.Add(time.Duration(hours)*time.Hour))
}

// Historical reports whether the whole window ends at or before the start of
// the current UTC day.
func (w Window) Historical(now time.Time) bool {
	return !w.End.After(startOfDay(now.UTC()))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// InWindow reports whether r is kept by the window filter: any of eta, sta,
// std or ata falls inside, or the row has none of them.
func InWindow(r FlightRow, w Window) bool {
	known := false
	for _, t := range []*time.Time{r.ETA, r.STA, r.STD, r.ATA} {
		if t == nil {
			continue
		}
		known = true
		if w.Contains(*t) {
			return true
		}
	}
	return !known
}

// FilterWindow returns the rows kept by InWindow, in input order.
func FilterWindow(rows []FlightRow, w Window) []FlightRow {
	out := make([]FlightRow, 0, len(rows))
	for _, r := range rows {
		if InWindow(r, w) {
			out = append(out, r)
		}
	}
	return out
}

// Order selects the timetable sort direction.
type Order string

const (
	OrderDescending Order = "desc"
	OrderAscending  Order = "asc"
)

// ParseOrder reads "asc" or "desc"; anything else means descending.
func ParseOrder(s string) Order {
	if lowerTrim(s) == string(OrderAscending) {
		return OrderAscending
	}
	return OrderDescending
}

// SortRows orders rows in place by best-effort time. Rows without any time
// sort last in either direction; ties keep input order.
func SortRows(rows []FlightRow, order Order) {
	slices.SortStableFunc(rows, func(a, b FlightRow) int {
		return compareTimes(a.BestTime(), b.BestTime(), order == OrderAscending)
	})
}
