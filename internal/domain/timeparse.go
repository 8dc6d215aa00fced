package domain

import (
	"math"
	"strings"
	"time"
)

// Layouts that carry an explicit zone; parsed as-is.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// Layouts without a zone; interpreted in the provider's local zone.
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Epoch values outside [minUnixSeconds, maxUnixSeconds] are not plausible
// flight times.
const (
	minUnixSeconds = 946684800  // 2000-01-01
	maxUnixSeconds = 4102444800 // 2100-01-01
)

// parseTime reads a provider timestamp. Strings with a Z or numeric offset
// keep their zone; zoneless strings are read in loc; numbers are epoch
// seconds (or milliseconds when large). Unparseable input yields nil.
func parseTime(v Value, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if v.Kind() == KindNumber || isDigits(v.Str()) {
		if f, ok := v.Float(); ok {
			return epochTime(f)
		}
		return nil
	}
	s := v.Str()
	if s == "" {
		return nil
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return timePtr(t)
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return timePtr(t)
		}
	}
	return nil
}

func epochTime(f float64) *time.Time {
	if f >= 1e12 {
		f /= 1000
	}
	if math.IsNaN(f) || f < minUnixSeconds || f > maxUnixSeconds {
		return nil
	}
	sec, frac := math.Modf(f)
	return timePtr(time.Unix(int64(sec), int64(frac*1e9)))
}

// loadZone resolves an IANA zone name, falling back to def.
func loadZone(name string, def *time.Location) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return def
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return def
	}
	return loc
}

// minutesBetween returns b-a in whole minutes, rounded.
func minutesBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Minutes()))
}
