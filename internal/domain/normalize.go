package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrNoTime marks a record that carries none of sta, eta, ata or std.
	ErrNoTime = errors.New("record has no usable timestamp")
	// ErrNoIdentity marks a record with no flight code, callsign or registration.
	ErrNoIdentity = errors.New("record has no flight identity")
)

// Normalize converts one raw provider record into a canonical FlightRow.
// It never panics on malformed input: a record that cannot become a row
// yields ErrNoTime or ErrNoIdentity, and malformed fields are
// blanked rather than rejected.
func Normalize(rec Value, src Source, ap Airport) (FlightRow, error) {
	if !rec.IsObject() {
		return FlightRow{}, fmt.Errorf("%s record is not an object: %w", src, ErrNoIdentity)
	}

	var (
		row FlightRow
		err error
	)
	switch src {
	case SourceSchedule:
		row, err = normalizeSchedule(rec, ap)
	case SourceSummary:
		row, err = normalizeSummary(rec, ap)
	case SourceLocal:
		row, err = normalizeLocal(rec, ap)
	default:
		return FlightRow{}, fmt.Errorf("unknown source %q", src)
	}
	if err != nil {
		return FlightRow{}, err
	}

	row.Source = src
	if !row.HasTime() {
		return FlightRow{}, ErrNoTime
	}
	if row.PrimaryCode() == "" && row.Registration == "" {
		return FlightRow{}, ErrNoIdentity
	}
	row.Codeshares = cleanCodeshares(row.Codeshares, row.PrimaryCode())
	ApplyTaxiRule(&row)
	return row, nil
}

// applyStatus records the raw vendor status and its canonical mapping.
func applyStatus(r *FlightRow, raw string) {
	r.Status = ParseStatus(raw)
	if raw != "" {
		r.RawStatus = lowerTrim(raw)
	}
}

// cleanCodeshares uppercases, deduplicates and drops the row's own code.
func cleanCodeshares(codes []string, own string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = NormalizeCode(c)
		if c == "" || c == own || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
