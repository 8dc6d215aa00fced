package domain

import (
	"slices"
	"time"
)

// summaryMatchSlack bounds how far apart a summary entry and a timetable row
// may be in time and still describe the same leg. Flight codes repeat daily.
const summaryMatchSlack = 12 * time.Hour

type summaryEntry struct {
	operating    string
	codeshare    bool
	registration string
	acType       string
	divertedTo   string
	ref          *time.Time
}

// SummaryIndex answers per-flight-code questions from the tracking summary:
// the operating code behind a marketing code, the tail number flown and any
// diversion.
type SummaryIndex struct {
	entries map[string][]summaryEntry
}

// BuildSummaryIndex indexes raw summary records under every code they can be
// referred to by.
func BuildSummaryIndex(records []Value, ap Airport) SummaryIndex {
	idx := SummaryIndex{entries: make(map[string][]summaryEntry)}
	for _, rec := range records {
		if !rec.IsObject() {
			continue
		}
		sc := readSummaryCodes(rec)
		e := summaryEntry{
			operating:    sc.operatingCode(),
			codeshare:    sc.codeshare(),
			registration: cleanRegistration(rec.Lookup("reg", "registration").Str()),
			acType:       NormalizeCode(rec.Lookup("type", "aircraft_type").Str()),
			divertedTo:   actualDestination(rec, ap),
			ref: firstTime(
				parseTime(rec.Get("datetime_landed"), time.UTC),
				parseTime(rec.Lookup("datetime_takeoff", "first_seen"), time.UTC),
				parseTime(rec.Get("last_seen"), time.UTC),
			),
		}
		codes := append([]string{sc.flight, sc.callsign, e.operating}, sc.marketingCodes()...)
		seen := make(map[string]bool, len(codes))
		for _, c := range codes {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			idx.entries[c] = append(idx.entries[c], e)
		}
	}
	return idx
}

// Len reports the number of indexed codes.
func (idx SummaryIndex) Len() int {
	return len(idx.entries)
}

// lookup returns the entry for any of r's codes closest in time to r.
func (idx SummaryIndex) lookup(r FlightRow) (summaryEntry, bool) {
	ref := r.BestTime()
	var (
		best    summaryEntry
		bestGap time.Duration
		found   bool
	)
	for _, code := range rowCodes(r) {
		for _, e := range idx.entries[code] {
			gap := time.Duration(0)
			if ref != nil && e.ref != nil {
				gap = e.ref.Sub(*ref).Abs()
				if gap > summaryMatchSlack {
					continue
				}
			}
			if !found || gap < bestGap {
				best, bestGap, found = e, gap, true
			}
		}
		if found {
			return best, true
		}
	}
	return best, found
}

// Enrich returns a copy of r completed from the summary: a marketing code is
// rewritten to the operating code (keeping the old one as a codeshare),
// missing registration and type are filled, and a reported diversion sets
// diverted_to and the diverted status. The taxi rule is re-applied.
func (idx SummaryIndex) Enrich(r FlightRow) FlightRow {
	out := r.Clone()
	e, ok := idx.lookup(out)
	if !ok {
		return out
	}

	own := out.PrimaryCode()
	switch {
	case e.codeshare && e.operating != own:
		out.Codeshares = append(out.Codeshares, own)
		out.FlightICAO = e.operating
		out.AirlineICAO = AirlineFromFlightICAO(e.operating)
		if out.Callsign == "" || out.Callsign == own {
			out.Callsign = e.operating
		}
		out.Codeshares = cleanCodeshares(out.Codeshares, out.PrimaryCode())
	case out.FlightICAO == "" && e.operating != "":
		out.FlightICAO = e.operating
		fillString(&out.AirlineICAO, AirlineFromFlightICAO(e.operating))
	}
	fillString(&out.Registration, e.registration)
	fillString(&out.AcType, e.acType)
	if e.divertedTo != "" && out.DivertedTo == "" {
		out.DivertedTo = e.divertedTo
		out.Status = StatusDiverted
	}
	ApplyTaxiRule(&out)
	return out
}

// rowCodes lists the normalized codes r may be known by, primary first.
func rowCodes(r FlightRow) []string {
	var out []string
	for _, c := range []string{r.PrimaryCode(), r.FlightICAO, r.Callsign, r.FlightIATA, r.FlightNumber} {
		c = NormalizeCode(c)
		if c == "" || isDigits(c) {
			continue
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}
