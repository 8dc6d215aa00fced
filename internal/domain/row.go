package domain

import (
	"fmt"
	"slices"
	"time"
)

// Source identifies the provider family a row was normalized from.
type Source string

const (
	// SourceSchedule is the commercial schedule API (AviationStack).
	SourceSchedule Source = "schedule"
	// SourceSummary is the ADS-B tracking summary API (Flightradar24).
	SourceSummary Source = "summary"
	// SourceLocal is the local database of persisted flights.
	SourceLocal Source = "local"
)

// Airport is the arrival airport the timetable is built for.
type Airport struct {
	IATA     string
	ICAO     string
	Location *time.Location
}

// Matches reports whether code names this airport by either code.
func (a Airport) Matches(code string) bool {
	return code != "" && (code == a.IATA || code == a.ICAO)
}

func (a Airport) location() *time.Location {
	if a.Location == nil {
		return time.UTC
	}
	return a.Location
}

// FlightRow is the canonical record for one flight leg. Empty strings and nil
// times mean the value is absent.
type FlightRow struct {
	FlightICAO   string `json:"flight_icao,omitempty"`
	FlightIATA   string `json:"flight_iata,omitempty"`
	Callsign     string `json:"callsign,omitempty"`
	FlightNumber string `json:"flight_number,omitempty"`
	AirlineICAO  string `json:"airline_icao,omitempty"`
	AirlineName  string `json:"airline_name,omitempty"`
	DepCode      string `json:"dep_code,omitempty"`
	ArrCode      string `json:"arr_code,omitempty"`

	STD *time.Time `json:"std_utc,omitempty"`
	STA *time.Time `json:"sta_utc,omitempty"`
	ETD *time.Time `json:"etd_utc,omitempty"`
	ETA *time.Time `json:"eta_utc,omitempty"`
	ATD *time.Time `json:"atd_utc,omitempty"`
	ATA *time.Time `json:"ata_utc,omitempty"`

	DelayMin  int    `json:"delay_min,omitempty"`
	Status    Status `json:"status"`
	RawStatus string `json:"raw_status,omitempty"`

	// Registration is the aircraft tail number (ac_reg).
	Registration string   `json:"registration,omitempty"`
	AcType       string   `json:"ac_type,omitempty"`
	Codeshares   []string `json:"codeshares,omitempty"`
	DivertedTo   string   `json:"diverted_to,omitempty"`
	EETMin       int      `json:"eet_min,omitempty"`

	Source        Source `json:"source,omitempty"`
	DisplayStatus Status `json:"display_status,omitempty"`
}

// BestTime returns the first known of sta, std, eta and ata.
func (r FlightRow) BestTime() *time.Time {
	for _, t := range []*time.Time{r.STA, r.STD, r.ETA, r.ATA} {
		if t != nil {
			return t
		}
	}
	return nil
}

// HasTime reports whether any of the window-relevant timestamps is known.
func (r FlightRow) HasTime() bool {
	return r.BestTime() != nil
}

// PrimaryCode resolves the flight code used for identity: the ICAO flight
// code, else airline ICAO plus the trailing flight number digits, else the
// IATA code, else the raw flight number, else the callsign.
func (r FlightRow) PrimaryCode() string {
	if c := NormalizeCode(r.FlightICAO); c != "" {
		return c
	}
	if r.AirlineICAO != "" {
		for _, c := range []string{r.FlightIATA, r.FlightNumber, r.Callsign} {
			if n := NumericSuffix(c); n != "" {
				return r.AirlineICAO + n
			}
		}
	}
	for _, c := range []string{r.FlightIATA, r.FlightNumber, r.Callsign} {
		if c = NormalizeCode(c); c != "" {
			return c
		}
	}
	return ""
}

// Clone returns a deep copy of r.
func (r FlightRow) Clone() FlightRow {
	out := r
	out.STD = cloneTime(r.STD)
	out.STA = cloneTime(r.STA)
	out.ETD = cloneTime(r.ETD)
	out.ETA = cloneTime(r.ETA)
	out.ATD = cloneTime(r.ATD)
	out.ATA = cloneTime(r.ATA)
	out.Codeshares = slices.Clone(r.Codeshares)
	return out
}

// String renders a short human-readable label for logs.
func (r FlightRow) String() string {
	t := "-"
	if bt := r.BestTime(); bt != nil {
		t = bt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s %s→%s %s [%s]", r.PrimaryCode(), r.DepCode, r.ArrCode, t, r.Status)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
