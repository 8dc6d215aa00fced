package domain

import (
	"math"
	"time"
)

// summaryCodes is the identity carried by a tracking summary entry.
type summaryCodes struct {
	flight    string // marketing code as tracked, e.g. "AM2345"
	callsign  string
	operating string // operator ICAO designator
	painted   string // livery ICAO designator
	digits    string
}

func readSummaryCodes(rec Value) summaryCodes {
	sc := summaryCodes{
		flight:    NormalizeCode(rec.Lookup("flight", "flight_iata", "flight_number").Str()),
		callsign:  NormalizeCode(rec.Get("callsign").Str()),
		operating: cleanAirlineICAO(rec.Get("operating_as").Str()),
		painted:   cleanAirlineICAO(rec.Get("painted_as").Str()),
	}
	sc.digits = NumericSuffix(firstNonEmpty(sc.flight, sc.callsign))
	if sc.callsign == "" && sc.operating != "" && sc.digits != "" {
		sc.callsign = sc.operating + sc.digits
	}
	return sc
}

// codeshare reports whether the entry flies under another carrier's livery.
func (sc summaryCodes) codeshare() bool {
	return sc.painted != "" && sc.operating != "" && sc.painted != sc.operating && sc.digits != ""
}

// operatingCode is the code identifying the physical leg.
func (sc summaryCodes) operatingCode() string {
	if sc.codeshare() {
		return sc.operating + sc.digits
	}
	if IsICAOFlightCode(sc.callsign) {
		return sc.callsign
	}
	return ""
}

// marketingCodes lists the codes the leg is sold under besides the operating one.
func (sc summaryCodes) marketingCodes() []string {
	if !sc.codeshare() {
		return nil
	}
	codes := []string{sc.painted + sc.digits}
	if sc.flight != "" {
		codes = append(codes, sc.flight)
	}
	return codes
}

// actualDestination returns the airport the flight really landed at when it
// differs from ours.
func actualDestination(rec Value, ap Airport) string {
	for _, k := range []string{"dest_icao_actual", "dest_iata_actual"} {
		if c := cleanAirportCode(rec.Get(k).Str()); c != "" {
			if ap.Matches(c) {
				return ""
			}
			return c
		}
	}
	return ""
}

func normalizeSummary(rec Value, ap Airport) (FlightRow, error) {
	sc := readSummaryCodes(rec)

	row := FlightRow{
		FlightICAO:   sc.operatingCode(),
		Callsign:     sc.callsign,
		AirlineICAO:  firstNonEmpty(sc.operating, AirlineFromFlightICAO(sc.callsign)),
		AirlineName:  rec.Lookup("airline_name", "operating_as_name").Str(),
		Registration: cleanRegistration(rec.Lookup("reg", "registration").Str()),
		AcType:       NormalizeCode(rec.Lookup("type", "aircraft_type").Str()),
		Codeshares:   sc.marketingCodes(),
	}
	if sc.codeshare() {
		row.FlightNumber = sc.digits
	} else {
		row.FlightIATA = cleanFlightCode(sc.flight)
		row.FlightNumber = sc.flight
	}

	row.DepCode = firstNonEmpty(
		cleanAirportCode(rec.Lookup("orig_icao", "origin_icao").Str()),
		cleanAirportCode(rec.Get("orig_iata").Str()),
	)
	row.ArrCode = firstNonEmpty(
		cleanAirportCode(rec.Get("dest_icao").Str()),
		cleanAirportCode(rec.Get("dest_iata").Str()),
		ap.ICAO,
	)
	row.DivertedTo = actualDestination(rec, ap)

	row.ATD = parseTime(rec.Lookup("datetime_takeoff", "first_seen"), time.UTC)
	row.ATA = parseTime(rec.Get("datetime_landed"), time.UTC)
	if row.ATA == nil && rec.Get("flight_ended").Bool() {
		row.ATA = parseTime(rec.Get("last_seen"), time.UTC)
	}
	if eet, ok := rec.Lookup("flight_time", "eet", "eet_sec").Float(); ok && eet > 0 {
		row.EETMin = int(math.Round(eet / 60))
		if row.ATD != nil && row.ATA == nil {
			row.ETA = timePtr(row.ATD.Add(time.Duration(eet) * time.Second))
		}
	}
	if row.ATA != nil {
		row.ETA = cloneTime(row.ATA)
	}

	switch {
	case row.DivertedTo != "":
		row.Status = StatusDiverted
	case row.ATA != nil:
		row.Status = StatusLanded
	case row.ATD != nil:
		row.Status = StatusActive
	default:
		row.Status = StatusScheduled
	}
	return row, nil
}
