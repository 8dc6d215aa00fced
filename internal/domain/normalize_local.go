package domain

import "time"

// normalizeLocal reads a flat row as persisted in the local flights table,
// or any flat record already close to the canonical shape. Zoneless times
// are UTC.
func normalizeLocal(rec Value, ap Airport) (FlightRow, error) {
	callsign := NormalizeCode(rec.Lookup("callsign").Str())
	flightICAO := cleanICAOFlightCode(firstNonEmpty(rec.Get("flight_icao").Str(), callsign))
	flightIATA := NormalizeCode(rec.Lookup("flight_iata", "flight_number").Str())

	row := FlightRow{
		FlightICAO:   flightICAO,
		FlightIATA:   cleanFlightCode(flightIATA),
		Callsign:     callsign,
		FlightNumber: flightIATA,
		Registration: cleanRegistration(rec.Lookup("registration", "ac_reg").Str()),
		AcType:       NormalizeCode(rec.Get("ac_type").Str()),
		DivertedTo:   cleanAirportCode(rec.Get("diverted_to").Str()),
	}

	// The airline column holds either a designator or a display name.
	airline := rec.Lookup("airline_icao", "airline").Str()
	if code := cleanAirlineICAO(airline); code != "" {
		row.AirlineICAO = code
	} else {
		row.AirlineName = firstNonEmpty(rec.Get("airline_name").Str(), airline)
	}
	if row.AirlineICAO == "" {
		row.AirlineICAO = AirlineFromFlightICAO(row.FlightICAO)
	}

	row.DepCode = cleanAirportCode(rec.Lookup("dep_code", "dep_icao", "dep_iata").Str())
	row.ArrCode = firstNonEmpty(
		cleanAirportCode(rec.Lookup("arr_code", "dst_icao", "arr_icao", "arr_iata").Str()),
		ap.ICAO,
	)

	row.STD = parseTime(rec.Get("std_utc"), time.UTC)
	row.STA = parseTime(rec.Get("sta_utc"), time.UTC)
	row.ETD = parseTime(rec.Get("etd_utc"), time.UTC)
	row.ETA = parseTime(rec.Get("eta_utc"), time.UTC)
	row.ATD = parseTime(rec.Get("atd_utc"), time.UTC)
	row.ATA = parseTime(rec.Get("ata_utc"), time.UTC)

	if f, ok := rec.Get("delay_min").Float(); ok {
		row.DelayMin = int(f)
	}
	if row.ETA == nil {
		delay := time.Duration(row.DelayMin) * time.Minute
		switch {
		case row.STA != nil:
			row.ETA = timePtr(row.STA.Add(delay))
		case row.STD != nil:
			row.ETA = timePtr(row.STD.Add(delay))
		}
	}

	row.Codeshares = readCodeshares(rec, &row)
	applyStatus(&row, rec.Get("status").Str())
	if ap.Matches(row.DivertedTo) {
		row.DivertedTo = ""
	}
	if row.DivertedTo != "" {
		row.Status = StatusDiverted
	}
	return row, nil
}

// readCodeshares accepts a codeshares list, or a codeshares_json payload
// holding either a list or an object with codeshares and diverted_to.
func readCodeshares(rec Value, row *FlightRow) []string {
	payload := rec.Get("codeshares")
	if payload.IsNull() {
		if s := rec.Get("codeshares_json").Str(); s != "" {
			parsed, err := ParseValue([]byte(s))
			if err != nil {
				return nil
			}
			payload = parsed
		} else {
			payload = rec.Get("codeshares_json")
		}
	}

	if payload.IsObject() {
		if d := cleanAirportCode(payload.Get("diverted_to").Str()); d != "" && row.DivertedTo == "" {
			row.DivertedTo = d
		}
		payload = payload.Get("codeshares")
	}

	var out []string
	for _, c := range payload.Items() {
		if s := c.Str(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
