package domain

import "time"

// Key candidates for the two AviationStack payload shapes: the flights
// endpoint (snake_case) and the timetable endpoint (camelCase).
var (
	scheduledKeys = []string{"scheduled", "scheduledTime", "scheduled_time"}
	estimatedKeys = []string{"estimated", "estimatedTime", "estimated_runway"}
	actualKeys    = []string{"actual", "actualTime", "actual_runway"}
	icaoKeys      = []string{"icao", "icaoCode", "icao_code"}
	iataKeys      = []string{"iata", "iataCode", "iata_code"}
)

// flightCodes is the identity extracted from a flight/airline segment pair.
type flightCodes struct {
	iata        string
	icao        string
	number      string
	airlineICAO string
}

// buildFlightCodes derives flight codes from the flight and airline segments,
// composing airline designator plus number when a code is missing.
func buildFlightCodes(flight, airline Value) flightCodes {
	var fc flightCodes
	for _, k := range []string{"number", "iataNumber", "iata_number", "icaoNumber", "icao_number", "flight_number"} {
		if n := NumericSuffix(flight.Get(k).Str()); n != "" {
			fc.number = n
			break
		}
	}

	airIATA := NormalizeCode(airline.Lookup("iata", "iataCode", "airline_iata").Str())
	fc.airlineICAO = cleanAirlineICAO(airline.Lookup("icao", "icaoCode", "airline_icao").Str())

	fc.iata = cleanFlightCode(flight.Lookup("iata", "iataNumber", "flight_iata").Str())
	fc.icao = cleanICAOFlightCode(flight.Lookup("icao", "icaoNumber", "flight_icao").Str())

	if fc.iata == "" && airIATA != "" && fc.number != "" {
		fc.iata = cleanFlightCode(airIATA + fc.number)
	}
	if fc.icao == "" && fc.airlineICAO != "" && fc.number != "" {
		fc.icao = cleanICAOFlightCode(fc.airlineICAO + fc.number)
	}
	if fc.airlineICAO == "" {
		fc.airlineICAO = AirlineFromFlightICAO(fc.icao)
	}
	return fc
}

// pickCode prefers the ICAO code of a segment over its IATA code.
func pickCode(segment Value) string {
	if c := cleanAirportCode(segment.Lookup(icaoKeys...).Str()); c != "" {
		return c
	}
	return cleanAirportCode(segment.Lookup(iataKeys...).Str())
}

func normalizeSchedule(rec Value, ap Airport) (FlightRow, error) {
	dep := rec.Find("departure")
	arr := rec.Find("arrival")
	airline := rec.Find("airline")
	flight := rec.Find("flight")
	aircraft := rec.Find("aircraft")

	var marketing string
	if cs := rec.Find("codeshared"); cs.IsObject() {
		marketing = NormalizeCode(flight.Lookup("iata", "iataNumber", "icao", "icaoNumber").Str())
		if a := cs.Get("airline"); a.IsObject() {
			airline = a
		} else {
			airline = cs
		}
		if f := cs.Get("flight"); f.IsObject() {
			flight = f
		} else {
			flight = cs
		}
	}

	codes := buildFlightCodes(flight, airline)
	row := FlightRow{
		FlightICAO:   codes.icao,
		FlightIATA:   codes.iata,
		Callsign:     codes.icao,
		FlightNumber: firstNonEmpty(codes.iata, codes.number),
		AirlineICAO:  codes.airlineICAO,
		AirlineName:  airline.Lookup("name", "airline_name", "nameAirline").Str(),
		Registration: cleanRegistration(aircraft.Lookup("registration", "reg").Str()),
		AcType:       NormalizeCode(aircraft.Lookup("icao", "icao_code", "icaoCode", "iata").Str()),
	}
	if marketing != "" {
		row.Codeshares = []string{marketing}
	}

	local := ap.location()
	arrTZ := loadZone(arr.Get("timezone").Str(), local)
	depTZ := local
	if tz := dep.Get("timezone").Str(); tz != "" {
		depTZ = loadZone(tz, local)
	} else if !ap.Matches(pickCode(dep)) {
		depTZ = arrTZ
	}

	row.STA = parseTime(arr.Lookup(scheduledKeys...), arrTZ)
	row.ETA = parseTime(arr.Lookup(estimatedKeys...), arrTZ)
	row.ATA = parseTime(arr.Lookup(actualKeys...), arrTZ)
	row.STD = parseTime(dep.Lookup(scheduledKeys...), depTZ)
	row.ETD = parseTime(dep.Lookup(estimatedKeys...), depTZ)
	row.ATD = parseTime(dep.Lookup(actualKeys...), depTZ)

	row.DepCode = pickCode(dep)
	// Queries are scoped to the home airport, so a missing arrival code means
	// it. A different code is not trusted for this leg and is blanked.
	row.ArrCode = pickCode(arr)
	switch {
	case row.ArrCode == "":
		row.ArrCode = ap.ICAO
	case !ap.Matches(row.ArrCode):
		row.ArrCode = ""
	}

	row.DelayMin = scheduleDelay(arr.Get("delay"), row.STA, row.ETA, row.ATA)
	applyStatus(&row, rec.Lookup("flight_status", "status").Str())
	return row, nil
}

// scheduleDelay prefers the provider's delay, else derives it from the
// estimated or actual arrival against schedule.
func scheduleDelay(reported Value, sta, eta, ata *time.Time) int {
	if f, ok := reported.Float(); ok {
		return int(f)
	}
	switch {
	case sta != nil && eta != nil:
		return minutesBetween(*sta, *eta)
	case sta != nil && ata != nil:
		return minutesBetween(*sta, *ata)
	}
	return 0
}
