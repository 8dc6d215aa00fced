// Package domain reconciles arrival timetables for a single airport from
// several independent flight data providers.
//
// # Data Sources
//
// Three kinds of source feed a run, each identified by [Source]:
//
//	schedule  AviationStack timetable and flights endpoints. Nested
//	          departure/arrival/airline/flight/aircraft segments, in either
//	          snake_case (flights) or camelCase (timetable) spelling.
//	summary   Flightradar24 flight-summary entries. Flat records describing
//	          a tracked leg: callsign, operating and painted carrier,
//	          registration, takeoff and landing instants.
//	local     Rows persisted in the local flights table. Flat and already
//	          close to the canonical shape.
//
// Every record arrives as a [Value], a dynamically typed JSON tree. Key
// lookups are case-insensitive and [Value.Find] searches nested segments
// breadth-first, so one normalizer tolerates both payload spellings.
//
// # Time Conventions
//
// All row times are UTC. Provider timestamps with a Z or numeric offset keep
// their zone. Zoneless timestamps are read in the segment's timezone field
// when present, else in the airport's zone for schedule data and UTC for
// local rows. Numeric timestamps are epoch seconds, or milliseconds when the
// value is at least 1e12.
//
// # Flight Codes
//
// Codes are normalized to upper case with whitespace removed, then checked
// against the shape expected for their role. A code of the wrong shape is
// blanked rather than rejected:
//
//	"am 123"  →  "AM123"
//	"xa-amx"  →  registration "XA-AMX"
//
// The primary code of a row is its ICAO flight code; failing that, the
// airline ICAO designator plus the numeric suffix of any other code; failing
// that, the first available IATA code, flight number or callsign.
//
// # Identity and Merging
//
// Two rows describe the same leg when they share any identity key (see
// [KeysOf]): primary code plus best time plus departure, registration plus
// best time, time plus departure (only for rows that carry a registration or
// are taxiing), or, for rows with no code at all, a content hash. Groups
// connected through a bridging row are folded together, and [Deduplicate]
// repeats grouping until the row count stops shrinking, so its output is a
// fixed point.
//
// Within a group, [Resolve] ranks rows by [Score]:
//
//	status strength + 4 if registration present + 2 if scheduled arrival present
//
// with the earliest ETA breaking ties. The winner's empty fields are filled
// from the losers in rank order, codeshares are unioned, and any reported
// diversion forces the diverted status.
//
// # Status Strength
//
//	landed 6 | diverted 5 | incident 4 | active, en-route 3 | taxi 2 | delayed, scheduled 1
//
// A row reported active, en-route or delayed with no ETA is demoted to taxi.
// The status shown to operators is derived separately by [DisplayStatus]
// from the wall clock and a [Policy] and never overwrites the reported one.
//
// # Windows
//
// A [Window] is half-open: [Start, End). A row is kept when any of its ETA,
// STA, STD or ATA falls inside; rows without any of those times are kept.
// Windows ending on or before the start of the current UTC day are
// historical, and only then do summary entries become rows by themselves.
package domain
