package domain

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAirport(t *testing.T) Airport {
	t.Helper()
	loc, err := time.LoadLocation("America/Tijuana")
	require.NoError(t, err)
	return Airport{IATA: "TIJ", ICAO: "MMTJ", Location: loc}
}

func mustValue(t *testing.T, s string) Value {
	t.Helper()
	v, err := ParseValue([]byte(s))
	require.NoError(t, err)
	return v
}

// at parses an RFC 3339 timestamp for table fixtures.
func at(s string) *time.Time {
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &tm
}

func TestNormalize_ScheduleFlightsEndpoint(t *testing.T) {
	ap := testAirport(t)
	rec := mustValue(t, `{
		"flight_date": "2024-07-08",
		"flight_status": "landed",
		"departure": {"airport": "Mexico City", "timezone": "America/Mexico_City", "iata": "MEX", "icao": "MMMX",
			"scheduled": "2024-07-08T07:00:00+00:00", "actual": "2024-07-08T07:10:00+00:00"},
		"arrival": {"airport": "Tijuana", "timezone": "America/Tijuana", "iata": "TIJ", "icao": "MMTJ",
			"scheduled": "2024-07-08T10:00:00+00:00", "estimated": "2024-07-08T09:55:00+00:00",
			"actual": "2024-07-08T09:58:00+00:00", "delay": null},
		"airline": {"name": "Aeromexico", "iata": "AM", "icao": "AMX"},
		"flight": {"number": "123", "iata": "AM123", "icao": "AMX123", "codeshared": null},
		"aircraft": {"registration": "XA-AMX", "iata": "B738", "icao": "B738"}
	}`)

	row, err := Normalize(rec, SourceSchedule, ap)
	require.NoError(t, err)

	assert.Equal(t, "AMX123", row.FlightICAO)
	assert.Equal(t, "AM123", row.FlightIATA)
	assert.Equal(t, "AM123", row.FlightNumber)
	assert.Equal(t, "AMX123", row.Callsign)
	assert.Equal(t, "AMX", row.AirlineICAO)
	assert.Equal(t, "Aeromexico", row.AirlineName)
	assert.Equal(t, "MMMX", row.DepCode)
	assert.Equal(t, "MMTJ", row.ArrCode)
	assert.Equal(t, at("2024-07-08T10:00:00Z"), row.STA)
	assert.Equal(t, at("2024-07-08T09:55:00Z"), row.ETA)
	assert.Equal(t, at("2024-07-08T09:58:00Z"), row.ATA)
	assert.Equal(t, at("2024-07-08T07:00:00Z"), row.STD)
	assert.Equal(t, at("2024-07-08T07:10:00Z"), row.ATD)
	assert.Equal(t, -5, row.DelayMin)
	assert.Equal(t, StatusLanded, row.Status)
	assert.Equal(t, "landed", row.RawStatus)
	assert.Equal(t, "XA-AMX", row.Registration)
	assert.Equal(t, "B738", row.AcType)
	assert.Empty(t, row.Codeshares)
	assert.Equal(t, SourceSchedule, row.Source)
}

func TestNormalize_ScheduleArrivalCode(t *testing.T) {
	ap := testAirport(t)
	tests := []struct {
		name    string
		arrival string
		want    string
	}{
		{"home ICAO", `{"icao": "MMTJ", "scheduled": "2024-07-08T10:00:00+00:00"}`, "MMTJ"},
		{"home IATA", `{"iata": "TIJ", "scheduled": "2024-07-08T10:00:00+00:00"}`, "TIJ"},
		{"missing means home", `{"scheduled": "2024-07-08T10:00:00+00:00"}`, "MMTJ"},
		{"other airport is blanked", `{"icao": "MMGL", "scheduled": "2024-07-08T10:00:00+00:00"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustValue(t, `{"flight": {"icao": "AMX123"}, "departure": {"icao": "MMMX"}, "arrival": `+tt.arrival+`}`)
			row, err := Normalize(rec, SourceSchedule, ap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, row.ArrCode)
		})
	}
}

func TestNormalize_ScheduleTimetableEndpoint(t *testing.T) {
	ap := testAirport(t)
	rec := mustValue(t, `{
		"type": "arrival",
		"status": "active",
		"departure": {"iataCode": "gdl", "icaoCode": "mmgl", "scheduledTime": "2024-07-08T10:00:00.000"},
		"arrival": {"iataCode": "tij", "icaoCode": "mmtj", "scheduledTime": "2024-07-08T12:00:00.000",
			"estimatedTime": "2024-07-08T12:10:00.000", "delay": "10"},
		"airline": {"name": "VivaAerobus", "iataCode": "vb", "icaoCode": "viv"},
		"flight": {"number": "456", "iataNumber": "vb456", "icaoNumber": "viv456"}
	}`)

	row, err := Normalize(rec, SourceSchedule, ap)
	require.NoError(t, err)

	assert.Equal(t, "VIV456", row.FlightICAO)
	assert.Equal(t, "VB456", row.FlightIATA)
	assert.Equal(t, "VIV", row.AirlineICAO)
	assert.Equal(t, "MMGL", row.DepCode)
	assert.Equal(t, "MMTJ", row.ArrCode)
	// Zoneless times are local to the airport (PDT, UTC-7).
	assert.Equal(t, at("2024-07-08T19:00:00Z"), row.STA)
	assert.Equal(t, at("2024-07-08T19:10:00Z"), row.ETA)
	assert.Equal(t, at("2024-07-08T17:00:00Z"), row.STD)
	assert.Equal(t, 10, row.DelayMin)
	assert.Equal(t, StatusActive, row.Status)
}

func TestNormalize_ScheduleCodeshare(t *testing.T) {
	ap := testAirport(t)

	t.Run("timetable shape", func(t *testing.T) {
		rec := mustValue(t, `{
			"status": "scheduled",
			"departure": {"iataCode": "MEX", "scheduledTime": "2024-07-08T08:00:00.000"},
			"arrival": {"iataCode": "TIJ", "scheduledTime": "2024-07-08T10:00:00.000"},
			"airline": {"name": "Delta", "iataCode": "DL", "icaoCode": "DAL"},
			"flight": {"number": "8123", "iataNumber": "DL8123", "icaoNumber": "DAL8123"},
			"codeshared": {
				"airline": {"name": "Aeromexico", "iataCode": "AM", "icaoCode": "AMX"},
				"flight": {"number": "123", "iataNumber": "AM123", "icaoNumber": "AMX123"}
			}
		}`)

		row, err := Normalize(rec, SourceSchedule, ap)
		require.NoError(t, err)
		assert.Equal(t, "AMX123", row.FlightICAO)
		assert.Equal(t, "AMX", row.AirlineICAO)
		assert.Equal(t, "Aeromexico", row.AirlineName)
		assert.Equal(t, []string{"DL8123"}, row.Codeshares)
		assert.Equal(t, "TIJ", row.ArrCode)
	})

	t.Run("flights shape", func(t *testing.T) {
		rec := mustValue(t, `{
			"flight_status": "scheduled",
			"arrival": {"icao": "MMTJ", "scheduled": "2024-07-08T10:00:00+00:00"},
			"airline": {"name": "Delta", "iata": "DL", "icao": "DAL"},
			"flight": {"number": "8123", "iata": "DL8123", "icao": "DAL8123",
				"codeshared": {"airline_name": "aeromexico", "airline_iata": "am", "airline_icao": "amx",
					"flight_number": "123", "flight_iata": "am123", "flight_icao": "amx123"}}
		}`)

		row, err := Normalize(rec, SourceSchedule, ap)
		require.NoError(t, err)
		assert.Equal(t, "AMX123", row.FlightICAO)
		assert.Equal(t, "AM123", row.FlightIATA)
		assert.Equal(t, []string{"DL8123"}, row.Codeshares)
	})
}

func TestNormalize_ScheduleEdgeCases(t *testing.T) {
	ap := testAirport(t)

	t.Run("no time fields", func(t *testing.T) {
		rec := mustValue(t, `{"flight": {"iata": "AM1"}, "arrival": {"iata": "TIJ"}}`)
		_, err := Normalize(rec, SourceSchedule, ap)
		require.ErrorIs(t, err, ErrNoTime)
	})

	t.Run("no identity", func(t *testing.T) {
		rec := mustValue(t, `{"arrival": {"scheduled": "2024-07-08T10:00:00+00:00"}}`)
		_, err := Normalize(rec, SourceSchedule, ap)
		require.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := Normalize(ValueOf("garbage"), SourceSchedule, ap)
		require.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("active without estimate becomes taxi", func(t *testing.T) {
		rec := mustValue(t, `{"flight_status": "active", "flight": {"icao": "AMX9"},
			"arrival": {"icao": "MMTJ", "scheduled": "2024-07-08T10:00:00+00:00"}}`)
		row, err := Normalize(rec, SourceSchedule, ap)
		require.NoError(t, err)
		assert.Equal(t, StatusTaxi, row.Status)
		assert.Equal(t, "active", row.RawStatus)
	})

	t.Run("unknown vendor status", func(t *testing.T) {
		rec := mustValue(t, `{"flight_status": "boarding", "flight": {"icao": "AMX9"},
			"arrival": {"scheduled": "2024-07-08T10:00:00+00:00"}}`)
		row, err := Normalize(rec, SourceSchedule, ap)
		require.NoError(t, err)
		assert.Equal(t, StatusUnknown, row.Status)
		assert.Equal(t, "boarding", row.RawStatus)
	})

	t.Run("malformed codes are blanked", func(t *testing.T) {
		rec := mustValue(t, `{"flight": {"icao": "AMX9"},
			"departure": {"iata": "M3X!!"},
			"arrival": {"icao": "SOMEWHERE", "scheduled": "2024-07-08T10:00:00+00:00"},
			"aircraft": {"registration": "not a tail number!"}}`)
		row, err := Normalize(rec, SourceSchedule, ap)
		require.NoError(t, err)
		assert.Empty(t, row.DepCode)
		assert.Equal(t, "MMTJ", row.ArrCode)
		assert.Empty(t, row.Registration)
	})

	t.Run("unparseable time is ignored", func(t *testing.T) {
		rec := mustValue(t, `{"flight": {"icao": "AMX9"},
			"arrival": {"scheduled": "tomorrow-ish", "estimated": "2024-07-08T10:00:00Z"}}`)
		row, err := Normalize(rec, SourceSchedule, ap)
		require.NoError(t, err)
		assert.Nil(t, row.STA)
		assert.Equal(t, at("2024-07-08T10:00:00Z"), row.ETA)
	})
}

func TestNormalize_Summary(t *testing.T) {
	ap := testAirport(t)

	t.Run("landed flight", func(t *testing.T) {
		rec := mustValue(t, `{"fr24_id": "35f2ffd9", "flight": "AM123", "callsign": "AMX123",
			"operating_as": "AMX", "painted_as": "AMX", "type": "B738", "reg": "XA-AMX",
			"orig_icao": "MMMX", "orig_iata": "MEX", "datetime_takeoff": "2024-07-08T07:10:00Z",
			"dest_icao": "MMTJ", "dest_iata": "TIJ", "dest_icao_actual": "MMTJ",
			"datetime_landed": "2024-07-08T09:58:00Z", "flight_time": 10080, "flight_ended": true}`)

		row, err := Normalize(rec, SourceSummary, ap)
		require.NoError(t, err)
		assert.Equal(t, "AMX123", row.FlightICAO)
		assert.Equal(t, "AM123", row.FlightIATA)
		assert.Equal(t, "AMX", row.AirlineICAO)
		assert.Equal(t, "MMMX", row.DepCode)
		assert.Equal(t, "MMTJ", row.ArrCode)
		assert.Equal(t, at("2024-07-08T07:10:00Z"), row.ATD)
		assert.Equal(t, at("2024-07-08T09:58:00Z"), row.ATA)
		assert.Equal(t, at("2024-07-08T09:58:00Z"), row.ETA)
		assert.Equal(t, 168, row.EETMin)
		assert.Equal(t, StatusLanded, row.Status)
		assert.Equal(t, "XA-AMX", row.Registration)
		assert.Empty(t, row.DivertedTo)
	})

	t.Run("diverted flight", func(t *testing.T) {
		rec := mustValue(t, `{"flight": "AM123", "callsign": "AMX123", "orig_icao": "MMMX",
			"dest_icao": "MMTJ", "dest_icao_actual": "MMGL",
			"datetime_takeoff": "2024-07-08T07:10:00Z", "datetime_landed": "2024-07-08T09:40:00Z"}`)

		row, err := Normalize(rec, SourceSummary, ap)
		require.NoError(t, err)
		assert.Equal(t, "MMGL", row.DivertedTo)
		assert.Equal(t, StatusDiverted, row.Status)
	})

	t.Run("codeshare rewritten to operator", func(t *testing.T) {
		rec := mustValue(t, `{"flight": "AM2345", "operating_as": "SLI", "painted_as": "AMX",
			"orig_iata": "HMO", "datetime_takeoff": "2024-07-08T08:00:00Z", "flight_time": 3600}`)

		row, err := Normalize(rec, SourceSummary, ap)
		require.NoError(t, err)
		assert.Equal(t, "SLI2345", row.FlightICAO)
		assert.Equal(t, "SLI2345", row.Callsign)
		assert.Equal(t, "SLI", row.AirlineICAO)
		assert.Equal(t, []string{"AMX2345", "AM2345"}, row.Codeshares)
		assert.Equal(t, at("2024-07-08T09:00:00Z"), row.ETA)
		assert.Equal(t, StatusActive, row.Status)
		assert.Equal(t, "HMO", row.DepCode)
	})

	t.Run("epoch timestamps", func(t *testing.T) {
		rec := mustValue(t, `{"callsign": "VIV456", "datetime_takeoff": 1720425600, "datetime_landed": 1720432800}`)

		row, err := Normalize(rec, SourceSummary, ap)
		require.NoError(t, err)
		assert.Equal(t, at("2024-07-08T08:00:00Z"), row.ATD)
		assert.Equal(t, at("2024-07-08T10:00:00Z"), row.ATA)
	})

	t.Run("airborne without landing estimate has no usable time", func(t *testing.T) {
		rec := mustValue(t, `{"callsign": "VIV456", "datetime_takeoff": "2024-07-08T08:00:00Z"}`)
		_, err := Normalize(rec, SourceSummary, ap)
		require.ErrorIs(t, err, ErrNoTime)
	})
}

func TestParseTime_Epoch(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{`1720425600`, at("2024-07-08T08:00:00Z")},
		{`1720425600000`, at("2024-07-08T08:00:00Z")},
		{`"1720425600"`, at("2024-07-08T08:00:00Z")},
		{`42`, nil},
		{`4102444801`, nil},
		{`1e300`, nil},
		{`-1720425600`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTime(mustValue(t, tt.in), time.UTC))
		})
	}
}

func TestNormalize_Local(t *testing.T) {
	ap := testAirport(t)

	t.Run("persisted row", func(t *testing.T) {
		rec := ValueOf(map[string]any{
			"id":              1,
			"flight_number":   "AM123",
			"callsign":        "AMX123",
			"airline":         "AMX",
			"ac_reg":          "xa-amx",
			"ac_type":         "B738",
			"dep_icao":        "MMMX",
			"dst_icao":        "MMTJ",
			"std_utc":         "2024-07-08 07:00:00",
			"sta_utc":         "2024-07-08 10:00:00",
			"delay_min":       15,
			"status":          "active",
			"codeshares_json": `{"codeshares":["DL8123","AMX123"],"diverted_to":"MMGL"}`,
		})

		row, err := Normalize(rec, SourceLocal, ap)
		require.NoError(t, err)
		assert.Equal(t, "AMX123", row.FlightICAO)
		assert.Equal(t, "AM123", row.FlightIATA)
		assert.Equal(t, "AM123", row.FlightNumber)
		assert.Equal(t, "AMX", row.AirlineICAO)
		assert.Equal(t, "XA-AMX", row.Registration)
		assert.Equal(t, at("2024-07-08T10:00:00Z"), row.STA)
		assert.Equal(t, at("2024-07-08T10:15:00Z"), row.ETA)
		assert.Equal(t, 15, row.DelayMin)
		assert.Equal(t, []string{"DL8123"}, row.Codeshares)
		assert.Equal(t, "MMGL", row.DivertedTo)
		assert.Equal(t, StatusDiverted, row.Status)
		assert.Equal(t, "active", row.RawStatus)
	})

	t.Run("airline name and list codeshares", func(t *testing.T) {
		rec := ValueOf(map[string]any{
			"callsign":        "AMX123",
			"airline":         "Aeromexico",
			"sta_utc":         "2024-07-08 10:00:00",
			"status":          "",
			"codeshares_json": `["DL8123"]`,
		})

		row, err := Normalize(rec, SourceLocal, ap)
		require.NoError(t, err)
		assert.Equal(t, "Aeromexico", row.AirlineName)
		assert.Equal(t, "AMX", row.AirlineICAO)
		assert.Equal(t, []string{"DL8123"}, row.Codeshares)
		assert.Equal(t, StatusScheduled, row.Status)
		assert.Equal(t, "MMTJ", row.ArrCode)
	})

	t.Run("diverted to our own airport is ignored", func(t *testing.T) {
		rec := ValueOf(map[string]any{
			"callsign":    "AMX123",
			"sta_utc":     "2024-07-08 10:00:00",
			"diverted_to": "TIJ",
		})

		row, err := Normalize(rec, SourceLocal, ap)
		require.NoError(t, err)
		assert.Empty(t, row.DivertedTo)
		assert.Equal(t, StatusScheduled, row.Status)
	})

	t.Run("broken codeshares payload", func(t *testing.T) {
		rec := ValueOf(map[string]any{
			"callsign":        "AMX123",
			"sta_utc":         "2024-07-08 10:00:00",
			"codeshares_json": `{not json`,
		})

		row, err := Normalize(rec, SourceLocal, ap)
		require.NoError(t, err)
		assert.Empty(t, row.Codeshares)
	})
}

func TestNormalize_UnknownSource(t *testing.T) {
	_, err := Normalize(ValueOf(map[string]any{"a": 1}), Source("radar"), Airport{})
	require.Error(t, err)
}
