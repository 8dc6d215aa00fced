// Package localdb reads previously persisted arrivals from the local flights table.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

const arrivalsQuery = `
SELECT id, flight_number, callsign, airline, ac_reg, ac_type, dep_icao, dst_icao,
       std_utc, sta_utc, delay_min, status, codeshares_json
FROM flights
WHERE (dst_icao = $1 OR dst_icao = $2)
  AND sta_utc >= $3 AND sta_utc < $4
ORDER BY sta_utc ASC`

// flightRecord mirrors one row of the flights table.
type flightRecord struct {
	ID             int64          `db:"id"`
	FlightNumber   sql.NullString `db:"flight_number"`
	Callsign       sql.NullString `db:"callsign"`
	Airline        sql.NullString `db:"airline"`
	ACReg          sql.NullString `db:"ac_reg"`
	ACType         sql.NullString `db:"ac_type"`
	DepICAO        sql.NullString `db:"dep_icao"`
	DstICAO        sql.NullString `db:"dst_icao"`
	STDUTC         sql.NullTime   `db:"std_utc"`
	STAUTC         sql.NullTime   `db:"sta_utc"`
	DelayMin       sql.NullInt64  `db:"delay_min"`
	Status         sql.NullString `db:"status"`
	CodesharesJSON sql.NullString `db:"codeshares_json"`
}

// Store reads the flights table.
type Store struct {
	db      *sqlx.DB
	airport domain.Airport
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, airport domain.Airport) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect local db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return New(db, airport), nil
}

// New wraps an existing connection pool.
func New(db *sqlx.DB, airport domain.Airport) *Store {
	return &Store{db: db, airport: airport}
}

func (s *Store) Source() domain.Source {
	return domain.SourceLocal
}

// Fetch implements the provider contract over Arrivals.
func (s *Store) Fetch(ctx context.Context, w domain.Window) ([]domain.Value, error) {
	return s.Arrivals(ctx, w)
}

// Arrivals returns persisted arrivals to the airport with a scheduled
// arrival inside w, as flat records.
func (s *Store) Arrivals(ctx context.Context, w domain.Window) ([]domain.Value, error) {
	var recs []flightRecord
	err := sqlx.SelectContext(ctx, s.db, &recs, arrivalsQuery,
		s.airport.IATA, s.airport.ICAO, w.Start.UTC(), w.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("query arrivals: %w", err)
	}

	out := make([]domain.Value, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.value())
	}
	return out, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("local db ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// value renders the record as the flat shape the local normalizer reads.
func (r flightRecord) value() domain.Value {
	m := map[string]any{"id": r.ID}
	str := func(key string, v sql.NullString) {
		if v.Valid && v.String != "" {
			m[key] = v.String
		}
	}
	tm := func(key string, v sql.NullTime) {
		if v.Valid {
			m[key] = v.Time.UTC().Format(time.RFC3339)
		}
	}

	str("flight_number", r.FlightNumber)
	str("callsign", r.Callsign)
	str("airline", r.Airline)
	str("ac_reg", r.ACReg)
	str("ac_type", r.ACType)
	str("dep_icao", r.DepICAO)
	str("dst_icao", r.DstICAO)
	str("status", r.Status)
	str("codeshares_json", r.CodesharesJSON)
	tm("std_utc", r.STDUTC)
	tm("sta_utc", r.STAUTC)
	if r.DelayMin.Valid {
		m["delay_min"] = r.DelayMin.Int64
	}
	return domain.ValueOf(m)
}
