// Package aviationstack fetches scheduled arrivals from the AviationStack
// timetable and flights endpoints.
package aviationstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/upstream"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

const (
	pageLimit = 100
	maxPages  = 40

	// maxDays bounds how many local dates one window may fan out to.
	maxDays = 7

	// futureAfterDays switches the flights endpoint to flightsFuture.
	futureAfterDays = 7

	statusFilter = "scheduled,active,en-route,landed,diverted,cancelled"
)

// Getter performs one cached upstream request.
type Getter interface {
	Get(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) (domain.Value, error)
}

// Provider returns raw schedule records for the configured airport.
type Provider struct {
	getter  Getter
	airport domain.Airport
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewProvider creates a schedule provider.
func NewProvider(getter Getter, airport domain.Airport, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Provider {
	return &Provider{getter: getter, airport: airport, ttl: ttl, clock: clock, logger: logger}
}

func (p *Provider) Source() domain.Source {
	return domain.SourceSchedule
}

// Fetch queries the timetable and flights endpoints for every local date the
// window touches. Individual request failures are logged and skipped; an
// error is returned only when every request failed.
func (p *Provider) Fetch(ctx context.Context, w domain.Window) ([]domain.Value, error) {
	var (
		records []domain.Value
		errs    []error
		okCount int
	)
	for _, date := range localDates(w, p.location()) {
		tt, err := p.timetable(ctx, date)
		if err != nil {
			p.logger.Warn("aviationstack timetable failed", "date", date, "error", err)
			errs = append(errs, err)
		} else {
			okCount++
			records = append(records, tt...)
		}

		fl, err := p.flights(ctx, date)
		if err != nil {
			p.logger.Warn("aviationstack flights failed", "date", date, "error", err)
			errs = append(errs, err)
		} else {
			okCount++
			records = append(records, fl...)
		}
	}
	if okCount == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return records, nil
}

func (p *Provider) timetable(ctx context.Context, date string) ([]domain.Value, error) {
	v, err := p.getter.Get(ctx, "timetable", url.Values{
		"iataCode": {p.airport.IATA},
		"type":     {"arrival"},
		"date":     {date},
	}, p.ttl)
	if err != nil {
		return nil, err
	}
	return domain.FirstList(v), nil
}

// flights pages through the flights endpoint. Some plans reject the
// multi-valued status filter with a 400; the day is then refetched without it.
func (p *Provider) flights(ctx context.Context, date string) ([]domain.Value, error) {
	endpoint := "flights"
	if p.daysAhead(date) > futureAfterDays {
		endpoint = "flightsFuture"
	}

	records, err := p.pageFlights(ctx, endpoint, date, true)
	if upstream.StatusOf(err) == http.StatusBadRequest {
		p.logger.Info("aviationstack rejected status filter, retrying without it", "date", date)
		records, err = p.pageFlights(ctx, endpoint, date, false)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", endpoint, date, err)
	}
	return records, nil
}

func (p *Provider) pageFlights(ctx context.Context, endpoint, date string, withFilter bool) ([]domain.Value, error) {
	var records []domain.Value
	for page := 0; page < maxPages; page++ {
		params := url.Values{
			"arr_iata":    {p.airport.IATA},
			"arr_icao":    {p.airport.ICAO},
			"flight_date": {date},
			"limit":       {strconv.Itoa(pageLimit)},
			"offset":      {strconv.Itoa(page * pageLimit)},
		}
		if withFilter {
			params.Set("flight_status", statusFilter)
		}

		v, err := p.getter.Get(ctx, endpoint, params, p.ttl)
		if err != nil {
			return nil, err
		}
		chunk := domain.FirstList(v)
		records = append(records, chunk...)
		if len(chunk) < pageLimit {
			break
		}
	}
	return records, nil
}

// daysAhead returns how many whole days date lies after today in the airport zone.
func (p *Provider) daysAhead(date string) int {
	loc := p.location()
	d, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return 0
	}
	now := p.clock.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return int(d.Sub(today).Hours() / 24)
}

func (p *Provider) location() *time.Location {
	if p.airport.Location == nil {
		return time.UTC
	}
	return p.airport.Location
}

// localDates lists the airport-local calendar dates overlapping w, oldest
// first, capped at maxDays.
func localDates(w domain.Window, loc *time.Location) []string {
	start := w.Start.In(loc)
	last := w.End.Add(-time.Nanosecond).In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	var dates []string
	for !day.After(last) && len(dates) < maxDays {
		dates = append(dates, day.Format(time.DateOnly))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}
