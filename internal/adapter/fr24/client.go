// Package fr24 reads tracked-flight summaries from the Flightradar24 API.
package fr24

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/upstream"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

const (
	summaryEndpoint = "flight-summary/full"
	isoLayout       = "2006-01-02T15:04:05Z"

	// maxRange is the widest interval the API accepts in one request.
	maxRange = 14 * 24 * time.Hour
)

// Getter performs one cached upstream request.
type Getter interface {
	Get(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) (domain.Value, error)
}

// Client fetches summaries of flights inbound to one airport.
type Client struct {
	getter  Getter
	airport domain.Airport
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewClient creates a summary client.
func NewClient(getter Getter, airport domain.Airport, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{getter: getter, airport: airport, ttl: ttl, clock: clock, logger: logger}
}

// Headers returns the request headers the API expects.
func Headers(token, version string) http.Header {
	return http.Header{
		"Accept":         {"application/json"},
		"Accept-Version": {version},
		"Authorization":  {"Bearer " + token},
	}
}

func (c *Client) Source() domain.Source {
	return domain.SourceSummary
}

// Fetch returns the summaries for w. Only flights already seen can have a
// summary, so the range is clamped to now; a window entirely in the future
// yields nothing without a request.
func (c *Client) Fetch(ctx context.Context, w domain.Window) ([]domain.Value, error) {
	from, to := w.Start.UTC(), w.End.UTC()
	if now := c.clock.Now().UTC(); to.After(now) {
		to = now
	}
	if !to.After(from) {
		c.logger.Debug("fr24 window in the future, skipping", "from", from, "to", w.End)
		return nil, nil
	}
	if to.Sub(from) > maxRange {
		from = to.Add(-maxRange)
	}
	return c.Summary(ctx, from, to)
}

// Summary returns the raw summary entries for flights inbound between from and to.
func (c *Client) Summary(ctx context.Context, from, to time.Time) ([]domain.Value, error) {
	v, err := c.getter.Get(ctx, summaryEndpoint, url.Values{
		"airports":             {"inbound:" + c.airport.ICAO},
		"flight_datetime_from": {from.UTC().Format(isoLayout)},
		"flight_datetime_to":   {to.UTC().Format(isoLayout)},
	}, c.ttl)
	if err != nil {
		return nil, fmt.Errorf("flight summary: %w", err)
	}
	return domain.FirstList(v), nil
}
