package aviationstack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/upstream"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

type call struct {
	endpoint string
	params   url.Values
}

// fakeGetter answers requests from a handler and records every call.
type fakeGetter struct {
	mu      sync.Mutex
	calls   []call
	handler func(endpoint string, params url.Values) (domain.Value, error)
}

func (f *fakeGetter) Get(_ context.Context, endpoint string, params url.Values, _ time.Duration) (domain.Value, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{endpoint: endpoint, params: params})
	f.mu.Unlock()
	return f.handler(endpoint, params)
}

func (f *fakeGetter) endpoints() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.endpoint
	}
	return out
}

func records(n int, prefix string) domain.Value {
	items := make([]domain.Value, n)
	for i := range items {
		items[i] = domain.ValueOf(map[string]any{"flight": map[string]any{"iata": fmt.Sprintf("%s%d", prefix, i)}})
	}
	return domain.ValueOf(map[string]any{"data": items})
}

func tijuana(t *testing.T) domain.Airport {
	t.Helper()
	loc, err := time.LoadLocation("America/Tijuana")
	require.NoError(t, err)
	return domain.Airport{IATA: "TIJ", ICAO: "MMTJ", Location: loc}
}

func testProvider(t *testing.T, g Getter, now time.Time) *Provider {
	t.Helper()
	return NewProvider(g, tijuana(t), time.Minute, clockwork.NewFakeClockAt(now),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// oneLocalDay is 2024-07-08 in Tijuana (UTC-7 in summer).
var oneLocalDay = domain.Window{
	Start: time.Date(2024, 7, 8, 7, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 7, 9, 7, 0, 0, 0, time.UTC),
}

func TestProvider_Fetch(t *testing.T) {
	g := &fakeGetter{handler: func(endpoint string, params url.Values) (domain.Value, error) {
		switch endpoint {
		case "timetable":
			return records(2, "TT"), nil
		case "flights":
			if params.Get("offset") == "0" {
				return records(pageLimit, "P1-"), nil
			}
			return records(3, "P2-"), nil
		}
		return domain.Value{}, errors.New("unexpected endpoint")
	}}
	p := testProvider(t, g, time.Date(2024, 7, 8, 18, 0, 0, 0, time.UTC))

	assert.Equal(t, domain.SourceSchedule, p.Source())
	got, err := p.Fetch(context.Background(), oneLocalDay)
	require.NoError(t, err)
	assert.Len(t, got, 2+pageLimit+3)

	require.Len(t, g.calls, 3)
	assert.Equal(t, []string{"timetable", "flights", "flights"}, g.endpoints())

	tt := g.calls[0].params
	assert.Equal(t, "TIJ", tt.Get("iataCode"))
	assert.Equal(t, "arrival", tt.Get("type"))
	assert.Equal(t, "2024-07-08", tt.Get("date"))

	fl := g.calls[2].params
	assert.Equal(t, "TIJ", fl.Get("arr_iata"))
	assert.Equal(t, "MMTJ", fl.Get("arr_icao"))
	assert.Equal(t, "2024-07-08", fl.Get("flight_date"))
	assert.Equal(t, "100", fl.Get("limit"))
	assert.Equal(t, "100", fl.Get("offset"))
	assert.Equal(t, statusFilter, fl.Get("flight_status"))
}

func TestProvider_Fetch_RetriesWithoutStatusFilter(t *testing.T) {
	g := &fakeGetter{handler: func(endpoint string, params url.Values) (domain.Value, error) {
		if endpoint == "flights" && params.Has("flight_status") {
			return domain.Value{}, &upstream.Error{Provider: "aviationstack", Status: http.StatusBadRequest}
		}
		return records(1, endpoint), nil
	}}
	p := testProvider(t, g, time.Date(2024, 7, 8, 18, 0, 0, 0, time.UTC))

	got, err := p.Fetch(context.Background(), oneLocalDay)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, g.calls, 3)
	assert.False(t, g.calls[2].params.Has("flight_status"))
}

func TestProvider_Fetch_PageCap(t *testing.T) {
	g := &fakeGetter{handler: func(endpoint string, _ url.Values) (domain.Value, error) {
		if endpoint == "timetable" {
			return records(0, ""), nil
		}
		return records(pageLimit, "X"), nil
	}}
	p := testProvider(t, g, time.Date(2024, 7, 8, 18, 0, 0, 0, time.UTC))

	got, err := p.Fetch(context.Background(), oneLocalDay)
	require.NoError(t, err)
	assert.Len(t, got, maxPages*pageLimit)
	assert.Len(t, g.calls, 1+maxPages)
}

func TestProvider_Fetch_FutureEndpoint(t *testing.T) {
	g := &fakeGetter{handler: func(string, url.Values) (domain.Value, error) {
		return records(1, "F"), nil
	}}
	p := testProvider(t, g, time.Date(2024, 6, 20, 18, 0, 0, 0, time.UTC))

	_, err := p.Fetch(context.Background(), oneLocalDay)
	require.NoError(t, err)
	assert.Equal(t, []string{"timetable", "flightsFuture"}, g.endpoints())
}

func TestProvider_Fetch_Failures(t *testing.T) {
	t.Run("partial failure is tolerated", func(t *testing.T) {
		g := &fakeGetter{handler: func(endpoint string, _ url.Values) (domain.Value, error) {
			if endpoint == "timetable" {
				return domain.Value{}, &upstream.Error{Provider: "aviationstack", Status: http.StatusForbidden}
			}
			return records(4, "OK"), nil
		}}
		got, err := testProvider(t, g, time.Date(2024, 7, 8, 18, 0, 0, 0, time.UTC)).Fetch(context.Background(), oneLocalDay)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("total failure is an error", func(t *testing.T) {
		g := &fakeGetter{handler: func(string, url.Values) (domain.Value, error) {
			return domain.Value{}, &upstream.Error{Provider: "aviationstack", Status: http.StatusUnauthorized}
		}}
		_, err := testProvider(t, g, time.Date(2024, 7, 8, 18, 0, 0, 0, time.UTC)).Fetch(context.Background(), oneLocalDay)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, upstream.StatusOf(err))
	})
}

func TestLocalDates(t *testing.T) {
	loc := tijuana(t).Location

	t.Run("UTC day spans two local dates", func(t *testing.T) {
		w := domain.Window{Start: time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)}
		assert.Equal(t, []string{"2024-07-07", "2024-07-08"}, localDates(w, loc))
	})

	t.Run("end is exclusive", func(t *testing.T) {
		assert.Equal(t, []string{"2024-07-08"}, localDates(oneLocalDay, loc))
	})

	t.Run("capped", func(t *testing.T) {
		w := domain.Window{Start: oneLocalDay.Start, End: oneLocalDay.Start.AddDate(0, 0, 30)}
		dates := localDates(w, loc)
		assert.Len(t, dates, maxDays)
		assert.Equal(t, "2024-07-08", dates[0])
	})
}
