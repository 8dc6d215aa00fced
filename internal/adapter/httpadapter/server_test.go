package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

var testNow = time.Date(2024, 7, 8, 15, 0, 0, 0, time.UTC)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockService struct {
	window domain.Window
	order  domain.Order
	calls  int
	err    error
	block  bool
}

func (m *mockService) Reconcile(ctx context.Context, w domain.Window, order domain.Order) (domain.Timetable, error) {
	m.calls++
	m.window = w
	m.order = order
	if m.block {
		<-ctx.Done()
		return domain.Timetable{}, ctx.Err()
	}
	if m.err != nil {
		return domain.Timetable{}, m.err
	}
	sta := time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)
	return domain.Timetable{
		RunID:       "run-1",
		GeneratedAt: testNow,
		Window:      w,
		Rows: []domain.FlightRow{{
			FlightICAO:    "AMX123",
			STA:           &sta,
			Status:        domain.StatusLanded,
			DisplayStatus: domain.StatusLanded,
			Source:        domain.SourceSchedule,
		}},
	}, nil
}

func newTestServer(svc *mockService, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", svc, &mockReadiness{err: readyErr}, httpadapter.Options{
		RequestTimeout:     time.Second,
		DefaultWindowHours: 6,
		AllowedOrigins:     []string{"https://ops.example.com"},
		Clock:              clockwork.NewFakeClockAt(testNow),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&mockService{}, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(&mockService{}, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(&mockService{}, errors.New("not ready yet")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&mockService{}, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimetable_DefaultWindow(t *testing.T) {
	svc := &mockService{}
	rec := get(t, newTestServer(svc, nil), "/api/v1/timetable")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, domain.DefaultWindow(testNow), svc.window)
	assert.Equal(t, domain.OrderDescending, svc.order)

	var body struct {
		RunID string `json:"run_id"`
		Rows  []struct {
			FlightICAO    string `json:"flight_icao"`
			DisplayStatus string `json:"display_status"`
			STA           string `json:"sta_utc"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "AMX123", body.Rows[0].FlightICAO)
	assert.Equal(t, "landed", body.Rows[0].DisplayStatus)
	assert.Equal(t, "2024-07-08T10:00:00Z", body.Rows[0].STA)
}

func TestTimetable_WindowParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.Window
		order domain.Order
	}{
		{
			name:  "start now uses default hours",
			query: "start=now",
			want:  domain.Window{Start: testNow, End: testNow.Add(6 * time.Hour)},
			order: domain.OrderDescending,
		},
		{
			name:  "start and hours",
			query: "start=2024-07-07T00:00:00Z&hours=12&order=asc",
			want: domain.Window{
				Start: time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 7, 7, 12, 0, 0, 0, time.UTC),
			},
			order: domain.OrderAscending,
		},
		{
			name:  "from alias without zone is UTC",
			query: "from=2024-07-07T06:30",
			want: domain.Window{
				Start: time.Date(2024, 7, 7, 6, 30, 0, 0, time.UTC),
				End:   time.Date(2024, 7, 7, 12, 30, 0, 0, time.UTC),
			},
			order: domain.OrderDescending,
		},
		{
			name:  "explicit bounds",
			query: "start=2024-07-01&to=2024-07-03",
			want: domain.Window{
				Start: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
			},
			order: domain.OrderDescending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			rec := get(t, newTestServer(svc, nil), "/api/v1/timetable?"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, svc.window)
			assert.Equal(t, tt.order, svc.order)
		})
	}
}

func TestTimetable_BadWindow(t *testing.T) {
	queries := []string{
		"start=yesterday",
		"start=now&hours=0",
		"start=now&hours=many",
		"start=2024-07-03&to=2024-07-01",
		"to=2024-07-01",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			svc := &mockService{}
			rec := get(t, newTestServer(svc, nil), "/api/v1/timetable?"+q)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "bad_window", body["error"])
			assert.Zero(t, svc.calls, "no fetch for an invalid window")
		})
	}
}

func TestTimetable_Timeout(t *testing.T) {
	rec := get(t, newTestServer(&mockService{block: true}, nil), "/api/v1/timetable")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "timeout", body["error"])
}

func TestTimetable_InternalError(t *testing.T) {
	rec := get(t, newTestServer(&mockService{err: errors.New("boom")}, nil), "/api/v1/timetable")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTimetable_CORS(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timetable", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
