package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
)

var testNow = time.Date(2024, 7, 8, 15, 0, 0, 0, time.UTC)

func testAirport(t *testing.T) domain.Airport {
	t.Helper()
	loc, err := time.LoadLocation("America/Tijuana")
	require.NoError(t, err)
	return domain.Airport{IATA: "TIJ", ICAO: "MMTJ", Location: loc}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func records(t *testing.T, js string) []domain.Value {
	t.Helper()
	v, err := domain.ParseValue([]byte(js))
	require.NoError(t, err)
	return domain.FirstList(v)
}

// --- mocks ---

type mockProvider struct {
	source  domain.Source
	records []domain.Value
	err     error
	block   bool
	calls   atomic.Int32
}

func (m *mockProvider) Source() domain.Source { return m.source }

func (m *mockProvider) Fetch(ctx context.Context, _ domain.Window) ([]domain.Value, error) {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.records, m.err
}

// barrierProvider only returns once `want` providers are inside Fetch at the
// same time, so it succeeds only when fetches run concurrently.
type barrierProvider struct {
	source  domain.Source
	arrived *atomic.Int32
	want    int32
}

func (b *barrierProvider) Source() domain.Source { return b.source }

func (b *barrierProvider) Fetch(ctx context.Context, _ domain.Window) ([]domain.Value, error) {
	b.arrived.Add(1)
	for b.arrived.Load() < b.want {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil, nil
}

type mockSource struct {
	mu      sync.Mutex
	windows []domain.Window
	err     error
}

func (m *mockSource) Reconcile(_ context.Context, w domain.Window, _ domain.Order) (domain.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, w)
	if m.err != nil {
		return domain.Timetable{}, m.err
	}
	return domain.Timetable{
		RunID:  "run",
		Window: w,
		Rows:   []domain.FlightRow{{FlightICAO: "AMX123"}, {FlightICAO: "VIV456"}},
	}, nil
}

func (m *mockSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.Timetable
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, tt domain.Timetable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, tt)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }
