package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// TimetableSource builds a timetable for a window.
type TimetableSource interface {
	Reconcile(ctx context.Context, w domain.Window, order domain.Order) (domain.Timetable, error)
}

// Loader writes a reconciled timetable to the destination.
type Loader interface {
	LoadBatch(ctx context.Context, tt domain.Timetable) error
}

// Pipeline periodically reconciles the default window and publishes it.
type Pipeline struct {
	source   TimetableSource
	loader   Loader
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline that refreshes every interval.
func New(src TimetableSource, l Loader, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:   src,
		loader:   l,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the pipeline has published a timetable.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published a timetable yet")
	}
	return nil
}

// Ready reports whether at least one refresh has succeeded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run refreshes immediately and then every interval until the context is
// cancelled. Failed refreshes are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		if err := p.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error("timetable refresh failed", "error", err, "retry_in", backoff)
			p.waitBackoff(ctx, &backoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
		case <-p.clock.After(p.interval):
		}
	}
}

// refresh reconciles the default window and publishes the result.
func (p *Pipeline) refresh(ctx context.Context) error {
	w := domain.DefaultWindow(p.clock.Now())
	tt, err := p.source.Reconcile(ctx, w, domain.OrderDescending)
	if err != nil {
		return err
	}
	if err := p.loader.LoadBatch(ctx, tt); err != nil {
		p.metrics.PublishErrors.Inc()
		return err
	}
	p.metrics.RowsPublished.Add(float64(len(tt.Rows)))
	p.ready.Store(true)
	return nil
}

// waitBackoff sleeps with the current backoff and advances it unless the
// context ends first.
func (p *Pipeline) waitBackoff(ctx context.Context, backoff *time.Duration) {
	if p.sleepWithContext(ctx, *backoff) {
		*backoff = nextBackoff(*backoff, maxBackoff)
	}
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
