package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
)

// Provider fetches raw records for a window from one source.
type Provider interface {
	Source() domain.Source
	Fetch(ctx context.Context, w domain.Window) ([]domain.Value, error)
}

// ReconcilerConfig holds the per-deployment reconciliation settings.
type ReconcilerConfig struct {
	Airport         domain.Airport
	Policy          domain.Policy
	ProviderTimeout time.Duration
}

// Reconciler fetches every provider and reconciles the results into a
// timetable. A failing provider contributes zero records; it never fails
// the run.
type Reconciler struct {
	providers []Provider
	cfg       ReconcilerConfig
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler over the enabled providers.
func NewReconciler(providers []Provider, cfg ReconcilerConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Reconciler {
	for _, p := range providers {
		metrics.ProviderEnabled.WithLabelValues(string(p.Source())).Set(1)
	}
	return &Reconciler{
		providers: providers,
		cfg:       cfg,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Reconcile builds the timetable for w. The window is validated before any
// provider is contacted. If ctx is done once all fetches have returned, the
// run fails with the context error.
func (r *Reconciler) Reconcile(ctx context.Context, w domain.Window, order domain.Order) (domain.Timetable, error) {
	if err := w.Validate(); err != nil {
		return domain.Timetable{}, err
	}
	start := r.clock.Now()
	runID := uuid.NewString()

	batches := r.fetchAll(ctx, w, runID)
	if err := ctx.Err(); err != nil {
		r.metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return domain.Timetable{}, fmt.Errorf("reconcile %s: %w", runID, err)
	}

	tt, err := domain.Reconcile(batches, w, domain.Options{
		Airport: r.cfg.Airport,
		Policy:  r.cfg.Policy,
		Order:   order,
		Now:     r.clock.Now(),
	})
	if err != nil {
		r.metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return domain.Timetable{}, fmt.Errorf("reconcile %s: %w", runID, err)
	}
	tt.RunID = runID

	for reason, n := range tt.Stats.Dropped {
		r.metrics.RecordsDropped.WithLabelValues(reason).Add(float64(n))
	}
	r.metrics.RowsMerged.Add(float64(tt.Stats.Merged))
	r.metrics.TimetableRows.Set(float64(len(tt.Rows)))
	r.metrics.ReconcileRuns.WithLabelValues("success").Inc()
	r.metrics.ReconcileDuration.Observe(r.clock.Since(start).Seconds())

	r.logger.Info("timetable reconciled",
		"run_id", runID,
		"from", w.Start,
		"to", w.End,
		"historical", tt.Historical,
		"rows", len(tt.Rows),
		"normalized", tt.Stats.Normalized,
		"merged", tt.Stats.Merged,
		"enriched", tt.Stats.Enriched,
	)
	return tt, nil
}

// fetchAll runs every provider concurrently, each under its own timeout.
// Batches keep provider order so reconciliation is deterministic.
func (r *Reconciler) fetchAll(ctx context.Context, w domain.Window, runID string) []domain.Batch {
	batches := make([]domain.Batch, len(r.providers))
	var g errgroup.Group
	for i, p := range r.providers {
		g.Go(func() error {
			batches[i] = domain.Batch{Source: p.Source(), Records: r.fetch(ctx, p, w, runID)}
			return nil
		})
	}
	_ = g.Wait()
	return batches
}

func (r *Reconciler) fetch(ctx context.Context, p Provider, w domain.Window, runID string) []domain.Value {
	source := string(p.Source())
	if r.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ProviderTimeout)
		defer cancel()
	}

	start := r.clock.Now()
	records, err := p.Fetch(ctx, w)
	r.metrics.ProviderFetchDuration.WithLabelValues(source).Observe(r.clock.Since(start).Seconds())
	if err != nil {
		r.metrics.ProviderFetches.WithLabelValues(source, "error").Inc()
		r.logger.Warn("provider fetch failed, continuing without it",
			"run_id", runID, "source", source, "error", err)
		return nil
	}

	r.metrics.ProviderFetches.WithLabelValues(source, "success").Inc()
	r.metrics.RecordsFetched.WithLabelValues(source).Add(float64(len(records)))
	r.logger.Debug("provider fetched", "run_id", runID, "source", source, "records", len(records))
	return records
}
