// Command reconcile builds one timetable and prints it as JSON. Providers
// are either replayed from captured JSON payloads or, with -live, the ones
// configured through the service environment variables.
//
// Usage:
//
//	go run ./cmd/reconcile \
//	  -schedule testdata/aviationstack_flights.json \
//	  -summary testdata/fr24_summary.json \
//	  -local testdata/local_flights.json \
//	  -start 2024-07-08T00:00:00Z -hours 24 -now 2024-07-08T15:00:00Z
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/fixture"
	"github.com/couchcryptid/flight-timetable-etl/internal/app"
	"github.com/couchcryptid/flight-timetable-etl/internal/config"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
	"github.com/couchcryptid/flight-timetable-etl/internal/pipeline"
)

type options struct {
	schedule string
	summary  string
	local    string
	live     bool
	start    string
	end      string
	hours    int
	now      string
	order    string
	table    bool
}

func main() {
	var o options
	flag.StringVar(&o.schedule, "schedule", "", "path to a captured schedule (AviationStack) payload")
	flag.StringVar(&o.summary, "summary", "", "path to a captured tracking summary (FR24) payload")
	flag.StringVar(&o.local, "local", "", "path to exported local flights rows")
	flag.BoolVar(&o.live, "live", false, "use the providers configured in the environment")
	flag.StringVar(&o.start, "start", "", "window start (RFC 3339 or \"now\"); default is the last 24h through end of today")
	flag.StringVar(&o.end, "end", "", "window end (RFC 3339); overrides -hours")
	flag.IntVar(&o.hours, "hours", 24, "window length in hours from -start")
	flag.StringVar(&o.now, "now", "", "evaluate display status as of this instant (RFC 3339)")
	flag.StringVar(&o.order, "order", "desc", "row order: asc or desc")
	flag.BoolVar(&o.table, "table", false, "print a text table instead of JSON")
	flag.Parse()

	if !o.live && o.schedule == "" && o.summary == "" && o.local == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, o, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, o options, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	// stdout carries the timetable, so logs stay on stderr.
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	clock := clockwork.NewRealClock()
	if o.now != "" {
		now, err := time.Parse(time.RFC3339, o.now)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: -now: %v\n", err)
			return 2
		}
		clock = clockwork.NewFakeClockAt(now.UTC())
	}

	w, err := window(o, clock.Now())
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	providers := fixtureProviders(o)
	if o.live {
		sources, err := app.BuildSources(ctx, cfg, clock, metrics, logger)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: build providers: %v\n", err)
			return 1
		}
		defer sources.Close()
		providers = append(providers, sources.Providers...)
	}

	r := pipeline.NewReconciler(providers, pipeline.ReconcilerConfig{
		Airport:         cfg.Airport(),
		Policy:          cfg.Policy(),
		ProviderTimeout: cfg.ProviderTimeout,
	}, clock, metrics, logger)

	tt, err := r.Reconcile(ctx, w, domain.ParseOrder(o.order))
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: reconcile: %v\n", err)
		return 1
	}

	if o.table {
		printTable(stdout, tt, cfg.Airport().Location)
		return 0
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tt); err != nil {
		fmt.Fprintf(stderr, "FATAL: encode timetable: %v\n", err)
		return 1
	}
	return 0
}

func fixtureProviders(o options) []pipeline.Provider {
	var out []pipeline.Provider
	for _, f := range []struct {
		source domain.Source
		path   string
	}{
		{domain.SourceSchedule, o.schedule},
		{domain.SourceSummary, o.summary},
		{domain.SourceLocal, o.local},
	} {
		if f.path != "" {
			out = append(out, fixture.NewProvider(f.source, f.path))
		}
	}
	return out
}

func window(o options, now time.Time) (domain.Window, error) {
	if o.start == "" {
		if o.end != "" {
			return domain.Window{}, errors.New("-end requires -start")
		}
		return domain.DefaultWindow(now), nil
	}
	start := now
	if !strings.EqualFold(o.start, "now") {
		t, err := time.Parse(time.RFC3339, o.start)
		if err != nil {
			return domain.Window{}, fmt.Errorf("-start: %w", err)
		}
		start = t
	}
	if o.end != "" {
		end, err := time.Parse(time.RFC3339, o.end)
		if err != nil {
			return domain.Window{}, fmt.Errorf("-end: %w", err)
		}
		return domain.NewWindow(start, end)
	}
	return domain.WindowFrom(start, o.hours)
}

func printTable(out io.Writer, tt domain.Timetable, loc *time.Location) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLIGHT\tFROM\tSTA\tETA\tSTATUS\tREG\tCODESHARES")
	for _, r := range tt.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.PrimaryCode(), r.DepCode, clockTime(r.STA, loc), clockTime(r.ETA, loc),
			r.DisplayStatus, r.Registration, strings.Join(r.Codeshares, ","))
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%d rows (%d normalized, %d merged, %d outside window)\n",
		len(tt.Rows), tt.Stats.Normalized, tt.Stats.Merged, tt.Stats.Filtered)
}

func clockTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("02 15:04")
}
