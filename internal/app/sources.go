// Package app assembles the configured providers and their shared
// infrastructure for the service and the CLI.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/aviationstack"
	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/cache"
	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/fr24"
	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/localdb"
	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/upstream"
	"github.com/couchcryptid/flight-timetable-etl/internal/config"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
	"github.com/couchcryptid/flight-timetable-etl/internal/pipeline"
)

const memoryCleanupInterval = time.Minute

// Sources holds the enabled providers plus the resources they share.
type Sources struct {
	Providers []pipeline.Provider
	// Readiness covers the stateful dependencies (database, redis).
	Readiness pipeline.Readiness
	closers   []io.Closer
}

// Close releases the cache and database connections.
func (s *Sources) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildSources creates every provider enabled by cfg. Providers that are not
// configured are skipped and reported as disabled in metrics.
func BuildSources(ctx context.Context, cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (*Sources, error) {
	s := &Sources{}
	airport := cfg.Airport()

	respCache := newCache(cfg, logger)
	s.closers = append(s.closers, respCache)
	if r, ok := respCache.(*cache.Redis); ok {
		s.Readiness = append(s.Readiness, r)
	}

	if cfg.AVSEnabled {
		var limiter *rate.Limiter
		if cfg.AVSRateLimit > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.AVSRateLimit), 1)
		}
		fetcher := upstream.NewFetcher(upstream.Options{
			Provider:   "aviationstack",
			BaseURL:    cfg.AVSBaseURL,
			Timeout:    cfg.ProviderTimeout,
			AuthParams: url.Values{"access_key": {cfg.AVSKey}},
			Cache:      respCache,
			Limiter:    limiter,
			Metrics:    metrics,
			Logger:     logger,
		})
		s.Providers = append(s.Providers, aviationstack.NewProvider(fetcher, airport, cfg.AVSCacheTTL, clock, logger))
		logger.Info("schedule provider enabled", "base_url", cfg.AVSBaseURL, "rate_limit", cfg.AVSRateLimit)
	} else {
		disabled(metrics, logger, domain.SourceSchedule)
	}

	if cfg.FR24Enabled {
		fetcher := upstream.NewFetcher(upstream.Options{
			Provider: "fr24",
			BaseURL:  cfg.FR24BaseURL,
			Timeout:  cfg.ProviderTimeout,
			Headers:  fr24.Headers(cfg.FR24Token, cfg.FR24APIVersion),
			Cache:    respCache,
			Metrics:  metrics,
			Logger:   logger,
		})
		s.Providers = append(s.Providers, fr24.NewClient(fetcher, airport, cfg.FR24CacheTTL, clock, logger))
		logger.Info("tracking summary provider enabled", "base_url", cfg.FR24BaseURL)
	} else {
		disabled(metrics, logger, domain.SourceSummary)
	}

	if cfg.DatabaseURL != "" {
		store, err := localdb.Open(ctx, cfg.DatabaseURL, airport)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Providers = append(s.Providers, store)
		s.Readiness = append(s.Readiness, store)
		s.closers = append(s.closers, store)
		logger.Info("local flights provider enabled")
	} else {
		disabled(metrics, logger, domain.SourceLocal)
	}

	return s, nil
}

func newCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if cfg.CacheBackend == config.CacheRedis {
		logger.Info("upstream cache backend", "backend", "redis", "addr", cfg.RedisAddr)
		client := redis.NewClient(cache.RedisOptions(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		return cache.NewRedis(client, logger)
	}
	logger.Info("upstream cache backend", "backend", "memory")
	return cache.NewMemory(memoryCleanupInterval)
}

func disabled(metrics *observability.Metrics, logger *slog.Logger, src domain.Source) {
	metrics.ProviderEnabled.WithLabelValues(string(src)).Set(0)
	logger.Info("provider disabled", "source", src)
}
