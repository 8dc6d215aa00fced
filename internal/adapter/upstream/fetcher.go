// Package upstream performs cached, rate-limited GET requests against the
// flight data providers.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/cache"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// Options configure a Fetcher.
type Options struct {
	Provider string
	BaseURL  string
	Timeout  time.Duration
	// Headers are sent with every request.
	Headers http.Header
	// AuthParams are appended to every query but kept out of cache keys.
	AuthParams url.Values
	// Cache is optional; nil disables response caching.
	Cache cache.Cache
	// Limiter is optional; nil disables client-side rate limiting.
	Limiter *rate.Limiter
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Fetcher issues GET requests to one provider.
type Fetcher struct {
	provider   string
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	authParams url.Values
	cache      cache.Cache
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewFetcher creates a fetcher for one provider.
func NewFetcher(o Options) *Fetcher {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Fetcher{
		provider:   o.Provider,
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
		httpClient: &http.Client{Timeout: o.Timeout},
		headers:    o.Headers,
		authParams: o.AuthParams,
		cache:      o.Cache,
		limiter:    o.Limiter,
		metrics:    o.Metrics,
		logger:     o.Logger,
	}
}

// Provider returns the provider name used in errors and logs.
func (f *Fetcher) Provider() string {
	return f.provider
}

// Get fetches endpoint with params and decodes the body. A successful body is
// cached for ttl; a zero ttl bypasses the cache entirely.
func (f *Fetcher) Get(ctx context.Context, endpoint string, params url.Values, ttl time.Duration) (domain.Value, error) {
	key := CacheKey(f.provider+"/"+endpoint, params)
	if f.cache != nil && ttl > 0 {
		if body, ok := f.cache.Get(ctx, key); ok {
			if v, err := domain.ParseValue(body); err == nil {
				f.cacheResult("hit")
				return v, nil
			}
		}
		f.cacheResult("miss")
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return domain.Value{}, &Error{Provider: f.provider, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	body, err := f.do(ctx, endpoint, params)
	if err != nil {
		return domain.Value{}, err
	}

	v, err := domain.ParseValue(body)
	if err != nil {
		return domain.Value{}, &Error{Provider: f.provider, Status: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	// Some providers report failures with a 200 and an error object.
	if e := v.Get("error"); e.IsObject() {
		return domain.Value{}, &Error{
			Provider: f.provider,
			Status:   http.StatusOK,
			Code:     e.Lookup("code", "type").Str(),
			Err:      errors.New(e.Lookup("message", "info").Str()),
		}
	}

	if f.cache != nil && ttl > 0 {
		f.cache.Set(ctx, key, body, ttl)
	}
	return v, nil
}

func (f *Fetcher) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	for k, vs := range f.authParams {
		q[k] = append([]string(nil), vs...)
	}
	fullURL := f.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(q) > 0 {
		fullURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &Error{Provider: f.provider, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, vs := range f.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: f.provider, Err: fmt.Errorf("%s request: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Provider: f.provider,
			Status:   resp.StatusCode,
			Code:     errorCode(body),
			Err:      fmt.Errorf("%s: %s", endpoint, strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: f.provider, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	f.logger.Debug("upstream request", "provider", f.provider, "endpoint", endpoint,
		"bytes", len(body), "duration", time.Since(start))
	return body, nil
}

func (f *Fetcher) cacheResult(result string) {
	if f.metrics != nil {
		f.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// errorCode extracts a provider error code from a JSON error body.
func errorCode(body []byte) string {
	v, err := domain.ParseValue(body)
	if err != nil {
		return ""
	}
	if e := v.Get("error"); e.IsObject() {
		return e.Lookup("code", "type").Str()
	}
	return v.Lookup("code", "error").Str()
}

// CacheKey derives a stable key from an endpoint and its query parameters:
// the first 32 hex characters of the SHA-256 of the endpoint and the
// parameters in sorted order.
func CacheKey(endpoint string, params url.Values) string {
	sum := sha256.Sum256([]byte(endpoint + "?" + params.Encode()))
	return hex.EncodeToString(sum[:])[:32]
}
