package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // airport zones must resolve on minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	AirportIATA     string
	AirportICAO     string
	AirportTimezone *time.Location

	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	RequestTimeout     time.Duration
	ProviderTimeout    time.Duration
	RefreshInterval    time.Duration
	DefaultWindowHours int
	CORSAllowedOrigins []string

	// AviationStack schedule provider.
	AVSBaseURL   string
	AVSKey       string
	AVSEnabled   bool
	AVSCacheTTL  time.Duration
	AVSRateLimit float64 // requests per second; 0 disables limiting

	// Flightradar24 flight-summary provider.
	FR24BaseURL    string
	FR24Token      string
	FR24APIVersion string
	FR24Enabled    bool
	FR24CacheTTL   time.Duration

	// Local flights table. Empty disables the local source.
	DatabaseURL string

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Empty brokers disable publishing.
	KafkaBrokers []string
	KafkaTopic   string

	TaxiLandedAfter    time.Duration
	EnrouteLandedAfter time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	tzName := sharedcfg.EnvOrDefault("AIRPORT_TZ", "America/Tijuana")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid AIRPORT_TZ %q: %w", tzName, err)
	}

	cfg := &Config{
		AirportIATA:     strings.ToUpper(sharedcfg.EnvOrDefault("AIRPORT_IATA", "TIJ")),
		AirportICAO:     strings.ToUpper(sharedcfg.EnvOrDefault("AIRPORT_ICAO", "MMTJ")),
		AirportTimezone: loc,

		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: parseList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		AVSBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("AVS_BASE_URL", "https://api.aviationstack.com/v1"), "/"),
		AVSKey:     os.Getenv("AVS_KEY"),

		FR24BaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("FR24_BASE_URL", "https://fr24api.flightradar24.com/api"), "/"),
		FR24Token:      os.Getenv("FR24_API_TOKEN"),
		FR24APIVersion: sharedcfg.EnvOrDefault("FR24_API_VERSION", "v1"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		CacheBackend:  strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory)),
		RedisAddr:     sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "flight-timetable"),
	}
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	for _, d := range []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", "20s", &cfg.RequestTimeout},
		{"PROVIDER_TIMEOUT", "10s", &cfg.ProviderTimeout},
		{"REFRESH_INTERVAL", "5m", &cfg.RefreshInterval},
		{"AVS_CACHE_TTL", "90s", &cfg.AVSCacheTTL},
		{"FR24_CACHE_TTL", "90s", &cfg.FR24CacheTTL},
		{"TAXI_LANDED_AFTER", "90m", &cfg.TaxiLandedAfter},
		{"ENROUTE_LANDED_AFTER", "60m", &cfg.EnrouteLandedAfter},
	} {
		v, err := parsePositiveDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if cfg.DefaultWindowHours, err = parsePositiveInt("DEFAULT_WINDOW_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseNonNegativeInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AVSRateLimit, err = parseRate("AVS_RATE_LIMIT", 1); err != nil {
		return nil, err
	}

	cfg.AVSEnabled = parseEnabled("AVS_ENABLED", cfg.AVSKey != "")
	cfg.FR24Enabled = parseEnabled("FR24_ENABLED", cfg.FR24Token != "")

	if cfg.AirportICAO == "" || cfg.AirportIATA == "" {
		return nil, errors.New("AIRPORT_IATA and AIRPORT_ICAO are required")
	}
	if cfg.AVSEnabled && cfg.AVSKey == "" {
		return nil, errors.New("AVS_ENABLED is true but AVS_KEY is not set")
	}
	if cfg.FR24Enabled && cfg.FR24Token == "" {
		return nil, errors.New("FR24_ENABLED is true but FR24_API_TOKEN is not set")
	}
	if cfg.CacheBackend != CacheMemory && cfg.CacheBackend != CacheRedis {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want %s or %s", cfg.CacheBackend, CacheMemory, CacheRedis)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Airport returns the airport the service reconciles arrivals for.
func (c *Config) Airport() domain.Airport {
	return domain.Airport{IATA: c.AirportIATA, ICAO: c.AirportICAO, Location: c.AirportTimezone}
}

// Policy returns the display status thresholds.
func (c *Config) Policy() domain.Policy {
	return domain.Policy{TaxiLandedAfter: c.TaxiLandedAfter, EnrouteLandedAfter: c.EnrouteLandedAfter}
}

// PublishEnabled reports whether reconciled timetables are written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseRate(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return r, nil
}

// parseEnabled lets an explicit flag override the presence of credentials.
func parseEnabled(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
