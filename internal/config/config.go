// Package config provides the server configuration loaded from environment
// variables with defaults and validation: server timeouts, logging, the
// SQLite path, the photo pipeline, the change feed, admin access, rate
// limiting and observability.
package config

import (
	"errors"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// MediaConfig defines where photos are stored and how they are shrunk.
type MediaConfig struct {
	Dir      string // MEDIA_DIR, root of the blob store
	BaseURL  string // MEDIA_BASE_URL, public prefix for blob URLs
	Bucket   string // MEDIA_BUCKET, first path segment of every object
	MaxBytes int    // PHOTO_MAX_BYTES, upper bound after compression
	MaxEdge  int    // PHOTO_MAX_EDGE, longest side in pixels
	MaxBatch int    // PHOTO_MAX_BATCH, files per upload request
	MaxBody  int64  // PHOTO_MAX_BODY, request body cap for uploads
}

// FeedConfig selects the change feed broker.
type FeedConfig struct {
	RedisURL  string        // REDIS_URL; empty selects the in-process broker
	Channel   string        // FEED_CHANNEL prefix for Redis pub/sub
	Buffer    int           // FEED_BUFFER per subscriber
	Heartbeat time.Duration // FEED_HEARTBEAT between SSE keep-alives
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-wedding-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DBPath        string // SQLite path
	AdminPassword string // enables /admin when set

	// Media
	Media MediaConfig

	// Change feed
	Feed FeedConfig

	// Rate limiting
	RateRPS        float64 // tokens per second (>= 0)
	RateBurst      int     // bucket size (>= 1)
	WriteRateRPS   float64 // form submissions per second per client
	WriteRateBurst int     // submission burst per client

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration from the environment, normalizes it and
// validates it. Unset, empty or unparsable variables take their default.
func Load() (Config, error) {
	cfg := Config{
		Port:              envStr("PORT", "8080"),
		ReadTimeout:       envDur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: envDur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      envDur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       envDur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    envInt("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(envStr("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(envStr("LOG_LEVEL", "info")),
		LogPretty:      envBool("LOG_PRETTY", false),
		SwaggerEnabled: envBool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(envStr("API_BASE_PATH", "/api/v1")),

		DBPath:        envStr("DB_PATH", "wedding.db"),
		AdminPassword: envStr("ADMIN_PASSWORD", ""),

		Media: MediaConfig{
			Dir:      envStr("MEDIA_DIR", "media"),
			BaseURL:  strings.TrimRight(envStr("MEDIA_BASE_URL", "/media"), "/"),
			Bucket:   envStr("MEDIA_BUCKET", "wedding-photos"),
			MaxBytes: envInt("PHOTO_MAX_BYTES", 1<<20),
			MaxEdge:  envInt("PHOTO_MAX_EDGE", 1920),
			MaxBatch: envInt("PHOTO_MAX_BATCH", 10),
			MaxBody:  int64(envInt("PHOTO_MAX_BODY", 64<<20)),
		},

		Feed: FeedConfig{
			RedisURL:  envStr("REDIS_URL", ""),
			Channel:   envStr("FEED_CHANNEL", "wedding:feed"),
			Buffer:    envInt("FEED_BUFFER", 32),
			Heartbeat: envDur("FEED_HEARTBEAT", 25*time.Second),
		},

		RateRPS:        envFloat("RATE_RPS", 5.0),
		RateBurst:      envInt("RATE_BURST", 10),
		WriteRateRPS:   envFloat("WRITE_RATE_RPS", 0.5),
		WriteRateBurst: envInt("WRITE_RATE_BURST", 5),

		CORS: CORSConfig{AllowedOrigins: envList("CORS_ALLOWED_ORIGINS")},
		Security: SecurityConfig{
			EnableHSTS: envBool("ENABLE_HSTS", false),
			HSTSMaxAge: envDur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: envDur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			Endpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: envStr("OTEL_SERVICE_NAME", "go-wedding-backend"),
			SampleRatio: envFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once, joined.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(!blank(c.Port), "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(!blank(c.DBPath), "DB_PATH must not be empty")

	check(!blank(c.Media.Dir), "MEDIA_DIR must not be empty")
	check(!blank(c.Media.Bucket) && !strings.Contains(c.Media.Bucket, "/"), "MEDIA_BUCKET must be a single path segment")
	check(c.Media.MaxBytes >= 16<<10, "PHOTO_MAX_BYTES must be >= 16384")
	check(c.Media.MaxEdge >= 64, "PHOTO_MAX_EDGE must be >= 64")
	check(c.Media.MaxBatch >= 1, "PHOTO_MAX_BATCH must be >= 1")
	check(c.Media.MaxBody >= int64(c.Media.MaxBytes), "PHOTO_MAX_BODY must be >= PHOTO_MAX_BYTES")

	check(c.Feed.Buffer >= 1, "FEED_BUFFER must be >= 1")
	check(c.Feed.Heartbeat > 0, "FEED_HEARTBEAT must be > 0")

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.WriteRateRPS >= 0, "WRITE_RATE_RPS must be >= 0")
	check(c.WriteRateBurst >= 1, "WRITE_RATE_BURST must be >= 1")

	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}
