// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// storage backend selection, broadcast credentials, admin secrets, the live
// feed strategy, and observability knobs.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mooky-live/wishes-backend/internal/sysutil"
)

// Store backend selectors for STORE_BACKEND.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StoreFile     = "file"
)

// Broadcast backend selectors for BROADCAST_BACKEND.
const (
	BroadcastMemory = "memory"
	BroadcastRedis  = "redis"
	BroadcastPusher = "pusher"
	BroadcastNone   = "none"
)

// Live feed strategies for STREAM_STRATEGY.
const (
	StreamPoll      = "poll"
	StreamBroadcast = "broadcast"
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

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

// StoreConfig selects and parameterizes the wish storage backend.
type StoreConfig struct {
	Backend     string // postgres|sqlite|redis|file (STORE_BACKEND)
	DatabaseURL string // DATABASE_URL (postgres DSN or URL)
	SQLitePath  string // DB_PATH
	RedisURL    string // REDIS_URL
	FilePath    string // WISHES_FILE

	// File backend retention knobs (mirroring the dev server's env surface).
	MaxRows     int     // WISHES_MAX (0 = unlimited)
	MaxMB       float64 // WISHES_MAX_MB backup-rotation threshold
	KeepBackups int     // WISHES_BACKUP_KEEP
}

// BroadcastConfig selects the pub/sub fan-out backend.
type BroadcastConfig struct {
	Backend string // memory|redis|pusher|none (BROADCAST_BACKEND)

	PusherAppID   string
	PusherKey     string
	PusherSecret  string
	PusherCluster string
}

// StreamConfig parameterizes the SSE live feed.
type StreamConfig struct {
	Strategy     string        // poll|broadcast (STREAM_STRATEGY)
	PollInterval time.Duration // STREAM_POLL_INTERVAL
}

// SMTPConfig configures the best-effort new-wish email notifications.
type SMTPConfig struct {
	Disabled bool   // DISABLE_EMAIL
	Host     string // SMTP_HOST
	Port     int    // SMTP_PORT
	Username string // SMTP_USER
	Password string // SMTP_PASS
	From     string // FROM_EMAIL
	To       string // TO_EMAIL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Environment ("development" enables the cookie admin path; anything
	// else is treated as production).
	Env string

	// Logging
	LogLevel  string
	LogPretty bool

	// Routing
	APIBasePath string

	// Guestbook limits
	MaxMessageRunes int // MAX_MESSAGE_LEN
	MaxNameRunes    int // MAX_NAME_LEN

	// Secrets
	AdminPass string // ADMIN_PASS
	SeedToken string // SEED_TOKEN

	// Profanity blocklist extensions (comma-separated words).
	ExtraBadWords []string

	// Subsystems
	Store     StoreConfig
	Broadcast BroadcastConfig
	Stream    StreamConfig
	SMTP      SMTPConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// IsDevelopment reports whether the dev-only authorization paths may be
// enabled.
func (c Config) IsDevelopment() bool { return c.Env == "development" }

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		Env: strings.ToLower(getenv("ENV", "development")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Routing
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Guestbook limits
		MaxMessageRunes: getint("MAX_MESSAGE_LEN", 500),
		MaxNameRunes:    getint("MAX_NAME_LEN", 80),

		// Secrets
		AdminPass: os.Getenv("ADMIN_PASS"),
		SeedToken: os.Getenv("SEED_TOKEN"),

		ExtraBadWords: splitCSV(os.Getenv("EXTRA_BAD_WORDS")),

		Store: StoreConfig{
			Backend:     strings.ToLower(getenv("STORE_BACKEND", "")),
			DatabaseURL: sanitizeDatabaseURL(os.Getenv("DATABASE_URL")),
			SQLitePath:  getenv("DB_PATH", "wishes.db"),
			RedisURL:    os.Getenv("REDIS_URL"),
			FilePath:    getenv("WISHES_FILE", "data/wishes.json"),
			MaxRows:     getint("WISHES_MAX", 0),
			MaxMB:       getfloat("WISHES_MAX_MB", 1.5),
			KeepBackups: getint("WISHES_BACKUP_KEEP", 5),
		},

		Broadcast: BroadcastConfig{
			Backend:       strings.ToLower(getenv("BROADCAST_BACKEND", "")),
			PusherAppID:   os.Getenv("PUSHER_APP_ID"),
			PusherKey:     os.Getenv("PUSHER_KEY"),
			PusherSecret:  os.Getenv("PUSHER_SECRET"),
			PusherCluster: os.Getenv("PUSHER_CLUSTER"),
		},

		Stream: StreamConfig{
			Strategy:     strings.ToLower(getenv("STREAM_STRATEGY", StreamPoll)),
			PollInterval: getdur("STREAM_POLL_INTERVAL", 3*time.Second),
		},

		SMTP: SMTPConfig{
			Disabled: getbool("DISABLE_EMAIL", false),
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getint("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("FROM_EMAIL"),
			To:       os.Getenv("TO_EMAIL"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "wishes-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = inferStoreBackend(cfg.Store)
	}
	if cfg.Broadcast.Backend == "" {
		cfg.Broadcast.Backend = inferBroadcastBackend(cfg.Broadcast, cfg.Store)
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxMessageRunes < 1 {
		return cfg, errors.New("MAX_MESSAGE_LEN must be >= 1")
	}
	if cfg.MaxNameRunes < 1 {
		return cfg, errors.New("MAX_NAME_LEN must be >= 1")
	}
	switch cfg.Store.Backend {
	case StorePostgres, StoreSQLite, StoreRedis, StoreFile:
	default:
		return cfg, errors.New("STORE_BACKEND must be one of: postgres, sqlite, redis, file")
	}
	if cfg.Store.Backend == StorePostgres && cfg.Store.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required for the postgres backend")
	}
	if cfg.Store.Backend == StoreRedis && cfg.Store.RedisURL == "" {
		return cfg, errors.New("REDIS_URL is required for the redis backend")
	}
	switch cfg.Broadcast.Backend {
	case BroadcastMemory, BroadcastRedis, BroadcastPusher, BroadcastNone:
	default:
		return cfg, errors.New("BROADCAST_BACKEND must be one of: memory, redis, pusher, none")
	}
	switch cfg.Stream.Strategy {
	case StreamPoll, StreamBroadcast:
	default:
		return cfg, errors.New("STREAM_STRATEGY must be poll or broadcast")
	}
	if cfg.Stream.PollInterval < 100*time.Millisecond {
		return cfg, errors.New("STREAM_POLL_INTERVAL must be >= 100ms")
	}
	if cfg.Stream.Strategy == StreamBroadcast && cfg.Broadcast.Backend == BroadcastNone {
		return cfg, errors.New("STREAM_STRATEGY=broadcast requires a broadcast backend")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return cfg, nil
}

// inferStoreBackend picks a backend when STORE_BACKEND is unset, preferring
// whichever connection string is present: postgres, then redis, then the
// file fallback.
func inferStoreBackend(s StoreConfig) string {
	switch {
	case s.DatabaseURL != "":
		return StorePostgres
	case s.RedisURL != "":
		return StoreRedis
	default:
		return StoreFile
	}
}

// inferBroadcastBackend picks a fan-out when BROADCAST_BACKEND is unset:
// pusher when fully credentialed, redis when the store already has a Redis
// connection, else the in-process hub.
func inferBroadcastBackend(b BroadcastConfig, s StoreConfig) string {
	if b.PusherAppID != "" && b.PusherKey != "" && b.PusherSecret != "" && b.PusherCluster != "" {
		return BroadcastPusher
	}
	if s.RedisURL != "" {
		return BroadcastRedis
	}
	return BroadcastMemory
}

// sanitizeDatabaseURL tolerates values pasted straight from a provider
// dashboard: a leading "psql " and surrounding quotes are stripped.
func sanitizeDatabaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "psql ")
	s = strings.Trim(s, `'"`)
	return s
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// getbool reads a boolean flag. Recognized falsy spellings return false,
// anything else unrecognized keeps the default.
func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
