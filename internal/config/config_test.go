package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE", "ENV",
		"LOG_LEVEL", "LOG_PRETTY", "API_BASE_PATH",
		"MAX_MESSAGE_LEN", "MAX_NAME_LEN", "ADMIN_PASS", "SEED_TOKEN",
		"EXTRA_BAD_WORDS",
		"STORE_BACKEND", "DATABASE_URL", "DB_PATH", "REDIS_URL",
		"WISHES_FILE", "WISHES_MAX", "WISHES_MAX_MB", "WISHES_BACKUP_KEEP",
		"BROADCAST_BACKEND", "PUSHER_APP_ID", "PUSHER_KEY", "PUSHER_SECRET", "PUSHER_CLUSTER",
		"STREAM_STRATEGY", "STREAM_POLL_INTERVAL",
		"DISABLE_EMAIL", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
		"FROM_EMAIL", "TO_EMAIL",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS",
		"ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.APIBasePath != "/api" {
		t.Errorf("APIBasePath = %q, want /api", cfg.APIBasePath)
	}
	if cfg.MaxMessageRunes != 500 || cfg.MaxNameRunes != 80 {
		t.Errorf("limits = %d/%d, want 500/80", cfg.MaxMessageRunes, cfg.MaxNameRunes)
	}
	if cfg.Store.Backend != StoreFile {
		t.Errorf("Store.Backend = %q, want file (inferred)", cfg.Store.Backend)
	}
	if cfg.Broadcast.Backend != BroadcastMemory {
		t.Errorf("Broadcast.Backend = %q, want memory (inferred)", cfg.Broadcast.Backend)
	}
	if cfg.Stream.Strategy != StreamPoll || cfg.Stream.PollInterval != 3*time.Second {
		t.Errorf("Stream = %q/%v, want poll/3s", cfg.Stream.Strategy, cfg.Stream.PollInterval)
	}
	if !cfg.IsDevelopment() {
		t.Error("default ENV should be development")
	}
}

func TestLoad_InfersBackendsFromURLs(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/wishes")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != StorePostgres {
		t.Errorf("Store.Backend = %q, want postgres", cfg.Store.Backend)
	}
	if cfg.Broadcast.Backend != BroadcastRedis {
		t.Errorf("Broadcast.Backend = %q, want redis", cfg.Broadcast.Backend)
	}
}

func TestLoad_PusherInference(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUSHER_APP_ID", "123")
	t.Setenv("PUSHER_KEY", "k")
	t.Setenv("PUSHER_SECRET", "s")
	t.Setenv("PUSHER_CLUSTER", "eu")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Broadcast.Backend != BroadcastPusher {
		t.Errorf("Broadcast.Backend = %q, want pusher", cfg.Broadcast.Backend)
	}
}

func TestLoad_SanitizesDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", `psql 'postgres://u:p@host/db'`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.DatabaseURL != "postgres://u:p@host/db" {
		t.Errorf("DatabaseURL = %q", cfg.Store.DatabaseURL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"bad store backend", map[string]string{"STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"redis store without url", map[string]string{"STORE_BACKEND": "redis"}, "REDIS_URL"},
		{"bad stream strategy", map[string]string{"STREAM_STRATEGY": "push"}, "STREAM_STRATEGY"},
		{"broadcast stream without broker", map[string]string{
			"STREAM_STRATEGY":   "broadcast",
			"BROADCAST_BACKEND": "none",
		}, "broadcast backend"},
		{"poll interval too small", map[string]string{"STREAM_POLL_INTERVAL": "10ms"}, "STREAM_POLL_INTERVAL"},
		{"zero message limit", map[string]string{"MAX_MESSAGE_LEN": "0"}, "MAX_MESSAGE_LEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_WarningAliasesToWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warning")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":       "/",
		"/":      "/",
		"api":    "/api",
		"/api/":  "/api",
		"/v1//":  "/v1",
		"/api/v": "/api/v",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, b ,,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
