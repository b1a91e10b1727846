// Command wishesd runs the wishes guestbook API server.
//
// It loads configuration from the environment (and an optional .env file),
// connects the selected storage and broadcast backends, and serves the HTTP
// API until SIGINT/SIGTERM, then drains connections gracefully.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mooky-live/wishes-backend/internal/broadcast"
	"github.com/mooky-live/wishes-backend/internal/config"
	httpapi "github.com/mooky-live/wishes-backend/internal/http"
	"github.com/mooky-live/wishes-backend/internal/notify"
	"github.com/mooky-live/wishes-backend/internal/observability"
	"github.com/mooky-live/wishes-backend/internal/profanity"
	"github.com/mooky-live/wishes-backend/internal/services"
	"github.com/mooky-live/wishes-backend/internal/store"
	"github.com/mooky-live/wishes-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Optional .env for local development; ignore absence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	if cfg.AdminPass != "" {
		log.Info().Str("admin_pass", sysutil.MaskSecret(cfg.AdminPass)).Msg("admin deletion enabled")
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("store connection failed")
	}
	defer func() { _ = st.Close() }()
	log.Info().Str("backend", cfg.Store.Backend).Msg("store ready")

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Broadcast.Backend).Msg("broadcast connection failed")
	}
	if broker != nil {
		defer func() { _ = broker.Close() }()
		log.Info().Str("backend", cfg.Broadcast.Backend).Msg("broadcast ready")
	}

	mailer, err := notify.NewMailer(notify.SMTPConfig{
		Disabled: cfg.SMTP.Disabled,
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.To,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("smtp setup failed")
	}
	if mailer != nil {
		log.Info().Str("host", cfg.SMTP.Host).Msg("email notifications enabled")
	}

	words := profanity.DefaultWords
	if len(cfg.ExtraBadWords) > 0 {
		words = append(append([]string{}, words...), cfg.ExtraBadWords...)
	}

	svc := &services.GuestbookService{
		Store:           st,
		Broker:          broker,
		Profanity:       profanity.New(words),
		Notifier:        mailer,
		MaxMessageRunes: cfg.MaxMessageRunes,
		MaxNameRunes:    cfg.MaxNameRunes,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Dependencies{
		Guestbook: svc,
		Store:     st,
		Broker:    broker,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		// WriteTimeout stays 0: the SSE live feed holds connections open
		// indefinitely and a server-wide write deadline would cut them.
		WriteTimeout:   0,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("version", version).
			Msg("starting wishes server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown failed")
	}

	log.Info().Msg("server stopped")
}

// setupLogging configures the global zerolog logger: console writer in
// pretty mode, JSON lines otherwise.
func setupLogging(cfg config.Config) {
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if cfg.LogPretty || cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, sc config.StoreConfig) (store.WishStore, error) {
	switch sc.Backend {
	case config.StorePostgres:
		return store.OpenPostgres(sc.DatabaseURL)
	case config.StoreSQLite:
		return store.OpenSQLite(sc.SQLitePath)
	case config.StoreRedis:
		return store.NewRedisStore(ctx, sc.RedisURL)
	default:
		return store.NewFileStore(sc.FilePath, store.FileOptions{
			MaxRows:     sc.MaxRows,
			MaxBytes:    int64(sc.MaxMB * (1 << 20)),
			KeepBackups: sc.KeepBackups,
		})
	}
}

// openBroker connects the configured fan-out backend; nil means broadcast is
// disabled.
func openBroker(ctx context.Context, cfg config.Config) (broadcast.Broker, error) {
	switch cfg.Broadcast.Backend {
	case config.BroadcastRedis:
		url := sysutil.FirstNonEmpty(cfg.Store.RedisURL, os.Getenv("REDIS_URL"))
		return broadcast.NewRedisBroker(ctx, url)
	case config.BroadcastPusher:
		return broadcast.NewPusherBroker(broadcast.PusherCredentials{
			AppID:   cfg.Broadcast.PusherAppID,
			Key:     cfg.Broadcast.PusherKey,
			Secret:  cfg.Broadcast.PusherSecret,
			Cluster: cfg.Broadcast.PusherCluster,
		}), nil
	case config.BroadcastNone:
		return nil, nil
	default:
		return broadcast.NewMemoryBroker(), nil
	}
}
