// Package httpapi wires the HTTP transport (Gin) to the guestbook service,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging with secret redaction, panic recovery,
// metrics, compression, CORS, security headers, and rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mooky-live/wishes-backend/internal/auth"
	"github.com/mooky-live/wishes-backend/internal/broadcast"
	"github.com/mooky-live/wishes-backend/internal/config"
	"github.com/mooky-live/wishes-backend/internal/http/handlers"
	"github.com/mooky-live/wishes-backend/internal/http/middleware"
	"github.com/mooky-live/wishes-backend/internal/store"
)

// Dependencies carries the constructed application objects the router mounts.
// Broker may be nil when no fan-out backend is configured.
type Dependencies struct {
	Guestbook handlers.Guestbook
	Store     store.WishStore
	Broker    broadcast.Broker
}

// RegisterRoutes attaches all middleware and endpoints to the Gin engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. RedactingLogger: structured logs with secrets masked
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (live feed excluded; compression would buffer the stream)
//  8. Rate limiter per IP
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	apiBase := cfg.APIBasePath
	streamPath := apiBase + "/wishes/stream"
	if apiBase == "/" {
		streamPath = "/wishes/stream"
	}

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{streamPath})))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// CORS posture; allow all when no allowlist is configured.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", auth.HeaderAdminPass, auth.HeaderSeedToken},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", auth.HeaderAdminPass, auth.HeaderSeedToken},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true, // dev cookie auth needs credentials with an explicit allowlist
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", healthHandler(deps))

	admin := auth.NewAdmin(cfg.AdminPass, cfg.IsDevelopment())
	seed := auth.NewSeedToken(cfg.SeedToken)
	h := handlers.New(deps.Guestbook, admin, seed, deps.Broker, handlers.StreamOptions{
		UseBroker:    cfg.Stream.Strategy == config.StreamBroadcast,
		PollInterval: cfg.Stream.PollInterval,
	})

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/wish", h.PostWish)
		api.GET("/wish", h.ListWishes)
		api.GET("/wishes", h.ListWishes)
		api.GET("/wish/count", h.CountWishes)
		api.GET("/wishes/count", h.CountWishes)
		api.GET("/wishes/stream", h.StreamWishes)
		api.POST("/wish/typing", h.Typing)

		api.DELETE("/messages/:id", h.DeleteWish)
		api.POST("/wishes/import", h.ImportWishes)
	}
}

// healthHandler reports liveness plus the state of the storage and broadcast
// dependencies. A failing store ping degrades the status but still answers
// 200 so orchestrators do not kill the process over a transient outage.
func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		storeState := "ok"
		if deps.Store != nil {
			if err := deps.Store.Ping(c.Request.Context()); err != nil {
				status = "degraded"
				storeState = "unavailable"
			}
		} else {
			status = "degraded"
			storeState = "unconfigured"
		}

		brokerState := "none"
		subscribers := -1
		if deps.Broker != nil {
			brokerState = "ok"
			subscribers = deps.Broker.Subscribers()
		}

		body := gin.H{
			"status": status,
			"store":  storeState,
			"broker": brokerState,
		}
		if subscribers >= 0 {
			body["stream_subscribers"] = subscribers
		}
		c.JSON(http.StatusOK, body)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies make downstream reads error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
