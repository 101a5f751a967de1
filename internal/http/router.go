// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The public invitation page may live on any configured origin
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-wedding-backend/internal/config"
	"github.com/tbourn/go-wedding-backend/internal/docs"
	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/http/handlers"
	"github.com/tbourn/go-wedding-backend/internal/http/middleware"
	"github.com/tbourn/go-wedding-backend/internal/media"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/repo"
	"github.com/tbourn/go-wedding-backend/internal/services"
)

// AdminUser is the basic-auth user name for the /admin routes.
const AdminUser = "admin"

// defaultBodyLimit caps JSON request bodies. Photo uploads use
// cfg.Media.MaxBody instead.
const defaultBodyLimit = 1 << 20

// questionRepoShim adapts the repository free functions to the
// services.QuestionRepo interface expected by the QuestionService.
type questionRepoShim struct{}

// CreateQuestion proxies repo.CreateQuestion.
func (questionRepoShim) CreateQuestion(ctx context.Context, db *gorm.DB, in domain.QuestionInput) (*domain.Question, error) {
	return repo.CreateQuestion(ctx, db, in)
}

// GetQuestion proxies repo.GetQuestion.
func (questionRepoShim) GetQuestion(ctx context.Context, db *gorm.DB, id string) (*domain.Question, error) {
	return repo.GetQuestion(ctx, db, id)
}

// CountQuestions proxies repo.CountQuestions.
func (questionRepoShim) CountQuestions(ctx context.Context, db *gorm.DB, approvedOnly bool) (int64, error) {
	return repo.CountQuestions(ctx, db, approvedOnly)
}

// ListQuestionsPage proxies repo.ListQuestionsPage.
func (questionRepoShim) ListQuestionsPage(ctx context.Context, db *gorm.DB, approvedOnly bool, offset, limit int) ([]domain.Question, error) {
	return repo.ListQuestionsPage(ctx, db, approvedOnly, offset, limit)
}

// UpdateQuestion proxies repo.UpdateQuestion.
func (questionRepoShim) UpdateQuestion(ctx context.Context, db *gorm.DB, id string, p domain.QuestionPatch) error {
	return repo.UpdateQuestion(ctx, db, id, p)
}

// TableStats proxies repo.TableStats.
func (questionRepoShim) TableStats(ctx context.Context, db *gorm.DB, table string, approvedOnly bool) (int64, *time.Time, error) {
	return repo.TableStats(ctx, db, table, approvedOnly)
}

// Deps are the runtime collaborators the routes are built on. DB and Blobs
// are required; a nil Feed disables the stream endpoint.
type Deps struct {
	DB    *gorm.DB
	Feed  realtime.Broker
	Blobs *media.FSBlobStore
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, compression, CORS and security headers, health and metrics
// endpoints, the photo files, and then mounts the versioned public API under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (per route)
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay)
//  9. Gzip (not for the event stream)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB
	apiBase := cfg.APIBasePath

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskQuery:  []string{"secret"},
		QuietPaths: []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limits
	r.Use(limitBodyFor(defaultBodyLimit, map[string]int64{
		joinPath(apiBase, "/photos"): cfg.Media.MaxBody,
	}))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	))

	// 8) Token-bucket rate limiter per client
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClient())
	r.Use(rl.Handler())

	// 9) Compression; SSE must reach the client unbuffered
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{joinPath(apiBase, "/stream/"), "/metrics"}),
	))

	// 10) CORS posture (safe defaults: allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
		r.Use(cors.New(corsCfg))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
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
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
		r.Use(cors.New(corsCfg))
	}

	// Security and cache headers (HSTS only when enabled and request is HTTPS)
	mediaPrefix := ""
	if servesMedia(cfg) {
		mediaPrefix = cfg.Media.BaseURL
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{joinPath(apiBase, "/admin")},
		MediaPrefix:     mediaPrefix,
		EnablePolicy:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Stored photos, when the blob store is served by this process
	if servesMedia(cfg) {
		r.StaticFS(cfg.Media.BaseURL, deps.Blobs.FileSystem())
	}

	// Dependency injection: services ← repo/db/feed/blobs
	var feed realtime.Publisher
	var subscriber handlers.FeedSubscriber
	if deps.Feed != nil {
		feed, subscriber = deps.Feed, deps.Feed
	}
	rsvpSvc := &services.RSVPService{DB: db, Feed: feed, IdempotencyTTL: cfg.IdempotencyTTL}
	guestbookSvc := &services.GuestbookService{DB: db, Feed: feed, IdempotencyTTL: cfg.IdempotencyTTL}
	questionSvc := services.NewQuestionService(db, questionRepoShim{}, feed, cfg.IdempotencyTTL)
	photoSvc := &services.PhotoService{
		DB:       db,
		Feed:     feed,
		Store:    deps.Blobs,
		Bucket:   cfg.Media.Bucket,
		MaxBatch: cfg.Media.MaxBatch,
		Compress: media.Options{
			MaxEdge:  cfg.Media.MaxEdge,
			MaxBytes: cfg.Media.MaxBytes,
		},
	}
	h := handlers.New(rsvpSvc, guestbookSvc, photoSvc, questionSvc, subscriber)
	h.Heartbeat = cfg.Feed.Heartbeat

	// Public API; form submissions get a tighter per-client budget
	writes := middleware.NewRateLimiter(cfg.WriteRateRPS, cfg.WriteRateBurst, middleware.KeyByClient())
	api := groupWithPrefix(r, apiBase)
	{
		public := api.Group("", writes.WritesOnly())

		// RSVPs
		public.POST("/rsvps", h.SubmitRSVP)
		public.GET("/rsvps", h.ListRSVPs)

		// Guestbook
		public.POST("/guestbook", h.PostGuestbook)
		public.GET("/guestbook", h.ListGuestbook)
		public.DELETE("/guestbook/:id", h.DeleteGuestbook)

		// Photos
		public.POST("/photos", h.UploadPhotos)
		public.GET("/photos", h.ListPhotos)

		// Q&A
		public.POST("/questions", h.AskQuestion)
		public.GET("/questions", h.ListQuestions)

		// Change feed
		api.GET("/stream/:table", h.Stream)
	}

	// Admin dashboard; not mounted without a password
	if cfg.AdminPassword != "" {
		admin := api.Group("/admin", gin.BasicAuth(gin.Accounts{AdminUser: cfg.AdminPassword}))
		admin.GET("/stats", h.AdminStats)
		admin.GET("/rsvps", h.ListRSVPs)
		admin.GET("/guestbook", h.ListGuestbook)
		admin.GET("/questions", h.AdminListQuestions)
		admin.PATCH("/questions/:id", h.ModerateQuestion)
	}
}

// limitBodyFor returns a Gin middleware that caps the request body size to
// def using http.MaxBytesReader, with per-route overrides keyed by the
// matched route path (c.FullPath()). Requests exceeding the cap will cause
// downstream body reads to error.
func limitBodyFor(def int64, routes map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		maxBytes := def
		if n, ok := routes[c.FullPath()]; ok && n > 0 {
			maxBytes = n
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// servesMedia reports whether blob URLs point back at this server.
func servesMedia(cfg config.Config) bool {
	return strings.HasPrefix(cfg.Media.BaseURL, "/") && cfg.Media.BaseURL != "/"
}

// joinPath appends p to the API base, treating "/" as root.
func joinPath(base, p string) string {
	if base == "/" {
		return p
	}
	return base + p
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
