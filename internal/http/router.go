// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/arriendofacil/go-contract-backend/internal/config"
	"github.com/arriendofacil/go-contract-backend/internal/domain"
	"github.com/arriendofacil/go-contract-backend/internal/http/handlers"
	"github.com/arriendofacil/go-contract-backend/internal/http/middleware"
	"github.com/arriendofacil/go-contract-backend/internal/render"
	"github.com/arriendofacil/go-contract-backend/internal/repo"
	"github.com/arriendofacil/go-contract-backend/internal/services"
)

// BlobStore is the object-storage surface the HTTP layer wires into services
// and the renderer: template sources in, rendered PDFs out, presigned reads.
type BlobStore interface {
	Store(ctx context.Context, object string, data []byte, contentType string) error
	Fetch(ctx context.Context, object string) ([]byte, error)
	ReadURL(ctx context.Context, object string) (string, error)
}

// templateRepoShim adapts the repository free functions to the
// services.TemplateRepo interface expected by the services. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type templateRepoShim struct{}

// CreateTemplate proxies repo.CreateTemplate.
func (templateRepoShim) CreateTemplate(ctx context.Context, db *gorm.DB, name, description, version, sourceObject, createdBy string) (*domain.ContractTemplate, error) {
	return repo.CreateTemplate(ctx, db, name, description, version, sourceObject, createdBy)
}

// GetActiveTemplate proxies repo.GetActiveTemplate.
func (templateRepoShim) GetActiveTemplate(ctx context.Context, db *gorm.DB, name string) (*domain.ContractTemplate, error) {
	return repo.GetActiveTemplate(ctx, db, name)
}

// GetTemplate proxies repo.GetTemplate.
func (templateRepoShim) GetTemplate(ctx context.Context, db *gorm.DB, id string) (*domain.ContractTemplate, error) {
	return repo.GetTemplate(ctx, db, id)
}

// ListTemplates proxies repo.ListTemplates.
func (templateRepoShim) ListTemplates(ctx context.Context, db *gorm.DB) ([]domain.ContractTemplate, error) {
	return repo.ListTemplates(ctx, db)
}

// contractRepoShim adapts the repository free functions to the
// services.ContractRepo interface expected by the IssuanceService.
type contractRepoShim struct{}

// InsertContract proxies repo.InsertContract.
func (contractRepoShim) InsertContract(ctx context.Context, db *gorm.DB, templateID, templateVersion, contentHash, pdfObject, createdBy string) (*domain.Contract, error) {
	return repo.InsertContract(ctx, db, templateID, templateVersion, contentHash, pdfObject, createdBy)
}

// FindByTemplateAndHash proxies repo.FindByTemplateAndHash.
func (contractRepoShim) FindByTemplateAndHash(ctx context.Context, db *gorm.DB, templateID, contentHash string) (*domain.Contract, error) {
	return repo.FindByTemplateAndHash(ctx, db, templateID, contentHash)
}

// GetContract proxies repo.GetContract.
func (contractRepoShim) GetContract(ctx context.Context, db *gorm.DB, id string) (*domain.Contract, error) {
	return repo.GetContract(ctx, db, id)
}

// SetVoid proxies repo.SetVoid.
func (contractRepoShim) SetVoid(ctx context.Context, db *gorm.DB, id string) error {
	return repo.SetVoid(ctx, db, id)
}

// CountContracts proxies repo.CountContracts (pagination support).
func (contractRepoShim) CountContracts(ctx context.Context, db *gorm.DB, templateID, status string) (int64, error) {
	return repo.CountContracts(ctx, db, repo.ContractFilter{TemplateID: templateID, Status: status})
}

// ListContractsPage proxies repo.ListContractsPage (pagination support).
func (contractRepoShim) ListContractsPage(ctx context.Context, db *gorm.DB, templateID, status string, offset, limit int) ([]domain.Contract, error) {
	return repo.ListContractsPage(ctx, db, repo.ContractFilter{TemplateID: templateID, Status: status}, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured access logs, personal data scrubbed
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, blobs BlobStore, converter render.Converter, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging with PII scrubbing (RUTs, emails, UUIDs)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-User-ID", // caller identity; kept out of access logs
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression (Prometheus scrapes excluded)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
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
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
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

	// Swagger UI (serves the swag-generated spec; off unless enabled)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/storage/renderer
	tplSvc := &services.TemplateService{
		DB:    db,
		Repo:  templateRepoShim{},
		Blobs: blobs,
	}
	issueSvc := &services.IssuanceService{
		DB:        db,
		Templates: templateRepoShim{},
		Contracts: contractRepoShim{},
		Renderer: &render.Renderer{
			Converter: converter,
			Store:     blobs,
		},
		Blobs:         blobs,
		IsDuplicate:   func(err error) bool { return errors.Is(err, repo.ErrDuplicate) },
		RenderTimeout: cfg.RenderTimeout,
	}

	h := handlers.New(issueSvc, tplSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Templates
		api.POST("/templates", h.UploadTemplate)
		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:id", h.GetTemplate)

		// Contracts
		api.POST("/contracts/validate", h.ValidateContract)
		api.POST("/contracts/draft", h.GenerateDraft)
		api.POST("/contracts", h.IssueContract)
		api.GET("/contracts", h.ListContracts)
		api.GET("/contracts/:id", h.GetContract)
		api.POST("/contracts/:id/void", h.VoidContract)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
