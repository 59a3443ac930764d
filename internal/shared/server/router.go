package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfvault-backend/internal/documents"
	"pdfvault-backend/internal/services/health"
	"pdfvault-backend/internal/shared/auth"
	"pdfvault-backend/internal/shared/config"
	"pdfvault-backend/internal/shared/metrics"
	"pdfvault-backend/internal/shared/server/middleware"
	"pdfvault-backend/internal/shared/server/respond"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupIngest  = "INGEST"
	ingestRoute      = "/api/v1/documents"
)

// RouterDeps carries the handlers and services the router mounts.
type RouterDeps struct {
	Config          config.Config
	Verifier        auth.Verifier
	Health          *health.Service
	DocumentHandler *documents.Handler
	RateLimiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// Multipart parts beyond this spill to temp files.
	r.MaxMultipartMemory = 32 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Verifier))
	if rl := rateLimit(deps); rl != nil {
		authed.Use(rl)
	}
	registerMeRoutes(authed)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
	}

	return r
}

// rateLimit returns nil when rate limiting is disabled.
func rateLimit(deps RouterDeps) gin.HandlerFunc {
	rps := deps.Config.RateLimitRPS
	if rps <= 0 {
		return nil
	}
	burst := deps.Config.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	ingestBurst := burst / 2
	if ingestBurst < 1 {
		ingestBurst = 1
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == ingestRoute {
				return rateGroupIngest
			}
			return rateGroupDefault
		},
		Limiter: deps.RateLimiter,
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: rps, Burst: burst},
			rateGroupIngest:  {Rate: rps / 5, Burst: ingestBurst},
		},
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
