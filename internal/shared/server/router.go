package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskscan-backend/internal/account"
	googleauth "riskscan-backend/internal/auth"
	"riskscan-backend/internal/documents"
	"riskscan-backend/internal/reports"
	"riskscan-backend/internal/shared/config"
	"riskscan-backend/internal/shared/metrics"
	"riskscan-backend/internal/shared/server/middleware"
	"riskscan-backend/internal/shared/server/respond"
	"riskscan-backend/internal/uploads"
	"riskscan-backend/internal/usage"
	"riskscan-backend/internal/users"
)

// RouterDeps carries the handlers wired by bootstrap.
type RouterDeps struct {
	Config          config.Config
	AccountHandler  *account.Handler
	ReportHandler   *reports.Handler
	DocumentHandler *documents.Handler
	UsageHandler    *usage.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"WRITE": {Rate: 1, Burst: 5},
			},
			GroupFor: func(c *gin.Context) string {
				switch c.Request.Method {
				case http.MethodPost, http.MethodPut, http.MethodDelete:
					return "WRITE"
				default:
					return ""
				}
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	} else {
		registerMeRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
	}
	uploads.RegisterRoutes(api)

	if deps.Config.Env == "dev" && deps.UsageHandler != nil {
		dev := api.Group("/dev")
		deps.UsageHandler.RegisterDevRoutes(dev)
	}

	return r
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
