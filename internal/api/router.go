package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/middleware"
	"github.com/persistorai/revisor/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log           *logrus.Logger
	Storage       HealthChecker
	Backend       string
	SchemaVersion int
	Documents     DocumentService
	History       HistoryService
	CORSOrigins   []string
	Version       string

	// Feed streams committed changes over WebSocket; nil disables the feed
	// routes. AppCtx bounds feed connections and defaults to Background.
	Feed   *ws.Hub
	AppCtx context.Context //nolint:containedctx // long-lived server context.
}

// Router-level limits.
const maxBodySize = 10 << 20 // 10 MB

const metricsPath = "/metrics"

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.APIHeaders(deps.Version))
	r.Use(middleware.MaxBodySize(maxBodySize))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			MaxAge:           1 * time.Hour,
			AllowCredentials: false,
		}))
	}

	r.Use(middleware.PrometheusMiddleware(metricsPath, "/api/v1"+metricsPath))

	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(api *gin.RouterGroup, deps *RouterDeps) {
	health := NewHealthHandler(deps.Storage, deps.Backend, deps.SchemaVersion, deps.Log, deps.Version)
	if deps.Feed != nil {
		health.SetFeed(deps.Feed)
	}
	documents := NewDocumentHandler(deps.Documents, deps.Log)
	history := NewHistoryHandler(deps.History, deps.Log)

	api.GET("/health", health.Liveness)
	api.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	// Documents.
	api.GET("/documents", documents.List)
	api.POST("/documents", documents.Create)
	api.GET("/documents/:id", documents.Get)
	api.POST("/documents/:id/revise", documents.Revise)

	// Revision log.
	api.GET("/documents/:id/revisions", history.ListRevisions)
	api.GET("/documents/:id/revisions/:number", history.GetRevision)
	api.GET("/documents/:id/revisions/:number/state", history.State)
	api.GET("/documents/:id/authors", history.Authors)
	api.GET("/documents/:id/history/:field", history.FieldHistory)
	api.GET("/documents/:id/embeds/:relation/:item/history/:field", history.EmbeddedFieldHistory)

	if deps.Feed != nil {
		appCtx := deps.AppCtx
		if appCtx == nil {
			appCtx = context.Background()
		}

		api.GET("/feed", feedHandler(appCtx, deps.Log, deps.Feed, deps.CORSOrigins, false))
		api.GET("/documents/:id/feed", feedHandler(appCtx, deps.Log, deps.Feed, deps.CORSOrigins, true))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(r.Group("/api/v1"), deps)

	return r
}
