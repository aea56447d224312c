package server

import (
	"context"

	"github.com/abduss/pipelinedash/internal/config"
	"github.com/abduss/pipelinedash/internal/dashboard"
	"github.com/abduss/pipelinedash/internal/logger"
	"github.com/abduss/pipelinedash/internal/metrics"
	"github.com/abduss/pipelinedash/internal/settings"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type bucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config           config.Config
	Store            pinger
	ObjectStore      bucketChecker
	DashboardService *dashboard.Service
	SettingsHandler  *settings.Handler
	Logger           *zap.Logger
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Logger))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.DashboardService != nil {
		dashboard.RegisterRoutes(api, deps.DashboardService)
	}
	if deps.SettingsHandler != nil {
		settings.RegisterRoutes(api, deps.SettingsHandler)
	}

	return router
}
