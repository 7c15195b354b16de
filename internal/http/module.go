// Package http holds the pieces shared by the router and the modules that
// mount routes on it.
package http

import (
	"context"

	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to each module while the router is built.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthMiddleware.
	Protected      *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
}

// RouterConfig is the subset of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health. The pgx pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled in cmd/api and passed to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
