// Package router assembles the gin engine of the query API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/cloudfly/dian-service/docs"
	"github.com/cloudfly/dian-service/internal/infrastructure/logger"
	"github.com/cloudfly/dian-service/internal/interfaces/http/handler"
	"github.com/cloudfly/dian-service/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config selects the optional middleware
type Config struct {
	ServiceName    string
	TracingEnabled bool
	CORS           middleware.CORSConfig
	TrustedProxies []string
	// Auth guards /api/v1 when set
	Auth    middleware.TokenValidator
	Swagger middleware.SwaggerConfig
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	api        *gin.RouterGroup
	registrars []RouteRegistrar
}

// New builds an engine with the standard middleware chain and mounts the
// system endpoints. /health and /ready stay unauthenticated.
func New(cfg Config, system *handler.SystemHandler, log *zap.Logger) (*Router, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS(cfg.CORS))

	engine.GET("/health", system.Health)
	engine.GET("/ready", system.Ready)

	var auth gin.HandlerFunc
	if cfg.Auth != nil {
		auth = middleware.JWTAuth(cfg.Auth, log)
	}
	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger, auth), ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group("/api/v1")
	if auth != nil {
		api.Use(auth)
	}
	api.GET("/dian/workers", system.Workers)

	return &Router{engine: engine, api: api}, nil
}

// Register adds a RouteRegistrar to be mounted by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registrar under /api/v1 and returns the engine
func (r *Router) Setup() *gin.Engine {
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(r.api)
	}
	return r.engine
}
