package http

import (
	"pipeline_backend/internal/events"
	"pipeline_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes, so the router never
// needs to know individual endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router groups.
	RegisterRoutes(ctx *RouterContext)
}

// EventSubscriber is implemented by modules that react to bus events.
type EventSubscriber interface {
	RegisterHandlers(bus events.Bus)
}

// RouterContext carries the route groups a module may mount on.
type RouterContext struct {
	// Engine is the root Gin engine.
	Engine *gin.Engine
	// V1 is the rate-limited /api/v1 group without authentication.
	V1 *gin.RouterGroup
	// Protected is V1 behind bearer-token authentication.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, restricted to the admin role.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for modules that add their own auth.
	Config config.JWTConfig
	// AuthMiddleware is the bearer-token middleware used by Protected.
	AuthMiddleware gin.HandlerFunc
}
