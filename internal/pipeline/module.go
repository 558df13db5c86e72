// Package pipeline provides the pipeline stage bounded context module.
// It owns each company's ordered sales pipeline: stage configuration,
// ordering, deal transitions, auto-advance detection and statistics.
package pipeline

import (
	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	"pipeline_backend/internal/pipeline/handler"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/service"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the pipeline module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	placements := repository.NewPlacements(pool)
	svc := service.New(repo, placements, bus, log)
	policy := service.NewAutoAdvancePolicy(repo, placements, log)

	return &Module{handler: handler.New(svc, policy, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// RegisterRoutes mounts pipeline stage routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	stages := ctx.Protected.Group("/pipeline-stages")
	stages.GET("", m.handler.List)
	stages.POST("", m.handler.Create)
	stages.GET("/stats", m.handler.Stats)
	stages.PATCH("/reorder", m.handler.Reorder)
	stages.POST("/transitions", m.handler.Transition)
	stages.POST("/transitions/check", m.handler.CheckTransition)
	stages.GET("/:id", m.handler.GetByID)
	stages.PUT("/:id", m.handler.Update)
	stages.DELETE("/:id", m.handler.Delete)

	admin := ctx.Admin.Group("/pipeline-stages")
	admin.POST("/seed", m.handler.SeedDefaults)
	admin.POST("/auto-advance/sweep", m.handler.Sweep)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
