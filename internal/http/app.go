// Package http holds the composition types shared by the router and the
// bounded-context modules.
package http

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// main.go populates it and hands it to the router.
type App struct {
	// Config holds the router configuration (HTTP and JWT settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health backs /api/health, normally the database pool.
	Health HealthChecker
	// EventBus carries pipeline and notification events between modules.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}

// RegisterEventHandlers subscribes every module that implements
// EventSubscriber to the bus and returns how many did.
func (a *App) RegisterEventHandlers() int {
	if a.EventBus == nil {
		return 0
	}
	n := 0
	for _, m := range a.Modules {
		sub, ok := m.(EventSubscriber)
		if !ok {
			continue
		}
		sub.RegisterHandlers(a.EventBus)
		n++
	}
	return n
}
