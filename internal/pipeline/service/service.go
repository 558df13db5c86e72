// Package service implements the pipeline stage use cases: stage CRUD,
// ordering, deal transitions, statistics and the auto-advance sweep.
package service

import (
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/ports"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/platform/logger"
)

// Service provides business logic for pipeline stages.
type Service struct {
	repo  repository.Repository
	deals ports.DealStore
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new pipeline stage service.
func New(repo repository.Repository, deals ports.DealStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		deals: deals,
		bus:   bus,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}
