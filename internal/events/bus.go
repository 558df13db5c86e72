// Package events re-exports the platform event bus and declares the domain
// events exchanged between the pipeline, notification and scheduler modules.
package events

import (
	platformevents "pipeline_backend/platform/events"
	"pipeline_backend/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
