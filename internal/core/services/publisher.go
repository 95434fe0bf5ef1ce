package services

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/taskboard/internal/core/domain"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// publisher pushes change events for a project to its subscribers.
type publisher struct {
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

// publish never fails the caller's mutation; an encoding failure is only logged.
func (p publisher) publish(projectID domain.ProjectID, eventType domain.EventType, data any) {
	event := domain.Event{
		Type: eventType,
		ID:   uuid.NewString(),
		Data: data,
	}
	if err := p.broadcaster.Broadcast(projectID, event); err != nil {
		p.logger.Error("failed to broadcast event",
			"project_id", projectID,
			"event_type", eventType,
			"error", err,
		)
	}
}
