package domain

// EventType names a project event.
type EventType string

const (
	EventProjectCreated EventType = "project_created"
	EventProjectUpdated EventType = "project_updated"
	EventProjectDeleted EventType = "project_deleted"
	EventTaskCreated    EventType = "task_created"
	EventTaskUpdated    EventType = "task_updated"
	EventTaskDeleted    EventType = "task_deleted"
)

// Event is the payload pushed to project subscribers. The target project is
// passed alongside it to the broadcaster and is not part of the payload.
type Event struct {
	Type EventType `json:"type"`
	ID   string    `json:"id"`
	Data any       `json:"data,omitempty"`
}
