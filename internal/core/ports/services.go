package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/taskboard/internal/core/domain"
)

// CredentialVerifier turns a bearer credential into an authenticated identity.
// Implementations may fail for any reason; callers must not distinguish causes.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*domain.Identity, error)
}

// EventBroadcaster is the producer-side port of the broadcast registry.
// Broadcast never reports delivery problems; it only fails when the event
// itself cannot be encoded.
type EventBroadcaster interface {
	Broadcast(projectID domain.ProjectID, event any) error
}

// ProjectCloser ends every open subscription of a project.
type ProjectCloser interface {
	CloseProject(projectID domain.ProjectID) int
}

// Sink is the write capability of a single subscriber connection.
// Each call carries exactly one encoded frame.
type Sink interface {
	Send(frame []byte) error
}

// CreateProjectParams defines the input for creating a project.
type CreateProjectParams struct {
	Name    string
	OwnerID uuid.UUID
}

// RenameProjectParams defines the input for renaming a project.
type RenameProjectParams struct {
	ProjectID domain.ProjectID
	Name      string
	ActorID   uuid.UUID
}

// CreateTaskParams defines the input for creating a task.
type CreateTaskParams struct {
	ProjectID   domain.ProjectID
	Title       string
	Description string
	ActorID     uuid.UUID
}

// UpdateTaskParams defines the input for a partial task update.
type UpdateTaskParams struct {
	ProjectID domain.ProjectID
	TaskID    uuid.UUID
	Changes   domain.TaskChanges
}

// ProjectService defines the project use cases.
type ProjectService interface {
	CreateProject(ctx context.Context, params CreateProjectParams) (*domain.Project, error)
	GetProject(ctx context.Context, projectID domain.ProjectID) (*domain.Project, error)
	RenameProject(ctx context.Context, params RenameProjectParams) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID domain.ProjectID, actorID uuid.UUID) error
}

// TaskService defines the task use cases.
type TaskService interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error)
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*domain.Task, error)
	DeleteTask(ctx context.Context, projectID domain.ProjectID, taskID uuid.UUID) error
	ListTasks(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
