package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/taskboard/internal/core/domain"
)

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) (*domain.Project, error)
	GetByID(ctx context.Context, id domain.ProjectID) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, id domain.ProjectID) error
}

// TaskRepository persists tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	GetByID(ctx context.Context, projectID domain.ProjectID, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, projectID domain.ProjectID, id uuid.UUID) error
	DeleteByProject(ctx context.Context, projectID domain.ProjectID) (int64, error)
	ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error)
}
