package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// ProjectService implements business logic for project management
type ProjectService struct {
	projectRepo ports.ProjectRepository
	taskRepo    ports.TaskRepository
	txManager   ports.TransactionManager
	closer      ports.ProjectCloser
	events      publisher
	logger      *slog.Logger
}

var _ ports.ProjectService = (*ProjectService)(nil)

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo ports.ProjectRepository,
	taskRepo ports.TaskRepository,
	txManager ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	closer ports.ProjectCloser,
	logger *slog.Logger,
) *ProjectService {
	logger = logger.With("service", "project")
	return &ProjectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		txManager:   txManager,
		closer:      closer,
		events:      publisher{broadcaster: broadcaster, logger: logger},
		logger:      logger,
	}
}

// CreateProject creates a project owned by the caller.
func (s *ProjectService) CreateProject(ctx context.Context, params ports.CreateProjectParams) (*domain.Project, error) {
	project, err := domain.NewProject(params.Name, params.OwnerID)
	if err != nil {
		return nil, err
	}

	created, err := s.projectRepo.Create(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.events.publish(created.ID, domain.EventProjectCreated, domain.NewProjectSnapshot(created))
	return created, nil
}

// GetProject retrieves a project by ID.
func (s *ProjectService) GetProject(ctx context.Context, projectID domain.ProjectID) (*domain.Project, error) {
	if projectID == "" {
		return nil, apperrors.ErrProjectIDRequired
	}
	return s.projectRepo.GetByID(ctx, projectID)
}

// RenameProject renames a project. Only the owner may rename it.
func (s *ProjectService) RenameProject(ctx context.Context, params ports.RenameProjectParams) (*domain.Project, error) {
	project, err := s.GetProject(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != params.ActorID {
		return nil, apperrors.ErrForbidden
	}

	if err := project.Rename(params.Name); err != nil {
		return nil, err
	}

	updated, err := s.projectRepo.Update(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.events.publish(updated.ID, domain.EventProjectUpdated, domain.NewProjectSnapshot(updated))
	return updated, nil
}

// DeleteProject removes a project and its tasks in one transaction, notifies
// subscribers and then closes every stream open on the project.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID domain.ProjectID, actorID uuid.UUID) error {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != actorID {
		return apperrors.ErrForbidden
	}

	var removedTasks int64
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := s.taskRepo.DeleteByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		removedTasks = n
		return s.projectRepo.Delete(ctx, projectID)
	})
	if err != nil {
		return err
	}

	s.events.publish(projectID, domain.EventProjectDeleted, domain.NewProjectSnapshot(project))
	closed := s.closer.CloseProject(projectID)

	s.logger.InfoContext(ctx, "project deleted",
		"project_id", projectID,
		"tasks_deleted", removedTasks,
		"streams_closed", closed,
	)
	return nil
}
