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

// TaskService implements business logic for tasks inside a project
type TaskService struct {
	projectRepo ports.ProjectRepository
	taskRepo    ports.TaskRepository
	events      publisher
}

var _ ports.TaskService = (*TaskService)(nil)

// NewTaskService creates a new task service
func NewTaskService(
	projectRepo ports.ProjectRepository,
	taskRepo ports.TaskRepository,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		events:      publisher{broadcaster: broadcaster, logger: logger.With("service", "task")},
	}
}

// CreateTask adds a task to an existing project.
func (s *TaskService) CreateTask(ctx context.Context, params ports.CreateTaskParams) (*domain.Task, error) {
	if err := s.ensureProject(ctx, params.ProjectID); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(domain.TaskParams{
		ProjectID:   params.ProjectID,
		Title:       params.Title,
		Description: params.Description,
		CreatedBy:   params.ActorID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.events.publish(created.ProjectID, domain.EventTaskCreated, domain.NewTaskSnapshot(created))
	return created, nil
}

// UpdateTask applies a partial update to a task.
func (s *TaskService) UpdateTask(ctx context.Context, params ports.UpdateTaskParams) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, params.ProjectID, params.TaskID)
	if err != nil {
		return nil, err
	}

	if err := task.Apply(params.Changes); err != nil {
		return nil, err
	}

	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.events.publish(updated.ProjectID, domain.EventTaskUpdated, domain.NewTaskSnapshot(updated))
	return updated, nil
}

// DeleteTask removes a task from a project.
func (s *TaskService) DeleteTask(ctx context.Context, projectID domain.ProjectID, taskID uuid.UUID) error {
	task, err := s.taskRepo.GetByID(ctx, projectID, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, projectID, taskID); err != nil {
		return err
	}

	s.events.publish(projectID, domain.EventTaskDeleted, domain.NewTaskSnapshot(task))
	return nil
}

// ListTasks returns the tasks of a project, oldest first.
func (s *TaskService) ListTasks(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListByProject(ctx, projectID)
}

func (s *TaskService) ensureProject(ctx context.Context, projectID domain.ProjectID) error {
	if projectID == "" {
		return apperrors.ErrProjectIDRequired
	}
	_, err := s.projectRepo.GetByID(ctx, projectID)
	return err
}
