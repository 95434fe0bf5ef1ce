package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/taskboard/internal/core/errors"
)

// Task field limits
const (
	MaxTaskTitleLength       = 255
	MaxTaskDescriptionLength = 5000
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Task is a unit of work inside a project.
type Task struct {
	ID          uuid.UUID
	ProjectID   ProjectID
	Title       string
	Description string
	Status      TaskStatus
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// TaskParams holds the input for NewTask.
type TaskParams struct {
	ProjectID   ProjectID
	Title       string
	Description string
	CreatedBy   uuid.UUID
}

// NewTask validates params and returns a task in the TODO state.
func NewTask(params TaskParams) (*Task, error) {
	if params.ProjectID == "" {
		return nil, apperrors.ErrProjectIDRequired
	}
	title := strings.TrimSpace(params.Title)
	if err := validateTaskTitle(title); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(params.Description) > MaxTaskDescriptionLength {
		return nil, apperrors.ErrTaskDescriptionTooLong
	}

	return &Task{
		ID:          uuid.New(),
		ProjectID:   params.ProjectID,
		Title:       title,
		Description: params.Description,
		Status:      TaskTodo,
		CreatedBy:   params.CreatedBy,
	}, nil
}

// TaskChanges describes a partial update; nil fields are left untouched.
type TaskChanges struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// Apply validates and applies changes to the task.
func (t *Task) Apply(changes TaskChanges) error {
	if changes.Title != nil {
		title := strings.TrimSpace(*changes.Title)
		if err := validateTaskTitle(title); err != nil {
			return err
		}
		t.Title = title
	}
	if changes.Description != nil {
		if utf8.RuneCountInString(*changes.Description) > MaxTaskDescriptionLength {
			return apperrors.ErrTaskDescriptionTooLong
		}
		t.Description = *changes.Description
	}
	if changes.Status != nil {
		if !changes.Status.IsValid() {
			return apperrors.ErrInvalidTaskStatus
		}
		t.Status = *changes.Status
	}

	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

func validateTaskTitle(title string) error {
	if title == "" {
		return apperrors.ErrTaskTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTaskTitleLength {
		return apperrors.ErrTaskTitleTooLong
	}
	return nil
}
