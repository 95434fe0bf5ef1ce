package domain

import "time"

// ProjectSnapshot is the event data shape for projects.
type ProjectSnapshot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OwnerID   string  `json:"ownerId"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
}

// TaskSnapshot is the event data shape for tasks.
type TaskSnapshot struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"projectId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"createdBy"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

// NewProjectSnapshot builds a project snapshot from a domain project.
func NewProjectSnapshot(project *Project) ProjectSnapshot {
	return ProjectSnapshot{
		ID:        project.ID.String(),
		Name:      project.Name,
		OwnerID:   project.OwnerID.String(),
		CreatedAt: project.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: formatOptionalTime(project.UpdatedAt),
	}
}

// NewTaskSnapshot builds a task snapshot from a domain task.
func NewTaskSnapshot(task *Task) TaskSnapshot {
	return TaskSnapshot{
		ID:          task.ID.String(),
		ProjectID:   task.ProjectID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		CreatedBy:   task.CreatedBy.String(),
		CreatedAt:   task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   formatOptionalTime(task.UpdatedAt),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}
