package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lorrc/taskboard/internal/adapters/primary/validation"
	"github.com/lorrc/taskboard/internal/core/domain"
	"github.com/lorrc/taskboard/internal/core/ports"
)

var taskStatuses = []string{
	string(domain.TaskTodo),
	string(domain.TaskInProgress),
	string(domain.TaskDone),
}

// TaskHandler handles HTTP requests for the tasks of a project
type TaskHandler struct {
	taskService  ports.TaskService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, errorHandler *ErrorHandler, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:  taskService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "task"),
	}
}

// Router sets up a new chi Router for task routes. It expects to be mounted
// below a route carrying the projectID URL parameter.
func (h *TaskHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.HandleListTasks)
	r.Post("/", h.HandleCreateTask)
	r.Patch("/{taskID}", h.HandleUpdateTask)
	r.Delete("/{taskID}", h.HandleDeleteTask)
	return r
}

// --- Request/Response DTOs ---

// CreateTaskRequest defines the expected JSON body for creating a task
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate validates the create task request
func (r *CreateTaskRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTaskTitleLength)

	v.MaxLength("description", r.Description, domain.MaxTaskDescriptionLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateTaskRequest defines the JSON body for a partial task update.
// Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Validate validates the update task request
func (r *UpdateTaskRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title == nil && r.Description == nil && r.Status == nil {
		v.Custom("body", false, "At least one field must be provided")
	}
	if r.Title != nil {
		v.Required("title", *r.Title).
			MaxLength("title", *r.Title, domain.MaxTaskTitleLength)
	}
	if r.Description != nil {
		v.MaxLength("description", *r.Description, domain.MaxTaskDescriptionLength)
	}
	if r.Status != nil {
		v.Required("status", *r.Status).
			OneOf("status", *r.Status, taskStatuses)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

func (r *UpdateTaskRequest) changes() domain.TaskChanges {
	changes := domain.TaskChanges{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		changes.Status = &status
	}
	return changes
}

// TaskDTO defines the JSON response for tasks.
type TaskDTO struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"projectId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"createdBy"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

func toTaskDTO(task *domain.Task) TaskDTO {
	var updatedAt *string
	if task.UpdatedAt != nil {
		value := task.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return TaskDTO{
		ID:          task.ID.String(),
		ProjectID:   task.ProjectID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		CreatedBy:   task.CreatedBy.String(),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   updatedAt,
	}
}

func toTaskDTOs(tasks []*domain.Task) []TaskDTO {
	response := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, toTaskDTO(task))
	}
	return response
}

// --- Handlers ---

// HandleListTasks handles GET /projects/{projectID}/tasks
func (h *TaskHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListTasks(r.Context(), projectIDParam(r))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toTaskDTOs(tasks))
}

// HandleCreateTask handles POST /projects/{projectID}/tasks
func (h *TaskHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[CreateTaskRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), ports.CreateTaskParams{
		ProjectID:   projectIDParam(r),
		Title:       req.Title,
		Description: req.Description,
		ActorID:     identity.UserID,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "task created",
		"project_id", task.ProjectID,
		"task_id", task.ID,
	)

	WriteCreated(w, toTaskDTO(task))
}

// HandleUpdateTask handles PATCH /projects/{projectID}/tasks/{taskID}
func (h *TaskHandler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	req, err := validation.DecodeJSON[UpdateTaskRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), ports.UpdateTaskParams{
		ProjectID: projectIDParam(r),
		TaskID:    taskID,
		Changes:   req.changes(),
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toTaskDTO(task))
}

// HandleDeleteTask handles DELETE /projects/{projectID}/tasks/{taskID}
func (h *TaskHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDParam(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if HandleError(w, r, h.taskService.DeleteTask(r.Context(), projectIDParam(r), taskID), h.errorHandler) {
		return
	}

	WriteNoContent(w)
}

func taskIDParam(r *http.Request) (uuid.UUID, error) {
	return validation.ParseUUIDParam("taskID", chi.URLParam(r, "taskID"))
}
