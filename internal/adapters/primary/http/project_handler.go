package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/taskboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/taskboard/internal/adapters/primary/validation"
	"github.com/lorrc/taskboard/internal/core/domain"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// ProjectHandler handles HTTP requests for projects
type ProjectHandler struct {
	projectService ports.ProjectService
	taskHandler    *TaskHandler
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(
	projectService ports.ProjectService,
	taskHandler *TaskHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		taskHandler:    taskHandler,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "project"),
	}
}

// Router sets up a new chi Router for all project-related routes.
func (h *ProjectHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all project endpoints.
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateProject)

	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", h.HandleGetProject)
		r.Patch("/", h.HandleRenameProject)
		r.Delete("/", h.HandleDeleteProject)

		// Mount the task routes nested under /projects/{projectID}
		if h.taskHandler != nil {
			r.Mount("/tasks", h.taskHandler.Router())
		}
	})
}

// --- Request/Response DTOs ---

// ProjectRequest defines the JSON body for creating or renaming a project
type ProjectRequest struct {
	Name string `json:"name"`
}

// Validate validates the project request
func (r *ProjectRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxProjectNameLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ProjectDTO defines the JSON response for projects.
type ProjectDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OwnerID   string  `json:"ownerId"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
}

func toProjectDTO(project *domain.Project) ProjectDTO {
	var updatedAt *string
	if project.UpdatedAt != nil {
		value := project.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return ProjectDTO{
		ID:        project.ID.String(),
		Name:      project.Name,
		OwnerID:   project.OwnerID.String(),
		CreatedAt: project.CreatedAt.Format(time.RFC3339),
		UpdatedAt: updatedAt,
	}
}

// --- Handlers ---

// HandleCreateProject handles POST /projects
func (h *ProjectHandler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[ProjectRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), ports.CreateProjectParams{
		Name:    req.Name,
		OwnerID: identity.UserID,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "project created", "project_id", project.ID)

	WriteCreated(w, toProjectDTO(project))
}

// HandleGetProject handles GET /projects/{projectID}
func (h *ProjectHandler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projectService.GetProject(r.Context(), projectIDParam(r))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toProjectDTO(project))
}

// HandleRenameProject handles PATCH /projects/{projectID}
func (h *ProjectHandler) HandleRenameProject(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[ProjectRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	project, err := h.projectService.RenameProject(r.Context(), ports.RenameProjectParams{
		ProjectID: projectIDParam(r),
		Name:      req.Name,
		ActorID:   identity.UserID,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toProjectDTO(project))
}

// HandleDeleteProject handles DELETE /projects/{projectID}
func (h *ProjectHandler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	projectID := projectIDParam(r)
	if HandleError(w, r, h.projectService.DeleteProject(r.Context(), projectID, identity.UserID), h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "project deleted", "project_id", projectID)

	WriteNoContent(w)
}

// --- Helpers ---

// requireIdentity extracts the authenticated identity from the request context
func requireIdentity(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	identity, ok := mw.IdentityFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHENTICATED",
		})
		return nil, false
	}
	return identity, true
}

func projectIDParam(r *http.Request) domain.ProjectID {
	return domain.ProjectID(chi.URLParam(r, "projectID"))
}
