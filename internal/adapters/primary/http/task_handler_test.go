package http

import (
	"encoding/json"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

func testTask(projectID domain.ProjectID, createdBy uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		ProjectID: projectID,
		Title:     "Write docs",
		Status:    domain.TaskTodo,
		CreatedBy: createdBy,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestTaskHandler_List(t *testing.T) {
	env := newTestEnv(t)

	tasks := []*domain.Task{testTask("p1", env.userID), testTask("p1", env.userID)}
	env.tasks.On("ListTasks", mock.Anything, domain.ProjectID("p1")).Return(tasks, nil).Once()

	resp, body := env.do(t, stdhttp.MethodGet, "/api/v1/projects/p1/tasks", nil)

	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	var list ListResponse[TaskDTO]
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, tasks[0].ID.String(), list.Data[0].ID)
	assert.Equal(t, "p1", list.Data[0].ProjectID)
	assert.Equal(t, "TODO", list.Data[0].Status)
}

func TestTaskHandler_ListUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	env.tasks.On("ListTasks", mock.Anything, domain.ProjectID("nope")).
		Return(nil, apperrors.ErrProjectNotFound).Once()

	resp, _ := env.do(t, stdhttp.MethodGet, "/api/v1/projects/nope/tasks", nil)

	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)
}

func TestTaskHandler_Create(t *testing.T) {
	env := newTestEnv(t)

	created := testTask("p1", env.userID)
	env.tasks.On("CreateTask", mock.Anything, ports.CreateTaskParams{
		ProjectID:   "p1",
		Title:       "Write docs",
		Description: "for the API",
		ActorID:     env.userID,
	}).Return(created, nil).Once()

	resp, body := env.do(t, stdhttp.MethodPost, "/api/v1/projects/p1/tasks", map[string]string{
		"title":       "Write docs",
		"description": "for the API",
	})

	require.Equal(t, stdhttp.StatusCreated, resp.StatusCode, string(body))
	var dto TaskDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Equal(t, created.ID.String(), dto.ID)
	assert.Equal(t, env.userID.String(), dto.CreatedBy)
	env.tasks.AssertExpectations(t)
}

func TestTaskHandler_CreateRequiresTitle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, stdhttp.MethodPost, "/api/v1/projects/p1/tasks", map[string]string{"description": "x"})

	assert.Equal(t, stdhttp.StatusUnprocessableEntity, resp.StatusCode)
	var errResp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Contains(t, errResp.Fields, "title")
	env.tasks.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestTaskHandler_Update(t *testing.T) {
	env := newTestEnv(t)
	taskID := uuid.New()

	t.Run("changes status", func(t *testing.T) {
		updated := testTask("p1", env.userID)
		updated.ID = taskID
		updated.Status = domain.TaskDone

		env.tasks.On("UpdateTask", mock.Anything, mock.MatchedBy(func(p ports.UpdateTaskParams) bool {
			return p.ProjectID == "p1" && p.TaskID == taskID &&
				p.Changes.Status != nil && *p.Changes.Status == domain.TaskDone &&
				p.Changes.Title == nil && p.Changes.Description == nil
		})).Return(updated, nil).Once()

		resp, body := env.do(t, stdhttp.MethodPatch, "/api/v1/projects/p1/tasks/"+taskID.String(),
			map[string]string{"status": "DONE"})

		require.Equal(t, stdhttp.StatusOK, resp.StatusCode, string(body))
		var dto TaskDTO
		require.NoError(t, json.Unmarshal(body, &dto))
		assert.Equal(t, "DONE", dto.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		resp, body := env.do(t, stdhttp.MethodPatch, "/api/v1/projects/p1/tasks/"+taskID.String(),
			map[string]string{"status": "BLOCKED"})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, resp.StatusCode)
		var errResp ValidationErrorResponse
		require.NoError(t, json.Unmarshal(body, &errResp))
		assert.Contains(t, errResp.Fields, "status")
	})

	t.Run("rejects empty body", func(t *testing.T) {
		resp, _ := env.do(t, stdhttp.MethodPatch, "/api/v1/projects/p1/tasks/"+taskID.String(), map[string]string{})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("rejects malformed task id", func(t *testing.T) {
		resp, body := env.do(t, stdhttp.MethodPatch, "/api/v1/projects/p1/tasks/42",
			map[string]string{"status": "DONE"})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, string(body), "taskID")
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	taskID := uuid.New()

	env.tasks.On("DeleteTask", mock.Anything, domain.ProjectID("p1"), taskID).Return(nil).Once()
	env.tasks.On("DeleteTask", mock.Anything, domain.ProjectID("p1"), mock.Anything).
		Return(apperrors.ErrTaskNotFound).Once()

	resp, _ := env.do(t, stdhttp.MethodDelete, "/api/v1/projects/p1/tasks/"+taskID.String(), nil)
	assert.Equal(t, stdhttp.StatusNoContent, resp.StatusCode)

	resp, body := env.do(t, stdhttp.MethodDelete, "/api/v1/projects/p1/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "TASK_NOT_FOUND")
}
