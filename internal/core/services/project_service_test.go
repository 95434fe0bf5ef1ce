package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/mocks"
	"github.com/lorrc/taskboard/internal/core/ports"
	"github.com/lorrc/taskboard/internal/core/services"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type projectFixture struct {
	projects    *mocks.MockProjectRepository
	tasks       *mocks.MockTaskRepository
	tx          *mocks.MockTransactionManager
	broadcaster *mocks.MockEventBroadcaster
	closer      *mocks.MockProjectCloser
	svc         *services.ProjectService
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{
		projects:    mocks.NewMockProjectRepository(),
		tasks:       mocks.NewMockTaskRepository(),
		tx:          mocks.NewMockTransactionManager(),
		broadcaster: mocks.NewMockEventBroadcaster(),
		closer:      mocks.NewMockProjectCloser(),
	}
	f.svc = services.NewProjectService(f.projects, f.tasks, f.tx, f.broadcaster, f.closer, discardLogger)
	return f
}

func existingProject(owner uuid.UUID) *domain.Project {
	return &domain.Project{
		ID:        domain.ProjectID("p1"),
		Name:      "Board",
		OwnerID:   owner,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestProjectService_CreateProject(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("success broadcasts project_created", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Create", ctx, mock.AnythingOfType("*domain.Project")).
			Return(func(_ context.Context, p *domain.Project) *domain.Project {
				p.CreatedAt = time.Now()
				return p
			}, nil)
		f.broadcaster.On("Broadcast", mock.Anything, mock.Anything).Return(nil)

		project, err := f.svc.CreateProject(ctx, ports.CreateProjectParams{Name: "  Board  ", OwnerID: owner})

		require.NoError(t, err)
		assert.Equal(t, "Board", project.Name)
		assert.NotEmpty(t, project.ID)

		events := f.broadcaster.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventProjectCreated, events[0].Type)
		assert.NotEmpty(t, events[0].ID)
		f.broadcaster.AssertCalled(t, "Broadcast", project.ID, mock.Anything)
	})

	t.Run("validation error for empty name", func(t *testing.T) {
		f := newProjectFixture()

		project, err := f.svc.CreateProject(ctx, ports.CreateProjectParams{Name: " ", OwnerID: owner})

		assert.Nil(t, project)
		assert.ErrorIs(t, err, apperrors.ErrProjectNameRequired)
		f.projects.AssertNotCalled(t, "Create")
		f.broadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("broadcast failure does not fail the mutation", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Create", ctx, mock.AnythingOfType("*domain.Project")).
			Return(existingProject(owner), nil)
		f.broadcaster.On("Broadcast", mock.Anything, mock.Anything).Return(errors.New("encode failed"))

		project, err := f.svc.CreateProject(ctx, ports.CreateProjectParams{Name: "Board", OwnerID: owner})

		require.NoError(t, err)
		assert.NotNil(t, project)
	})
}

func TestProjectService_RenameProject(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("owner can rename", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", ctx, domain.ProjectID("p1")).Return(existingProject(owner), nil)
		f.projects.On("Update", ctx, mock.AnythingOfType("*domain.Project")).
			Return(func(_ context.Context, p *domain.Project) *domain.Project { return p }, nil)
		f.broadcaster.On("Broadcast", domain.ProjectID("p1"), mock.Anything).Return(nil)

		project, err := f.svc.RenameProject(ctx, ports.RenameProjectParams{
			ProjectID: "p1",
			Name:      "Roadmap",
			ActorID:   owner,
		})

		require.NoError(t, err)
		assert.Equal(t, "Roadmap", project.Name)
		events := f.broadcaster.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventProjectUpdated, events[0].Type)
		snapshot, ok := events[0].Data.(domain.ProjectSnapshot)
		require.True(t, ok)
		assert.Equal(t, "Roadmap", snapshot.Name)
	})

	t.Run("forbidden for non-owner", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", ctx, domain.ProjectID("p1")).Return(existingProject(owner), nil)

		project, err := f.svc.RenameProject(ctx, ports.RenameProjectParams{
			ProjectID: "p1",
			Name:      "Roadmap",
			ActorID:   uuid.New(),
		})

		assert.Nil(t, project)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.projects.AssertNotCalled(t, "Update")
	})

	t.Run("not found", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", ctx, domain.ProjectID("missing")).Return(nil, apperrors.ErrProjectNotFound)

		_, err := f.svc.RenameProject(ctx, ports.RenameProjectParams{ProjectID: "missing", Name: "x", ActorID: owner})
		assert.ErrorIs(t, err, apperrors.ErrProjectNotFound)
	})
}

func TestProjectService_DeleteProject(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("deletes in a transaction then closes streams", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", ctx, domain.ProjectID("p1")).Return(existingProject(owner), nil)
		f.tx.On("WithTransaction", ctx).Return()
		f.tasks.On("DeleteByProject", ctx, domain.ProjectID("p1")).Return(int64(3), nil)
		f.projects.On("Delete", ctx, domain.ProjectID("p1")).Return(nil)
		f.broadcaster.On("Broadcast", domain.ProjectID("p1"), mock.Anything).Return(nil)
		f.closer.On("CloseProject", domain.ProjectID("p1")).Return(2)

		require.NoError(t, f.svc.DeleteProject(ctx, "p1", owner))

		events := f.broadcaster.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventProjectDeleted, events[0].Type)
		f.tx.AssertExpectations(t)
		f.tasks.AssertExpectations(t)
		f.closer.AssertExpectations(t)
	})

	t.Run("failed transaction leaves streams open", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", ctx, domain.ProjectID("p1")).Return(existingProject(owner), nil)
		f.tx.On("WithTransaction", ctx).Return()
		f.tasks.On("DeleteByProject", ctx, domain.ProjectID("p1")).Return(int64(0), errors.New("db down"))

		err := f.svc.DeleteProject(ctx, "p1", owner)

		assert.Error(t, err)
		f.projects.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
		f.closer.AssertNotCalled(t, "CloseProject", mock.Anything)
	})

	t.Run("forbidden for non-owner", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", ctx, domain.ProjectID("p1")).Return(existingProject(owner), nil)

		err := f.svc.DeleteProject(ctx, "p1", uuid.New())

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)
	})
}
