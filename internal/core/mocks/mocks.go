package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/taskboard/internal/core/domain"
	"github.com/lorrc/taskboard/internal/core/ports"
)

// MockProjectRepository is a mock implementation of ports.ProjectRepository.
// Create and Update also accept a func(ctx, *domain.Project) *domain.Project
// as return value, which is called with the argument.
type MockProjectRepository struct {
	mock.Mock
}

var _ ports.ProjectRepository = (*MockProjectRepository)(nil)

func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{}
}

func (m *MockProjectRepository) Create(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	args := m.Called(ctx, project)
	if fn, ok := args.Get(0).(func(context.Context, *domain.Project) *domain.Project); ok {
		return fn(ctx, project), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	args := m.Called(ctx, project)
	if fn, ok := args.Get(0).(func(context.Context, *domain.Project) *domain.Project); ok {
		return fn(ctx, project), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id domain.ProjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTaskRepository is a mock implementation of ports.TaskRepository.
// Create and Update accept a func return value like MockProjectRepository.
type MockTaskRepository struct {
	mock.Mock
}

var _ ports.TaskRepository = (*MockTaskRepository)(nil)

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{}
}

func (m *MockTaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, task)
	if fn, ok := args.Get(0).(func(context.Context, *domain.Task) *domain.Task); ok {
		return fn(ctx, task), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, projectID domain.ProjectID, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, projectID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, task)
	if fn, ok := args.Get(0).(func(context.Context, *domain.Task) *domain.Task); ok {
		return fn(ctx, task), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, projectID domain.ProjectID, id uuid.UUID) error {
	args := m.Called(ctx, projectID, id)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteByProject(ctx context.Context, projectID domain.ProjectID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Task), args.Error(1)
}

// MockTransactionManager runs the function inline, without a database.
type MockTransactionManager struct {
	mock.Mock
}

var _ ports.TransactionManager = (*MockTransactionManager)(nil)

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster.
// It also records every event it receives, in order.
type MockEventBroadcaster struct {
	mock.Mock

	mu     sync.Mutex
	events []domain.Event
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(projectID domain.ProjectID, event any) error {
	if e, ok := event.(domain.Event); ok {
		m.mu.Lock()
		m.events = append(m.events, e)
		m.mu.Unlock()
	}
	args := m.Called(projectID, event)
	return args.Error(0)
}

// Events returns a copy of the recorded events.
func (m *MockEventBroadcaster) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

// MockProjectCloser is a mock implementation of ports.ProjectCloser
type MockProjectCloser struct {
	mock.Mock
}

var _ ports.ProjectCloser = (*MockProjectCloser)(nil)

func NewMockProjectCloser() *MockProjectCloser {
	return &MockProjectCloser{}
}

func (m *MockProjectCloser) CloseProject(projectID domain.ProjectID) int {
	args := m.Called(projectID)
	return args.Int(0)
}

// MockProjectService is a mock implementation of ports.ProjectService
type MockProjectService struct {
	mock.Mock
}

var _ ports.ProjectService = (*MockProjectService)(nil)

func NewMockProjectService() *MockProjectService {
	return &MockProjectService{}
}

func (m *MockProjectService) CreateProject(ctx context.Context, params ports.CreateProjectParams) (*domain.Project, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) GetProject(ctx context.Context, projectID domain.ProjectID) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) RenameProject(ctx context.Context, params ports.RenameProjectParams) (*domain.Project, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, projectID domain.ProjectID, actorID uuid.UUID) error {
	args := m.Called(ctx, projectID, actorID)
	return args.Error(0)
}

// MockTaskService is a mock implementation of ports.TaskService
type MockTaskService struct {
	mock.Mock
}

var _ ports.TaskService = (*MockTaskService)(nil)

func NewMockTaskService() *MockTaskService {
	return &MockTaskService{}
}

func (m *MockTaskService) CreateTask(ctx context.Context, params ports.CreateTaskParams) (*domain.Task, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, params ports.UpdateTaskParams) (*domain.Task, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, projectID domain.ProjectID, taskID uuid.UUID) error {
	args := m.Called(ctx, projectID, taskID)
	return args.Error(0)
}

func (m *MockTaskService) ListTasks(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Task), args.Error(1)
}
