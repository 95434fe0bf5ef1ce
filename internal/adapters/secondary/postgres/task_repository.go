package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

const taskColumns = `id, project_id, title, description, status, created_by, created_at, updated_at`

// TaskRepository is the secondary adapter for task persistence.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// Ensure TaskRepository implements the ports.TaskRepository interface.
var _ ports.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new task repository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		id          pgtype.UUID
		projectID   string
		title       string
		description pgtype.Text
		status      string
		createdBy   pgtype.UUID
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(&id, &projectID, &title, &description, &status, &createdBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &domain.Task{
		ID:          fromUUID(id),
		ProjectID:   domain.ProjectID(projectID),
		Title:       title,
		Description: fromText(description),
		Status:      domain.TaskStatus(status),
		CreatedBy:   fromUUID(createdBy),
		CreatedAt:   createdAt.Time.UTC(),
		UpdatedAt:   fromTimestamptz(updatedAt),
	}, nil
}

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+taskColumns,
		toUUID(task.ID), task.ProjectID.String(), task.Title, toText(task.Description),
		string(task.Status), toUUID(task.CreatedBy),
	)

	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

// GetByID retrieves a task that belongs to projectID.
func (r *TaskRepository) GetByID(ctx context.Context, projectID domain.ProjectID, id uuid.UUID) (*domain.Task, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 AND id = $2`,
		projectID.String(), toUUID(id),
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// Update persists the mutable fields of a task.
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`UPDATE tasks SET title = $3, description = $4, status = $5, updated_at = $6
		 WHERE project_id = $1 AND id = $2
		 RETURNING `+taskColumns,
		task.ProjectID.String(), toUUID(task.ID), task.Title, toText(task.Description),
		string(task.Status), toTimestamptz(task.UpdatedAt),
	)

	updated, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a single task.
func (r *TaskRepository) Delete(ctx context.Context, projectID domain.ProjectID, id uuid.UUID) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx,
		`DELETE FROM tasks WHERE project_id = $1 AND id = $2`,
		projectID.String(), toUUID(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

// DeleteByProject removes every task of a project and returns how many were deleted.
func (r *TaskRepository) DeleteByProject(ctx context.Context, projectID domain.ProjectID) (int64, error) {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByProject returns the tasks of a project, oldest first.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at, id`,
		projectID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
