package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/lorrc/taskboard/internal/core/ports"
)

const projectColumns = `id, name, owner_id, created_at, updated_at`

// ProjectRepository is the secondary adapter for project persistence.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// Ensure ProjectRepository implements the ports.ProjectRepository interface.
var _ ports.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository creates a new project repository.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		id        string
		name      string
		ownerID   pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &ownerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &domain.Project{
		ID:        domain.ProjectID(id),
		Name:      name,
		OwnerID:   fromUUID(ownerID),
		CreatedAt: createdAt.Time.UTC(),
		UpdatedAt: fromTimestamptz(updatedAt),
	}, nil
}

// Create persists a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO projects (id, name, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING `+projectColumns,
		project.ID.String(), project.Name, toUUID(project.OwnerID),
	)

	created, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return created, nil
}

// GetByID retrieves a single project by its ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id.String(),
	)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// Update persists the mutable fields of a project.
func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`UPDATE projects SET name = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING `+projectColumns,
		project.ID.String(), project.Name, toTimestamptz(project.UpdatedAt),
	)

	updated, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id domain.ProjectID) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProjectNotFound
	}
	return nil
}
