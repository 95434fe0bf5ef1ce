package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/taskboard/internal/core/errors"
)

// MaxProjectNameLength bounds project names.
const MaxProjectNameLength = 120

// ProjectID identifies a project. It is opaque: the only operation relied upon is equality.
type ProjectID string

func (id ProjectID) String() string {
	return string(id)
}

// Project groups tasks and is the unit of event fan-out.
type Project struct {
	ID        ProjectID
	Name      string
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NewProject validates the name and builds a project owned by ownerID with a fresh ID.
func NewProject(name string, ownerID uuid.UUID) (*Project, error) {
	name = strings.TrimSpace(name)
	if err := validateProjectName(name); err != nil {
		return nil, err
	}
	if ownerID == uuid.Nil {
		return nil, apperrors.ErrOwnerRequired
	}

	return &Project{
		ID:      ProjectID(uuid.NewString()),
		Name:    name,
		OwnerID: ownerID,
	}, nil
}

// Rename changes the project name after validating it.
func (p *Project) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateProjectName(name); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.Name = name
	p.UpdatedAt = &now
	return nil
}

func validateProjectName(name string) error {
	if name == "" {
		return apperrors.ErrProjectNameRequired
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLength {
		return apperrors.ErrProjectNameTooLong
	}
	return nil
}
