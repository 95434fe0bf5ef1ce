package domain

import "github.com/google/uuid"

// Identity is the authenticated caller of a stream or API request.
type Identity struct {
	UserID uuid.UUID
	Role   string
}
