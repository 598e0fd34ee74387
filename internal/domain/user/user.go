package user

import (
	"context"

	"github.com/google/uuid"
)

// User is the read-only identity record the booking engine needs for notifications.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Directory looks up users owned by identity management.
// A missing user yields a not-found domain error.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}
