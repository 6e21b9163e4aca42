package users

import (
	"context"
	"errors"
)

// ErrNotFound indicates no profile exists for the requested user ID.
var ErrNotFound = errors.New("user not found")

// Repo persists user profiles keyed by the OAuth subject ("google:<sub>").
type Repo interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
}
