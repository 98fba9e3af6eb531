package auth

import (
	"context"
	"errors"
)

var ErrUserExists = errors.New("username already exists")

type UserStore interface {
	// Get returns the stored password hash for username. ok is false if the
	// user is not registered.
	Get(ctx context.Context, username string) (hash string, ok bool, err error)

	Create(ctx context.Context, username, hash string) error
}
