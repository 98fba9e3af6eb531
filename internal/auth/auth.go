package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingFields      = errors.New("username and password are required")
)

type Authenticator struct {
	users  UserStore
	hasher Hasher
}

func NewAuthenticator(users UserStore, hasher Hasher) *Authenticator {
	return &Authenticator{users: users, hasher: hasher}
}

func (a *Authenticator) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingFields
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return err
	}

	if err := a.users.Create(ctx, username, hash); err != nil {
		if errors.Is(err, ErrUserExists) {
			return err
		}
		return fmt.Errorf("error registering user: %w", err)
	}
	return nil
}

func (a *Authenticator) Login(ctx context.Context, username, password string) error {
	hash, ok, err := a.users.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("error loading credentials: %w", err)
	}
	if !ok || !a.hasher.Verify(hash, password) {
		return ErrInvalidCredentials
	}
	return nil
}
