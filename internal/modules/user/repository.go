package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("an account already exists for this e-mail")
	ErrInvalid    = errors.New("invalid registration")
)

// Repository defines user data storage.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	SetRole(ctx context.Context, id string, role string) error
	SetPassword(ctx context.Context, id string, hash string) error
}
