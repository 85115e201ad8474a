package user

import "context"

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, req RegisterRequest) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	// Authenticate checks credentials and returns the account.
	Authenticate(ctx context.Context, email, password string) (*User, error)
	// EnsureAdmin creates the admin account, or promotes and re-keys an
	// existing account with that e-mail.
	EnsureAdmin(ctx context.Context, email, password string) (*User, error)
}
