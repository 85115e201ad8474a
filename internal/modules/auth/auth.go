package auth

import (
	"context"
	"errors"

	"github.com/georgemunganga/bijoux-shop/internal/modules/user"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// CookieName is the cookie holding the signed session token.
const CookieName = "bijoux_auth"

var ErrInvalidToken = errors.New("invalid or expired token")

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login checks credentials and returns a signed token for the account.
	Login(ctx context.Context, email, password string) (string, *user.User, error)
	// Register creates a customer account and signs it in.
	Register(ctx context.Context, req user.RegisterRequest) (string, *user.User, error)
	// Parse verifies a token and returns the principal it was issued for.
	Parse(token string) (*requestctx.Principal, error)
}
