package requestctx

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	principalKey
	sessionKey
)

// Role separates storefront customers from back-office staff.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated user attached to a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// IsAdmin reports whether the principal may use the back-office.
func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// WithLogger stores a request-scoped logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request-scoped logger or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// CurrentPrincipal returns nil for anonymous visitors.
func CurrentPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Session is the browser session: a stable guest identifier and a CSRF token.
type Session struct {
	ID        string `json:"id"`
	CSRFToken string `json:"csrf"`
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// CurrentSession returns an empty session when the middleware did not run.
func CurrentSession(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}
