package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// User is a shop account: a customer, or an admin of the back-office.
type User struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	FirstName    string          `json:"first_name,omitempty"`
	LastName     string          `json:"last_name,omitempty"`
	Role         requestctx.Role `json:"role"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DisplayName is the first name, or the e-mail address when unknown.
func (u *User) DisplayName() string {
	if n := strings.TrimSpace(u.FirstName); n != "" {
		return n
	}
	return u.Email
}

// RegisterRequest holds the sign-up form.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
