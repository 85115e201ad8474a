package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
	"github.com/georgemunganga/bijoux-shop/internal/platform/textutil"
)

const minPasswordLength = 8

// ErrInvalidCredentials is returned for an unknown e-mail or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type service struct {
	repo Repository
	cost int
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *service) RegisterUser(ctx context.Context, req RegisterRequest) (*User, error) {
	email := textutil.NormalizeEmail(req.Email)
	if !textutil.ValidEmail(email) {
		return nil, fmt.Errorf("%w: e-mail address", ErrInvalid)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalid, minPasswordLength)
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         requestctx.RoleCustomer,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetUserByEmail(ctx, textutil.NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	email = textutil.NormalizeEmail(email)
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		user, err := s.RegisterUser(ctx, RegisterRequest{Email: email, Password: password})
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetRole(ctx, user.ID.String(), string(requestctx.RoleAdmin)); err != nil {
			return nil, err
		}
		user.Role = requestctx.RoleAdmin
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if existing.Role != requestctx.RoleAdmin {
		if err := s.repo.SetRole(ctx, existing.ID.String(), string(requestctx.RoleAdmin)); err != nil {
			return nil, err
		}
		existing.Role = requestctx.RoleAdmin
	}
	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
		if len(password) < minPasswordLength {
			return nil, fmt.Errorf("%w: admin password too short", ErrInvalid)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, err
		}
		if err := s.repo.SetPassword(ctx, existing.ID.String(), string(hash)); err != nil {
			return nil, err
		}
		existing.PasswordHash = string(hash)
	}
	return existing, nil
}
