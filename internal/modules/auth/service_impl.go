package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/user"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Claims are the JWT claims issued at login.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

type service struct {
	users  user.Service
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a new auth service signing HS256 tokens with secret.
func NewService(users user.Service, secret string, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{users: users, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *service) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) Register(ctx context.Context, req user.RegisterRequest) (string, *user.User, error) {
	u, err := s.users.RegisterUser(ctx, req)
	if err != nil {
		return "", nil, err
	}
	token, err := s.issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) issue(u *user.User) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: u.Email,
		Role:  string(u.Role),
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (s *service) Parse(tokenString string) (*requestctx.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role := requestctx.Role(claims.Role)
	if role != requestctx.RoleAdmin {
		role = requestctx.RoleCustomer
	}
	return &requestctx.Principal{UserID: id, Email: claims.Email, Role: role}, nil
}
