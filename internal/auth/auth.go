// Package auth issues and validates the bearer tokens that gate every
// connection. A token carries only the userId; the live identity is
// fetched from the user source on every authentication.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/Pages/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("unknown user")
)

// UserSource resolves a userId to a live identity. Backed by the
// persistence store in production, by a stub in tests.
type UserSource interface {
	UserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
	users  UserSource
}

func NewService(secret string, ttl time.Duration, users UserSource) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, users: users}
}

// IssueToken mints an HS256 token for the user, valid for the
// configured ttl.
func (s *Service) IssueToken(uid domain.UserID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: string(uid),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(uid),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates the token and resolves the user behind it.
// Any failure is terminal for the connection attempt: no registry entry
// is created and the transport is closed by the caller.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.UserByID(ctx, domain.UserID(claims.UserID))
	if err != nil || user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}
