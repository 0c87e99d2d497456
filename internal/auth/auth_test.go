package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Pages/internal/domain"
)

type stubUsers struct {
	users map[domain.UserID]*domain.User
}

func (s *stubUsers) UserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("no such user")
}

func newStub(ids ...string) *stubUsers {
	s := &stubUsers{users: make(map[domain.UserID]*domain.User)}
	for _, id := range ids {
		s.users[domain.UserID(id)] = &domain.User{ID: domain.UserID(id), Name: id, Color: "#3cb44b"}
	}
	return s
}

func TestIssueAndAuthenticate(t *testing.T) {
	svc := NewService("test-secret", time.Hour, newStub("alice"))

	token, err := svc.IssueToken("alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	user, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != "alice" {
		t.Errorf("expected alice, got %s", user.ID)
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour, newStub())
	if _, err := svc.Authenticate(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestAuthenticateGarbageToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour, newStub("alice"))
	if _, err := svc.Authenticate(context.Background(), "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour, newStub("alice"))
	verifier := NewService("secret-b", time.Hour, newStub("alice"))

	token, err := issuer.IssueToken("alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := verifier.Authenticate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, newStub("alice"))

	token, err := svc.IssueToken("alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := NewService("test-secret", time.Hour, newStub())

	token, err := svc.IssueToken("ghost")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}
