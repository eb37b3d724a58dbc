package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardvault/card-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthEnv(t *testing.T) (*AuthService, *memStore, *memAuditStore) {
	t.Helper()
	store := newMemStore()
	audit := &memAuditStore{}
	clock := newFixedClock(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	auditSvc := NewAuditService(audit, clock, discardLogger())
	return NewAuthService(store, auditSvc, clock, discardLogger(), "test-secret"), store, audit
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, store, audit := newAuthEnv(t)

	user, err := svc.Register(context.Background(), RequestMeta{}, "alice", "alice@example.com", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if user.PasswordHash == "hunter2" || user.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
	if user.Role != models.RoleUser {
		t.Errorf("role = %s, want USER", user.Role)
	}

	stored, err := store.FindUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID != user.ID {
		t.Errorf("stored id = %d, want %d", stored.ID, user.ID)
	}
	if got := len(audit.byAction(models.ActionUserRegistered)); got != 1 {
		t.Errorf("USER_REGISTERED audit entries = %d, want 1", got)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	if _, err := svc.Register(context.Background(), RequestMeta{}, "alice", "alice@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	token, err := svc.Login(context.Background(), RequestMeta{}, "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub != "1" {
		t.Fatalf("subject = %q, want 1", sub)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	if _, err := svc.Register(context.Background(), RequestMeta{}, "alice", "alice@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(context.Background(), RequestMeta{}, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), RequestMeta{}, "nobody", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: want ErrInvalidCredentials, got %v", err)
	}
}
