package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mmanyinorie/internal/repository"
	"mmanyinorie/internal/validation"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(repository.NewUserRepository(setupTestDB(t)), time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Ada@Example.org ", "correct-horse-1", "Ada Okafor")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "ada@example.org" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}

	if _, err := svc.Register(ctx, "ada@example.org", "correct-horse-1", "Someone Else"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register() error = %v, want ErrEmailTaken", err)
	}

	session, loggedIn, err := svc.Login(ctx, "ADA@example.org", "correct-horse-1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ID != user.ID || session.UserID != user.ID {
		t.Errorf("Login() returned user %s session user %s, want %s", loggedIn.ID, session.UserID, user.ID)
	}

	current, err := svc.ValidateSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if current.ID != user.ID {
		t.Errorf("ValidateSession() user = %s", current.ID)
	}

	if err := svc.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.ValidateSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateSession() after logout error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada@example.org", "correct-horse-1", "Ada"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ada@example.org", password: "wrong-password"},
		{name: "unknown email", email: "nobody@example.org", password: "correct-horse-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register(context.Background(), "not-an-email", "correct-horse-1", "Ada")
	var ve validation.ValidationError
	if !errors.As(err, &ve) || ve.Field != "email" {
		t.Errorf("Register() error = %v, want email ValidationError", err)
	}
}

func TestExpiredSession(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewUserRepository(db)
	svc := NewAuthService(repo, time.Hour)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.org", "correct-horse-1", "Ada")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := repo.CreateSession(ctx, "stale", user.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := svc.ValidateSession(ctx, "stale"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("ValidateSession() error = %v, want ErrSessionExpired", err)
	}

	if _, err := repo.CreateSession(ctx, "stale-2", user.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	n, err := svc.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupExpiredSessions() = %d, want 1", n)
	}
}

func TestOAuthLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	existing, err := svc.Register(ctx, "ada@example.org", "correct-horse-1", "Ada")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, linked, err := svc.OAuthLogin(ctx, "google", "sub-1", "Ada@example.org", "Ada O.")
	if err != nil {
		t.Fatalf("OAuthLogin() error = %v", err)
	}
	if linked.ID != existing.ID {
		t.Errorf("existing account should be linked, got new user %s", linked.ID)
	}

	_, again, err := svc.OAuthLogin(ctx, "google", "sub-1", "ada@example.org", "")
	if err != nil {
		t.Fatalf("second OAuthLogin() error = %v", err)
	}
	if again.ID != existing.ID {
		t.Errorf("subject lookup returned %s, want %s", again.ID, existing.ID)
	}

	session, created, err := svc.OAuthLogin(ctx, "google", "sub-2", "new@example.org", "")
	if err != nil {
		t.Fatalf("OAuthLogin(new) error = %v", err)
	}
	if created.Name != "new" || session.UserID != created.ID {
		t.Errorf("new oauth user = %+v", created)
	}

	if _, _, err := svc.OAuthLogin(ctx, "", "", "x@example.org", ""); err == nil {
		t.Error("missing provider should fail")
	}
}
