package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/pulsewire/pulse/internal/models"
)

func TestSignUpAndSignIn(t *testing.T) {
	svc := NewService(NewMemoryRepository(), 4, 8) // low cost keeps the test fast
	ctx := context.Background()

	id, err := svc.SignUp(ctx, "Alice@Example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if id.ID == "" {
		t.Fatal("expected subject id")
	}
	if id.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", id.Email)
	}

	got, err := svc.SignIn(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if got.ID != id.ID {
		t.Fatalf("signin returned different subject: %q vs %q", got.ID, id.ID)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(), 4, 8)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "bob@example.com", "password-one"); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	_, err := svc.SignUp(ctx, "bob@example.com", "password-two")
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for duplicate email, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository(), 4, 8)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "carol@example.com", "right-password"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	_, err := svc.SignIn(ctx, "carol@example.com", "wrong-password")
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for wrong password, got %v", err)
	}
	// unknown email yields the same error shape
	_, err = svc.SignIn(ctx, "nobody@example.com", "whatever-pass")
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for unknown email, got %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository(), 4, 8)
	ctx := context.Background()
	var vErr *models.ValidationError
	if _, err := svc.SignUp(ctx, "not-an-email", "long enough pass"); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for bad email, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "d@example.com", "short"); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for short password, got %v", err)
	}
}
