// Package identity is the credential side of the platform: email/password
// sign-up and sign-in. It issues nothing itself; token minting and refresh
// sessions live in their own packages.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pulsewire/pulse/internal/authz"
	"github.com/pulsewire/pulse/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicateEmail is returned by repositories on a unique-email violation.
var ErrDuplicateEmail = errors.New("email already in use")

// Service encapsulates credential business logic
type Service struct {
	repo       Repository
	bcryptCost int
	minLen     int
}

func NewService(r Repository, bcryptCost, minPasswordLength int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if minPasswordLength == 0 {
		minPasswordLength = 8
	}
	return &Service{repo: r, bcryptCost: bcryptCost, minLen: minPasswordLength}
}

// SignUp registers a new account and returns its identity.
func (s *Service) SignUp(ctx context.Context, email, password string) (authz.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return authz.Identity{}, &models.ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if len(password) < s.minLen {
		return authz.Identity{}, &models.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", s.minLen)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return authz.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	cred := &Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Insert(ctx, cred); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || mongo.IsDuplicateKeyError(err) {
			return authz.Identity{}, &models.AuthError{Reason: "email already in use"}
		}
		return authz.Identity{}, &models.StoreError{Op: "create credential", Err: err}
	}
	return authz.Identity{ID: cred.ID, Email: cred.Email}, nil
}

// SignIn verifies credentials and returns the identity they belong to.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (authz.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	cred, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return authz.Identity{}, &models.StoreError{Op: "lookup credential", Err: err}
	}
	if cred == nil {
		return authz.Identity{}, &models.AuthError{Reason: "invalid credentials"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return authz.Identity{}, &models.AuthError{Reason: "invalid credentials"}
	}
	return authz.Identity{ID: cred.ID, Email: cred.Email}, nil
}
