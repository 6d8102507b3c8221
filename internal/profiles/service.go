package profiles

import (
	"context"
	"time"

	"github.com/pulsewire/pulse/internal/authz"
	"github.com/pulsewire/pulse/internal/models"
)

// Service resolves an authenticated identity to its profile, creating the
// default profile on first login.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Resolve returns the profile for the identity, creating one with RoleUser
// if none exists yet. The created profile never carries an elevated role;
// promotion to admin is an out-of-band store edit.
func (s *Service) Resolve(ctx context.Context, id authz.Identity) (*models.UserProfile, error) {
	if id.ID == "" {
		return nil, &models.ValidationError{Field: "identity", Reason: "missing subject id"}
	}
	p := &models.UserProfile{
		ID:        id.ID,
		Email:     id.Email,
		Role:      models.RoleUser,
		CreatedAt: time.Now().UnixMilli(),
	}
	stored, err := s.repo.EnsureDefault(ctx, p)
	if err != nil {
		return nil, &models.StoreError{Op: "resolve profile", Err: err}
	}
	return stored, nil
}

// Get fetches a profile without creating one.
func (s *Service) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, &models.StoreError{Op: "get profile", Err: err}
	}
	return p, nil
}
