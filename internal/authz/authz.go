// Package authz derives authorization decisions from a resolved session.
// It performs no I/O; handlers re-check these gates before every mutation,
// which makes this the authoritative enforcement point of the service.
package authz

import "github.com/pulsewire/pulse/internal/models"

// Identity is the authenticated subject as reported by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session carries the identity and its resolved profile through the request
// graph. A nil Session means "not authenticated"; a Session with a nil
// Profile means "authenticated but not yet profiled" and grants nothing
// beyond ordinary user access.
type Session struct {
	Identity Identity
	Profile  *models.UserProfile
}

// IsAdmin reports whether the session's profile carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Profile != nil && s.Profile.Role == models.RoleAdmin
}

// IsOwner reports whether the session's identity authored the entity.
func (s *Session) IsOwner(authorID string) bool {
	return s != nil && authorID != "" && s.Identity.ID == authorID
}

// CanMutate reports whether the session may edit or delete an entity owned
// by authorID: owners and admins only. nil session always means no.
func (s *Session) CanMutate(authorID string) bool {
	return s.IsOwner(authorID) || s.IsAdmin()
}
