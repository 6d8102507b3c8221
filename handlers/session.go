package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsewire/pulse/internal/authz"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/pulsewire/pulse/internal/profiles"
	"github.com/pulsewire/pulse/pkg/logger"
)

const sessionKey = "session"

// SessionMiddleware turns verified claims into an authz.Session: it reads the
// subject and email set by the auth middleware, resolves the profile (creating
// the default one on first login) and stores the session in the gin context.
// Must run after middleware.AuthMiddleware.
func SessionMiddleware(profilesSvc *profiles.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get("claims")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		claims, ok := raw.(map[string]interface{})
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		sub, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			return
		}
		ident := authz.Identity{ID: sub, Email: email}
		prof, err := profilesSvc.Resolve(c.Request.Context(), ident)
		if err != nil {
			logger.Errorf("profile resolve failed for %s: %v", sub, err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "profile resolution failed"})
			return
		}
		c.Set(sessionKey, &authz.Session{Identity: ident, Profile: prof})
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the session's profile is admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessionFrom(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// sessionFrom returns the resolved session, or nil when the request was not
// authenticated. authz methods are nil-safe, so callers can gate directly.
func sessionFrom(c *gin.Context) *authz.Session {
	raw, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := raw.(*authz.Session)
	return s
}

// writeError maps the service error taxonomy onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
		return
	}
	var ae *models.AuthError
	if errors.As(err, &ae) {
		if ae.Reason == "email already in use" {
			c.JSON(http.StatusConflict, gin.H{"error": ae.Error()})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": ae.Error()})
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var se *models.StoreError
	if errors.As(err, &se) {
		logger.Errorf("store failure: %v", se)
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
		return
	}
	logger.Errorf("unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
