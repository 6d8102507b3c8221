package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsewire/pulse/internal/authz"
	"github.com/pulsewire/pulse/internal/config"
	"github.com/pulsewire/pulse/internal/identity"
	"github.com/pulsewire/pulse/internal/profiles"
	"github.com/pulsewire/pulse/internal/sessions"
	"github.com/pulsewire/pulse/internal/tokens"
	"github.com/pulsewire/pulse/pkg/logger"
)

// CredentialsRequest is the body of both signup and login.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	identitySvc *identity.Service
	profilesSvc *profiles.Service
	sessionsSvc *sessions.Service
}

func NewAuthHandler(cfg *config.Config, i *identity.Service, p *profiles.Service, s *sessions.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, identitySvc: i, profilesSvc: p, sessionsSvc: s}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// SignUp creates a credential, resolves the default profile and signs the
// caller in, in one round trip.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ident, err := h.identitySvc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issueTokens(c, ident, http.StatusCreated)
}

// Login verifies email/password and returns access+refresh tokens plus the
// resolved profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ident, err := h.identitySvc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issueTokens(c, ident, http.StatusOK)
}

// issueTokens resolves the profile, mints the token pair and writes the
// camelCase response shape the frontend consumes.
func (h *AuthHandler) issueTokens(c *gin.Context, ident authz.Identity, status int) {
	prof, err := h.profilesSvc.Resolve(c.Request.Context(), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), ident.ID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, ident, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(status, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"user":         prof,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	prof, err := h.profilesSvc.Get(c.Request.Context(), sess.SubjectID)
	if err != nil || prof == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, authz.Identity{ID: prof.ID, Email: prof.Email}, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "expiresIn": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout invalidates the refresh token and (optionally) blacklists the current access token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// If the client supplied an Authorization Bearer token, attempt to blacklist it
	auth := c.GetHeader("Authorization")
	if auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				ttl := time.Until(exp)
				if ttl > 0 {
					if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}

	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the caller's identity and resolved profile. Mounted behind the
// auth and session middlewares.
func Me(c *gin.Context) {
	s := sessionFrom(c)
	if s == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"identity": s.Identity,
		"profile":  s.Profile,
		"isAdmin":  s.IsAdmin(),
	})
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// This performs payload-only parsing (no signature verification) and is suitable
// for computing remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	payload := parts[1]
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		// try standard base64 (pad) as a fallback
		b, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case int64:
		return time.Unix(vv, 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			f, err2 := vv.Float64()
			if err2 != nil {
				return time.Time{}, err
			}
			return time.Unix(int64(f), 0), nil
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
