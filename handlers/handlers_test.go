package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pulsewire/pulse/internal/comments"
	"github.com/pulsewire/pulse/internal/config"
	"github.com/pulsewire/pulse/internal/identity"
	"github.com/pulsewire/pulse/internal/livequery"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/pulsewire/pulse/internal/posts"
	"github.com/pulsewire/pulse/internal/profiles"
	"github.com/pulsewire/pulse/internal/sessions"
	"github.com/pulsewire/pulse/internal/tokens"
	"github.com/pulsewire/pulse/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testServer wires the full API onto an in-memory backing: memory repos for
// every collection and miniredis for refresh sessions and the blacklist.
type testServer struct {
	engine      *gin.Engine
	cfg         *config.Config
	hub         *livequery.Hub
	profileRepo *profiles.MemoryRepository
	postsSvc    *posts.Service
	commentsSvc *comments.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	sessions.SetBlacklistClient(rc)
	t.Cleanup(func() { sessions.SetBlacklistClient(nil) })

	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour

	hub := livequery.NewHub()
	profileRepo := profiles.NewMemoryRepository()
	profilesSvc := profiles.NewService(profileRepo)
	identitySvc := identity.NewService(identity.NewMemoryRepository(), 4, 8)
	sessionsSvc := sessions.NewService(sessions.NewRedisRepository(rc, ""))
	postsSvc := posts.NewService(posts.NewMemoryRepository(), hub)
	commentsSvc := comments.NewService(comments.NewMemoryRepository(), hub)

	verifier := tokens.NewVerifier(cfg.JWT.Secret)

	r := gin.New()
	api := r.Group("/api/v1")
	NewAuthHandler(cfg, identitySvc, profilesSvc, sessionsSvc).Register(api)

	authed := api.Group("", middleware.AuthMiddleware(verifier), SessionMiddleware(profilesSvc))
	authed.GET("/me", Me)
	NewPostsHandler(postsSvc, commentsSvc, nil).Register(authed)
	NewCommentsHandler(commentsSvc).Register(authed)
	NewAdminHandler(postsSvc, commentsSvc).Register(authed)
	NewLiveHandler(postsSvc, commentsSvc).Register(authed)

	return &testServer{
		engine:      r,
		cfg:         cfg,
		hub:         hub,
		profileRepo: profileRepo,
		postsSvc:    postsSvc,
		commentsSvc: commentsSvc,
	}
}

// do performs a JSON request and returns the recorder.
func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

// signup registers an account and returns (accessToken, refreshToken, subject id).
func (ts *testServer) signup(t *testing.T, email, password string) (string, string, string) {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/v1/auth/signup", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		AccessToken  string             `json:"accessToken"`
		RefreshToken string             `json:"refreshToken"`
		User         models.UserProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	return resp.AccessToken, resp.RefreshToken, resp.User.ID
}

// signupAdmin registers an account and promotes it to admin in the profile
// store, the same out-of-band edit an operator would make.
func (ts *testServer) signupAdmin(t *testing.T, email, password string) string {
	t.Helper()
	token, _, id := ts.signup(t, email, password)
	ts.profileRepo.SetRole(id, models.RoleAdmin)
	return token
}
