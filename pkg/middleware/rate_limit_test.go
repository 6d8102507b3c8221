package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pulsewire/pulse/pkg/metrics"
	"github.com/stretchr/testify/require"
)

// withSubject injects verified claims so each test gets its own limiter key.
func withSubject(sub string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"sub": sub})
		c.Next()
	}
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))

	r := gin.New()
	r.Use(withSubject("allow-under-limit"))
	r.Use(RateLimitMiddleware(10, 2)) // generous rate
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	after := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	require.Equal(t, 2.0, after-before)
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(withSubject("blocks-when-exceeded"))
	// very low rate to force rejections
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request -> should be rate-limited
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// wait long enough to replenish one token
	time.Sleep(2100 * time.Millisecond)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimitMiddleware_SeparatesSubjects(t *testing.T) {
	// two distinct subjects each get their own bucket
	g := gin.New()
	g.GET("/u/:sub",
		func(c *gin.Context) {
			c.Set("claims", map[string]interface{}{"sub": "sep-" + c.Param("sub")})
			c.Next()
		},
		RateLimitMiddleware(0.5, 1),
		func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) },
	)

	w1 := httptest.NewRecorder()
	g.ServeHTTP(w1, httptest.NewRequest("GET", "/u/a", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	// same subject immediately again -> blocked
	w2 := httptest.NewRecorder()
	g.ServeHTTP(w2, httptest.NewRequest("GET", "/u/a", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// different subject unaffected
	w3 := httptest.NewRecorder()
	g.ServeHTTP(w3, httptest.NewRequest("GET", "/u/b", nil))
	require.Equal(t, http.StatusOK, w3.Code)
}
