package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestAuthCookieAndBearer(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	token, err := auth.SignToken("admin-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	var seen *Claims
	h := auth.WithAuth(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		assert.Equal(t, "a@example.com", ActorFromContext(r.Context()))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "admin-1", seen.AdminID)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	other := NewAuthenticator("other-secret")
	forged, err := other.SignToken("admin-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	expired := NewAuthenticator("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.SignToken("admin-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	h := auth.WithAuth(RequireAuth(okHandler))
	for _, tok := range []string{"", "garbage", forged, stale} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), `"error"`)
	}
}

func TestSessionCookie(t *testing.T) {
	dev := SessionCookie("t", 8*time.Hour, false)
	assert.True(t, dev.HttpOnly)
	assert.False(t, dev.Secure)
	assert.Equal(t, http.SameSiteStrictMode, dev.SameSite)
	assert.Equal(t, 8*3600, dev.MaxAge)

	prod := SessionCookie("t", time.Hour, true)
	assert.True(t, prod.Secure)
	assert.Equal(t, http.SameSiteNoneMode, prod.SameSite)

	cleared := SessionCookie("", time.Hour, true)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestCorrelationID(t *testing.T) {
	var inCtx string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(CorrelationHeader))
	assert.Equal(t, "abc-123", inCtx)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "bad value\n")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.NotEqual(t, "bad value\n", rr.Header().Get(CorrelationHeader))
	assert.Len(t, rr.Header().Get(CorrelationHeader), 36)
}

func TestRecovererAndLogger(t *testing.T) {
	h := CorrelationID(LocaleMiddleware(Recoverer(zap.NewNop())(RequestLogger(zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
	))))
	req := httptest.NewRequest(http.MethodGet, "/?lang=zh", nil)
	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rr, req) })
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "服务器内部错误")
}

func TestSecurityAndCacheHeaders(t *testing.T) {
	h := SecureHeaders(true)(NoStore(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("Strict-Transport-Security"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Cache-Control"), "no-store"))

	rr = httptest.NewRecorder()
	SecureHeaders(false)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/survey/submit", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := LocaleMiddleware(RateLimit(2, time.Minute)(okHandler))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestLoginGuardBlocks(t *testing.T) {
	g := NewLoginGuard(2, 10*time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	ok, _ := g.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = g.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, wait := g.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, 10*time.Minute, wait)

	ok, _ = g.Allow("2.2.2.2")
	assert.True(t, ok, "other IPs are unaffected")

	now = now.Add(5 * time.Minute)
	ok, _ = g.Allow("1.1.1.1")
	assert.False(t, ok, "still blocked")

	now = now.Add(6 * time.Minute)
	ok, _ = g.Allow("1.1.1.1")
	assert.True(t, ok, "block expired")

	h := LocaleMiddleware(g.Limit(okHandler))
	codes := make([]int, 0, 3)
	var rr *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
		req.RemoteAddr = "3.3.3.3:5555"
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, "600", rr.Header().Get("Retry-After"))
}

func TestLoginGuardSweepsIdleEntries(t *testing.T) {
	g := NewLoginGuard(2, 10*time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		ok, _ := g.Allow(fmt.Sprintf("10.0.%d.%d", i/250, i%250))
		require.True(t, ok)
	}
	for i := 0; i < 3; i++ {
		g.Allow("9.9.9.9")
	}
	assert.Len(t, g.limiters, 101)
	assert.Len(t, g.blocked, 1)

	now = now.Add(2 * time.Minute)
	ok, _ := g.Allow("8.8.8.8")
	require.True(t, ok)
	assert.Len(t, g.limiters, 2, "refilled buckets are dropped, the blocked IP and the caller stay")
	assert.Contains(t, g.limiters, "9.9.9.9")
	ok, _ = g.Allow("9.9.9.9")
	assert.False(t, ok, "sweeping must not lift an active block")

	now = now.Add(10 * time.Minute)
	g.Allow("7.7.7.7")
	assert.NotContains(t, g.blocked, "9.9.9.9")
	assert.NotContains(t, g.limiters, "9.9.9.9")
	assert.NotContains(t, g.limiters, "8.8.8.8")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:443"
	assert.Equal(t, "203.0.113.9", ClientIP(req))
	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
