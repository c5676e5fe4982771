package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(3, 30*time.Second)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.allow("10.0.0.1")
		require.True(t, ok, "request %d", i+1)
	}
	ok, wait := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, 10, wait.Seconds(), 0.001)

	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok, "buckets are per IP")

	now = now.Add(10 * time.Second)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.False(t, ok)
}

func TestIPLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(5, time.Minute)
	l.now = func() time.Time { return now }
	l.sweepAt = 4

	for i := 0; i < 3; i++ {
		l.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	now = now.Add(time.Minute)
	l.allow("10.0.1.1")
	require.Len(t, l.clients, 4)

	l.allow("10.0.1.2")
	assert.Len(t, l.clients, 2)
	assert.Contains(t, l.clients, "10.0.1.1")
}

func requestFrom(r http.Handler, method, path, remote string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{"email":"ann@example.com","password":"wrongpass1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_TooManyRequests(t *testing.T) {
	e := newTestEnv(t)
	cfg.RateLimit, cfg.RateWindow = 2, time.Hour
	r := newRouter()

	for i := 0; i < 2; i++ {
		rec := requestFrom(r, http.MethodPost, "/api/users/login", "192.0.2.1:5000", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := requestFrom(r, http.MethodPost, "/api/users/login", "192.0.2.1:5001", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", body["message"])
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))

	rec = requestFrom(r, http.MethodPost, "/api/users/login", "192.0.2.9:5000", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Off by default in the test env.
	for i := 0; i < 5; i++ {
		rec = requestFrom(e.r, http.MethodPost, "/api/users/login", "192.0.2.1:5000", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestCORS_AnyOrigin(t *testing.T) {
	e := newTestEnv(t)
	rec := requestFrom(e.r, http.MethodOptions, "/api/bootcamps", "192.0.2.1:5000", map[string]string{
		"Origin":                        "https://frontend.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	rec = requestFrom(e.r, http.MethodPost, "/api/users/login", "192.0.2.1:5000", map[string]string{
		"Origin": "https://frontend.example",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	newTestEnv(t)
	cfg.CORSOrigins = []string{"https://app.example"}
	r := newRouter()

	rec := requestFrom(r, http.MethodOptions, "/api/bootcamps", "192.0.2.1:5000", map[string]string{
		"Origin":                        "https://app.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = requestFrom(r, http.MethodOptions, "/api/bootcamps", "192.0.2.1:5000", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func findAuthCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", authCookie)
	return nil
}

func TestAuthCookie_SecureOverTLS(t *testing.T) {
	e := newTestEnv(t)
	body := `{"name":"Ann","email":"ann@example.com","password":"s3cretpass"}`

	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	e.r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := findAuthCookie(t, rec)
	assert.True(t, c.Secure, "behind a TLS-terminating proxy")
	assert.True(t, c.HttpOnly)

	req = httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"email":"ann@example.com","password":"s3cretpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	e.r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, findAuthCookie(t, rec).Secure, "direct TLS")
}

func TestLogout_ClearsCookie(t *testing.T) {
	e := newTestEnv(t)
	tok := e.signup(t, "ann@example.com", "")

	for _, path := range []string{"/api/users/logout", "/api/users/logoutAll"} {
		if path == "/api/users/logoutAll" {
			tok = e.login(t, "ann@example.com", "s3cretpass")
		}
		rec := performRequest(e.r, http.MethodPost, path, nil, tok)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		c := findAuthCookie(t, rec)
		assert.Empty(t, c.Value, path)
		assert.Less(t, c.MaxAge, 0, path)
		assert.True(t, c.HttpOnly, path)
	}
}
