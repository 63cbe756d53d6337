package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"zala/internal/config"

	"github.com/stretchr/testify/assert"
)

func authConfig(keys ...config.APIClientKey) config.APIConfig {
	return config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys:      keys,
		},
	}
}

func wrapOK(cfg config.APIConfig) http.Handler {
	auth := NewHTTPAuth(cfg)
	return auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthMissingKey(t *testing.T) {
	handler := wrapOK(authConfig(config.APIClientKey{Key: "secret", Name: "client"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidKey(t *testing.T) {
	handler := wrapOK(authConfig(config.APIClientKey{Key: "secret", Name: "client"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("x-api-key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthValidKey(t *testing.T) {
	handler := wrapOK(authConfig(config.APIClientKey{Key: "secret", Name: "client"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthPermissions(t *testing.T) {
	handler := wrapOK(authConfig(config.APIClientKey{
		Key: "reader", Name: "readonly",
		Permissions: []string{"read:rooms", "read:bookings"},
	}))

	// Reads pass.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("x-api-key", "reader")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Writes are denied.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
	req.Header.Set("x-api-key", "reader")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Export needs its own permission.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/export", nil)
	req.Header.Set("x-api-key", "reader")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthEmptyPermissionsMeanFullAccess(t *testing.T) {
	handler := wrapOK(authConfig(config.APIClientKey{Key: "admin", Name: "admin"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", nil)
	req.Header.Set("x-api-key", "admin")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHealthzBypass(t *testing.T) {
	handler := wrapOK(authConfig(config.APIClientKey{Key: "secret"}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := authConfig(config.APIClientKey{Key: "secret"})
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 2}
	handler := wrapOK(cfg)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
		req.Header.Set("x-api-key", "secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d within burst", i)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
