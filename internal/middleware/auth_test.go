package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedServer(keys ...string) http.Handler {
	mw := NewAuthMiddleware(AuthConfig{APIKeys: keys})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthRejectsMissingKey(t *testing.T) {
	srv := authedServer("secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feeds", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAcceptsAPIKeyHeader(t *testing.T) {
	srv := authedServer("secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feeds", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	srv := authedServer("secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feeds", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsWrongKey(t *testing.T) {
	srv := authedServer("secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feeds", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthSkipsHealthEndpoints(t *testing.T) {
	srv := authedServer("secret")

	for _, path := range []string{"/api/v1/health", "/api/v1/ready", "/api/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200 without a key", path, rec.Code)
		}
	}
}
