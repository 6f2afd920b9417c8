package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeValidator struct {
	tenantID string
	err      error
	token    string
}

func (v *fakeValidator) ValidateAPIKey(_ context.Context, token string) (string, error) {
	v.token = token
	if v.err != nil {
		return "", v.err
	}
	return v.tenantID, nil
}

func authedHandler(t *testing.T, wantTenant string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantTenant, GetTenantID(r.Context()))
		assert.Equal(t, wantTenant, r.Header.Get("X-Tenant-ID"))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthValidToken(t *testing.T) {
	validator := &fakeValidator{tenantID: "tenant-a"}
	handler := APIKeyAuth(validator)(authedHandler(t, "tenant-a"))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer mkb_token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mkb_token", validator.token)
}

func TestAPIKeyAuthMissingHeader(t *testing.T) {
	handler := APIKeyAuth(&fakeValidator{tenantID: "tenant-a"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthWrongScheme(t *testing.T) {
	handler := APIKeyAuth(&fakeValidator{tenantID: "tenant-a"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthInvalidToken(t *testing.T) {
	handler := APIKeyAuth(&fakeValidator{err: errors.New("nope")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTenantIDEmptyContext(t *testing.T) {
	assert.Empty(t, GetTenantID(context.Background()))
}
