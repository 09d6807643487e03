package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func adminProtected(t *testing.T, secret string) http.Handler {
	t.Helper()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return AdminAuthMiddleware(secret, zerolog.Nop())(ok)
}

func TestAdminAuthAcceptsValidSecret(t *testing.T) {
	h := adminProtected(t, "s3cret")
	req := httptest.NewRequest(http.MethodPost, "/admin/refunds", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid secret, got %d", rec.Code)
	}
}

func TestAdminAuthRejectsWrongSecret(t *testing.T) {
	h := adminProtected(t, "s3cret")
	req := httptest.NewRequest(http.MethodPost, "/admin/refunds", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong secret, got %d", rec.Code)
	}
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	h := adminProtected(t, "s3cret")
	req := httptest.NewRequest(http.MethodPost, "/admin/refunds", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credential, got %d", rec.Code)
	}
}

func TestAdminAuthRejectsNonBearerScheme(t *testing.T) {
	h := adminProtected(t, "s3cret")
	req := httptest.NewRequest(http.MethodPost, "/admin/refunds", nil)
	req.Header.Set("Authorization", "Basic s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", rec.Code)
	}
}
