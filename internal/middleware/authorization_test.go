package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopfront/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func requestWithIdentity(role domain.Role) *http.Request {
	req := httptest.NewRequest("GET", "/admin", nil)
	ctx := context.WithValue(req.Context(), UserIDKey, uuid.New())
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return req.WithContext(ctx)
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	handlerCalled := false
	handler := RequireAdmin(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithIdentity(domain.RoleAdmin))

	if !handlerCalled {
		t.Error("expected handler to be called for admin")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRequireAdmin_RejectsUser(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be called for non-admin")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithIdentity(domain.RoleUser))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestRequireAdmin_RejectsMissingIdentity(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be called without an identity")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	handler := RequireRole([]domain.Role{domain.RoleUser, domain.RoleAdmin}, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for _, role := range []domain.Role{domain.RoleUser, domain.RoleAdmin} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithIdentity(role))
		if w.Code != http.StatusOK {
			t.Errorf("expected 200 for role %s, got %d", role, w.Code)
		}
	}
}
