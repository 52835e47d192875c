package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrleave/internal/domain/auth"
)

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", TenantID: "t1", RoleName: auth.RoleHR, EmployeeID: 9}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		if user.UserID != "u1" || user.RoleName != auth.RoleHR || user.EmployeeID != 9 {
			t.Fatalf("unexpected user: %+v", user)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestAuthMiddlewareMissingOrInvalidToken(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

type denyAll struct{}

func (denyAll) HasPermission(context.Context, string, string) (bool, error) { return false, nil }

func TestRequirePermission(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequirePermission(auth.PermLeaveApprove, auth.StaticPermissions{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}

	employee := WithUser(context.Background(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: auth.RoleEmployee})
	rec = httptest.NewRecorder()
	RequirePermission(auth.PermLeaveApprove, auth.StaticPermissions{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(employee))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee, got %d", rec.Code)
	}
	var body struct {
		Error struct{ Code string } `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error.Code != "forbidden" {
		t.Fatalf("unexpected body: %v %+v", err, body)
	}

	manager := WithUser(context.Background(), auth.UserContext{UserID: "u2", TenantID: "t1", RoleName: auth.RoleManager})
	rec = httptest.NewRecorder()
	RequirePermission(auth.PermLeaveApprove, auth.StaticPermissions{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(manager))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected manager to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	RequirePermission(auth.PermLeaveApprove, denyAll{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(manager))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected store denial, got %d", rec.Code)
	}
}

func TestRequireAnyPermission(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := RequireAnyPermission(auth.StaticPermissions{}, auth.PermAuditRead, auth.PermSystemAdmin)

	for role, want := range map[string]int{
		auth.RoleSystemAdmin: http.StatusNoContent,
		auth.RoleHR:          http.StatusNoContent,
		auth.RoleManager:     http.StatusForbidden,
	} {
		ctx := WithUser(context.Background(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: role})
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		if rec.Code != want {
			t.Fatalf("role %s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-123" || rec.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("expected request id to propagate, got %q", seen)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "req-123" {
		t.Fatalf("expected generated request id, got %q", seen)
	}
}
