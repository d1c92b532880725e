package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"opscore/internal/domain/auth"
)

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", EmployeeID: "e1", RoleID: "r1", RoleName: auth.RoleHR}, time.Hour)
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
		if user.UserID != "u1" || user.EmployeeID != "e1" || user.RoleName != auth.RoleHR {
			t.Fatalf("unexpected user: %+v", user)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("expected next handler to run")
	}
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("other", auth.Claims{UserID: "u1", RoleName: auth.RoleHR}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user for a token signed with another secret")
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

type fakePerms struct {
	allowed map[string]bool
	err     error
}

func (f fakePerms) HasPermission(_ context.Context, roleID, permission string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[roleID+"|"+permission], nil
}

func TestRequirePermission(t *testing.T) {
	perms := fakePerms{allowed: map[string]bool{"r1|attendance.read": true}}
	handler := RequirePermission(auth.PermAttendanceRead, perms)(noContent())

	cases := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"allowed", WithUser(context.Background(), auth.UserContext{UserID: "u1", RoleID: "r1"}), http.StatusNoContent},
		{"denied", WithUser(context.Background(), auth.UserContext{UserID: "u2", RoleID: "r2"}), http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}

	failing := RequirePermission(auth.PermAttendanceRead, fakePerms{err: errors.New("db down")})(noContent())
	rec := httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(WithUser(context.Background(), auth.UserContext{UserID: "u1", RoleID: "r1"})))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", rec.Code)
	}
}

type countingPerms struct {
	calls int
	err   error
}

func (c *countingPerms) HasPermission(_ context.Context, roleID, _ string) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return roleID == "admin", nil
}

func TestPermissionCacheExpires(t *testing.T) {
	store := &countingPerms{}
	cache := NewPermissionCache(store, time.Minute)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := cache.HasPermission(context.Background(), "admin", auth.PermAuditRead)
		if err != nil || !ok {
			t.Fatalf("expected grant, got %v (%v)", ok, err)
		}
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 store call, got %d", store.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.HasPermission(context.Background(), "admin", auth.PermAuditRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected refresh after ttl, got %d calls", store.calls)
	}
}

func TestPermissionCacheSkipsErrors(t *testing.T) {
	store := &countingPerms{err: errors.New("db down")}
	cache := NewPermissionCache(store, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := cache.HasPermission(context.Background(), "admin", auth.PermAuditRead); err == nil {
			t.Fatal("expected error")
		}
	}
	if store.calls != 2 {
		t.Fatalf("expected errors not to be cached, got %d calls", store.calls)
	}
}
