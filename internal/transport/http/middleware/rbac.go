package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"opscore/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// RequirePermission answers 401 without an identity and 403 when the caller's role lacks
// permission. Tokens carrying only a role name are checked by name.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}

			role := user.RoleID
			if role == "" {
				role = user.RoleName
			}
			allowed, err := store.HasPermission(r.Context(), role, permission)
			switch {
			case err != nil:
				slog.Error("permission check failed", "permission", permission, "role", role, "err", err)
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", reqID)
			case !allowed:
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", reqID)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

type grantKey struct {
	role       string
	permission string
}

type grant struct {
	allowed bool
	expires time.Time
}

// PermissionCache remembers role grants for ttl so each routed request does not hit
// role_permissions. Errors are never cached.
type PermissionCache struct {
	store PermissionStore
	ttl   time.Duration
	now   func() time.Time

	mu     sync.RWMutex
	grants map[grantKey]grant
}

func NewPermissionCache(store PermissionStore, ttl time.Duration) *PermissionCache {
	return &PermissionCache{store: store, ttl: ttl, now: time.Now, grants: map[grantKey]grant{}}
}

func (c *PermissionCache) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	key := grantKey{role: roleID, permission: permission}
	now := c.now()

	c.mu.RLock()
	g, ok := c.grants[key]
	c.mu.RUnlock()
	if ok && now.Before(g.expires) {
		return g.allowed, nil
	}

	allowed, err := c.store.HasPermission(ctx, roleID, permission)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.grants[key] = grant{allowed: allowed, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return allowed, nil
}
