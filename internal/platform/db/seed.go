package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"opscore/internal/domain/auth"
	"opscore/internal/platform/config"
)

// Seed installs the role and permission catalogue in one transaction. Grants are only
// ever added, so running it on every start is harmless.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if !cfg.RunSeed {
		return nil
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, perm := range auth.DefaultPermissions {
			batch.Queue(`INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, perm)
		}
		for _, role := range seedRoles() {
			batch.Queue(`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, role)
		}
		for _, grant := range seedGrants() {
			batch.Queue(`
        INSERT INTO role_permissions (role_id, permission_id)
        SELECT r.id, p.id FROM roles r, permissions p
        WHERE r.name = $1 AND p.key = $2
        ON CONFLICT DO NOTHING
      `, grant[0], grant[1])
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		return nil
	})
}

func seedRoles() []string {
	roles := make([]string, 0, len(auth.RolePermissions))
	for role := range auth.RolePermissions {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// seedGrants returns (role, permission) pairs in a stable order.
func seedGrants() [][2]string {
	var grants [][2]string
	for _, role := range seedRoles() {
		for _, perm := range auth.RolePermissions[role] {
			grants = append(grants, [2]string{role, perm})
		}
	}
	return grants
}
