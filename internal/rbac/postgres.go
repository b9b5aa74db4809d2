package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists role grants in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed grant table.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put inserts a grant row, ignoring duplicates.
func (s *PostgresStore) Put(ctx context.Context, grant Grant) error {
	_, err := s.db.Exec(ctx, `INSERT INTO role_grants (role, identity, scope) VALUES ($1, $2, $3)
        ON CONFLICT (role, identity, scope) DO NOTHING`, string(grant.Role), grant.Identity, grant.Scope)
	return err
}

// Delete removes a grant row if present.
func (s *PostgresStore) Delete(ctx context.Context, grant Grant) error {
	_, err := s.db.Exec(ctx, `DELETE FROM role_grants WHERE role = $1 AND identity = $2 AND scope = $3`,
		string(grant.Role), grant.Identity, grant.Scope)
	return err
}

// Exists checks for an exact (role, identity, scope) grant.
func (s *PostgresStore) Exists(ctx context.Context, grant Grant) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_grants WHERE role = $1 AND identity = $2 AND scope = $3)`,
		string(grant.Role), grant.Identity, grant.Scope).Scan(&exists)
	return exists, err
}

// ExistsAny checks for the role under any scope.
func (s *PostgresStore) ExistsAny(ctx context.Context, role Role, identity string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_grants WHERE role = $1 AND identity = $2)`,
		string(role), identity).Scan(&exists)
	return exists, err
}

// Holders lists distinct identities holding the role.
func (s *PostgresStore) Holders(ctx context.Context, role Role) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT identity FROM role_grants WHERE role = $1`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []string
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, err
		}
		holders = append(holders, identity)
	}
	return holders, rows.Err()
}
