package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists API keys in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Put(ctx context.Context, key Key) error {
	_, err := s.db.Exec(ctx, `INSERT INTO api_keys (id, identity, secret_hash, created_at) VALUES ($1, $2, $3, $4)`,
		key.ID, key.Identity, key.SecretHash, key.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, keyID string) (Key, error) {
	var key Key
	err := s.db.QueryRow(ctx, `SELECT id, identity, secret_hash, created_at FROM api_keys WHERE id = $1`, keyID).
		Scan(&key.ID, &key.Identity, &key.SecretHash, &key.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Key{}, ErrInvalidKey
	}
	if err != nil {
		return Key{}, err
	}
	return key, nil
}
