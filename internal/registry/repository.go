package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateAccount indicates the (bank, number) pair is already registered.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrNotFound indicates no account is registered under the pair.
	ErrNotFound = errors.New("account not found")
)

// Repository persists account records.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, bankID, number string) (Account, error)
	ListByBank(ctx context.Context, bankID string) ([]Account, error)
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record; the (bank_id, number) primary key
// enforces uniqueness.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (bank_id, number, owner, name, created_at)
        VALUES ($1, $2, $3, $4, $5)`, account.BankID, account.Number, account.Owner, account.Name, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateAccount
	}
	return err
}

// Get fetches an account by its bank and number.
func (r *PostgresRepository) Get(ctx context.Context, bankID, number string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT bank_id, number, owner, name, created_at
        FROM accounts WHERE bank_id = $1 AND number = $2`, bankID, number)
	var a Account
	var createdAt time.Time
	if err := row.Scan(&a.BankID, &a.Number, &a.Owner, &a.Name, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.CreatedAt = createdAt.UTC()
	return a, nil
}

// ListByBank returns the bank's accounts in registration order.
func (r *PostgresRepository) ListByBank(ctx context.Context, bankID string) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT bank_id, number, owner, name, created_at
        FROM accounts WHERE bank_id = $1 ORDER BY created_at, number`, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		var createdAt time.Time
		if err := rows.Scan(&a.BankID, &a.Number, &a.Owner, &a.Name, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = createdAt.UTC()
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
