package ledger

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists balances in PostgreSQL, relying on row locks for
// per-identity serialization.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Balance returns the stored balance for the identity.
func (l *PostgresLedger) Balance(ctx context.Context, identity string) (int64, error) {
	var balance int64
	err := l.db.QueryRow(ctx, `SELECT balance FROM balances WHERE identity = $1`, identity).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// Mint credits the identity, creating the balance row on first use.
func (l *PostgresLedger) Mint(ctx context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, identity, true)
	if err != nil {
		return 0, err
	}
	if math.MaxInt64-balance < amount {
		return 0, ErrOverflow
	}
	balance += amount
	if _, err := tx.Exec(ctx, `UPDATE balances SET balance = $1 WHERE identity = $2`, balance, identity); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// Burn debits the identity, failing rather than letting the balance go negative.
func (l *PostgresLedger) Burn(ctx context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, identity, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientBalance
	}
	balance -= amount
	if _, err := tx.Exec(ctx, `UPDATE balances SET balance = $1 WHERE identity = $2`, balance, identity); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer debits from and credits to inside one transaction. Rows are locked
// in lexical identity order so opposing transfers cannot deadlock.
func (l *PostgresLedger) Transfer(ctx context.Context, from, to string, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if from == to {
		return TransferResult{}, ErrSameAccount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := from, to
	if first > second {
		first, second = second, first
	}
	balances := make(map[string]int64, 2)
	for _, identity := range []string{first, second} {
		// The credit side row is created on demand; the debit side failing
		// to exist is just an empty balance.
		createMissing := identity == to
		balance, err := lockBalance(ctx, tx, identity, createMissing)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return TransferResult{}, err
		}
		balances[identity] = balance
	}

	if balances[from] < amount {
		return TransferResult{}, ErrInsufficientBalance
	}
	if math.MaxInt64-balances[to] < amount {
		return TransferResult{}, ErrOverflow
	}

	balances[from] -= amount
	balances[to] += amount
	for identity, balance := range balances {
		if _, err := tx.Exec(ctx, `UPDATE balances SET balance = $1 WHERE identity = $2`, balance, identity); err != nil {
			return TransferResult{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{FromBalance: balances[from], ToBalance: balances[to]}, nil
}

func lockBalance(ctx context.Context, tx pgx.Tx, identity string, createMissing bool) (int64, error) {
	if createMissing {
		if _, err := tx.Exec(ctx, `INSERT INTO balances (identity, balance) VALUES ($1, 0)
            ON CONFLICT (identity) DO NOTHING`, identity); err != nil {
			return 0, err
		}
	}
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM balances WHERE identity = $1 FOR UPDATE`, identity).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}
