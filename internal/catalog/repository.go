package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateProduct indicates the product identifier is already taken.
	ErrDuplicateProduct = errors.New("product already exists")

	// ErrNotFound indicates no product exists under the identifier.
	ErrNotFound = errors.New("product not found")

	// ErrProductInactive indicates the product is disabled for purchase.
	ErrProductInactive = errors.New("product inactive")

	// ErrInvalidPrice indicates a non-positive price.
	ErrInvalidPrice = errors.New("price must be positive")
)

// Repository persists catalog products.
type Repository interface {
	Create(ctx context.Context, product Product) error
	Get(ctx context.Context, id string) (Product, error)
	ListIDs(ctx context.Context) ([]string, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// PostgresRepository stores products in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a product record.
func (r *PostgresRepository) Create(ctx context.Context, product Product) error {
	_, err := r.db.Exec(ctx, `INSERT INTO products (id, price, provider, active, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		product.ID, product.Price, product.Provider, product.Active, product.Description, product.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateProduct
	}
	return err
}

// Get fetches a product by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT id, price, provider, active, description, created_at
        FROM products WHERE id = $1`, id)
	var p Product
	var createdAt time.Time
	if err := row.Scan(&p.ID, &p.Price, &p.Provider, &p.Active, &p.Description, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

// ListIDs returns product identifiers in insertion order.
func (r *PostgresRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetActive toggles the product's availability.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE products SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
