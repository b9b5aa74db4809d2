package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists settlement requests. The service serializes all writes
// per request, so implementations only need atomic single-row operations.
type Repository interface {
	// Create stores the request and assigns its sequence number.
	Create(ctx context.Context, request Request) (Request, error)
	Get(ctx context.Context, id string) (Request, error)
	Update(ctx context.Context, request Request) error
	// ListUnresolved returns non-terminal requests created before the cutoff.
	ListUnresolved(ctx context.Context, createdBefore time.Time) ([]Request, error)
}

// PostgresRepository stores settlement requests in PostgreSQL. Attestations
// live in a jsonb column: they are only ever read and written together with
// their request.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the request; seq comes from the table's bigserial.
func (r *PostgresRepository) Create(ctx context.Context, request Request) (Request, error) {
	attestations, err := json.Marshal(request.Attestations)
	if err != nil {
		return Request{}, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO settlement_requests
        (id, origin_bank, origin_account, dest_bank, dest_account, amount, quorum, attestations, status, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING seq`,
		request.ID, request.OriginBank, request.OriginAccount, request.DestBank, request.DestAccount,
		request.Amount, request.Quorum, attestations, string(request.Status), request.Reason, request.CreatedAt.UTC())
	if err := row.Scan(&request.Seq); err != nil {
		return Request{}, err
	}
	return request, nil
}

// Get fetches a request by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT id, seq, origin_bank, origin_account, dest_bank, dest_account,
        amount, quorum, attestations, status, reason, created_at, resolved_at
        FROM settlement_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// Update rewrites the request's mutable columns.
func (r *PostgresRepository) Update(ctx context.Context, request Request) error {
	attestations, err := json.Marshal(request.Attestations)
	if err != nil {
		return err
	}
	var resolvedAt *time.Time
	if !request.ResolvedAt.IsZero() {
		t := request.ResolvedAt.UTC()
		resolvedAt = &t
	}
	cmd, err := r.db.Exec(ctx, `UPDATE settlement_requests
        SET attestations = $1, status = $2, reason = $3, resolved_at = $4
        WHERE id = $5`,
		attestations, string(request.Status), request.Reason, resolvedAt, request.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnresolved returns non-terminal requests older than the cutoff.
func (r *PostgresRepository) ListUnresolved(ctx context.Context, createdBefore time.Time) ([]Request, error) {
	rows, err := r.db.Query(ctx, `SELECT id, seq, origin_bank, origin_account, dest_bank, dest_account,
        amount, quorum, attestations, status, reason, created_at, resolved_at
        FROM settlement_requests
        WHERE status IN ($1, $2) AND created_at < $3`,
		string(StatusProposed), string(StatusAttesting), createdBefore.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		request      Request
		attestations []byte
		status       string
		createdAt    time.Time
		resolvedAt   *time.Time
	)
	err := row.Scan(&request.ID, &request.Seq, &request.OriginBank, &request.OriginAccount,
		&request.DestBank, &request.DestAccount, &request.Amount, &request.Quorum,
		&attestations, &status, &request.Reason, &createdAt, &resolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	if err := json.Unmarshal(attestations, &request.Attestations); err != nil {
		return Request{}, err
	}
	if request.Attestations == nil {
		request.Attestations = make(map[string]bool)
	}
	request.Status = Status(status)
	request.CreatedAt = createdAt.UTC()
	if resolvedAt != nil {
		request.ResolvedAt = resolvedAt.UTC()
	}
	return request, nil
}
