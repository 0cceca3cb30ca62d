package postgres

import (
	"context"
	"errors"
	"fmt"

	"nutpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements ports.TokenRepository.
type TokenRepo struct {
	pool Pool
}

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(pool Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

const tokenColumns = `id, encoded_token, raw_token, mint_url, unit, amount, state, error_text, deleted, created_at, updated_at`

// Insert stores a new token record.
func (r *TokenRepo) Insert(ctx context.Context, rec *domain.TokenRecord) error {
	query := `INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.EncodedToken, rec.RawToken, rec.MintURL, rec.Unit,
		int64(rec.Amount), string(rec.State), rec.ErrorText, rec.Deleted,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token record: %w", err)
	}
	return nil
}

// Update rewrites an existing token record.
func (r *TokenRepo) Update(ctx context.Context, rec *domain.TokenRecord) error {
	query := `UPDATE tokens SET encoded_token = $1, raw_token = $2, mint_url = $3, unit = $4,
		amount = $5, state = $6, error_text = $7, deleted = $8, updated_at = $9
		WHERE id = $10`

	tag, err := r.pool.Exec(ctx, query,
		rec.EncodedToken, rec.RawToken, rec.MintURL, rec.Unit,
		int64(rec.Amount), string(rec.State), rec.ErrorText, rec.Deleted,
		rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update token record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token record not found: %s", rec.ID)
	}
	return nil
}

// SoftDelete marks a record as spent. The row is never removed.
func (r *TokenRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tokens SET deleted = TRUE, updated_at = NOW() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("soft delete token record: %w", err)
	}
	return nil
}

// ListLive returns non-deleted accepted records in insertion order.
func (r *TokenRepo) ListLive(ctx context.Context) ([]domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens
		WHERE deleted = FALSE AND state = 'accepted' ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list live token records: %w", err)
	}
	defer rows.Close()

	var out []domain.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// FindByText returns the non-deleted record matching the encoded or raw
// token text, or nil.
func (r *TokenRepo) FindByText(ctx context.Context, text string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens
		WHERE deleted = FALSE AND (encoded_token = $1 OR raw_token = $1)
		ORDER BY created_at LIMIT 1`

	rows, err := r.pool.Query(ctx, query, text)
	if err != nil {
		return nil, fmt.Errorf("find token record by text: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanToken(rows)
}

func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	rec := &domain.TokenRecord{}
	var amount int64
	var state string
	err := row.Scan(
		&rec.ID, &rec.EncodedToken, &rec.RawToken, &rec.MintURL, &rec.Unit,
		&amount, &state, &rec.ErrorText, &rec.Deleted,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan token record: %w", err)
	}
	rec.Amount = uint64(amount)
	rec.State = domain.TokenState(state)
	return rec, nil
}
