package postgres

import (
	"context"
	"errors"
	"fmt"

	"nutpay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// MintRepo implements ports.MintRepository keyed by canonical URL.
type MintRepo struct {
	pool Pool
}

// NewMintRepo creates a new MintRepo.
func NewMintRepo(pool Pool) *MintRepo {
	return &MintRepo{pool: pool}
}

const mintColumns = `url, name, supports_mpp, input_fee_ppk, last_seen_at, last_checked_at, deleted`

// Upsert inserts or replaces the mint row for the canonical URL.
func (r *MintRepo) Upsert(ctx context.Context, info *domain.MintInfo) error {
	query := `INSERT INTO mints (` + mintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			supports_mpp = EXCLUDED.supports_mpp,
			input_fee_ppk = EXCLUDED.input_fee_ppk,
			last_seen_at = EXCLUDED.last_seen_at,
			last_checked_at = EXCLUDED.last_checked_at,
			deleted = EXCLUDED.deleted`

	_, err := r.pool.Exec(ctx, query,
		domain.NormalizeMintURL(info.URL), info.Name, info.SupportsMPP,
		int64(info.InputFeePpk), info.LastSeenAt, info.LastCheckedAt, info.Deleted,
	)
	if err != nil {
		return fmt.Errorf("upsert mint: %w", err)
	}
	return nil
}

// List returns every mint row, deleted ones included.
func (r *MintRepo) List(ctx context.Context) ([]domain.MintInfo, error) {
	query := `SELECT ` + mintColumns + ` FROM mints ORDER BY url`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}
	defer rows.Close()

	var out []domain.MintInfo
	for rows.Next() {
		info, err := scanMintRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, rows.Err()
}

// Get fetches one mint row by canonical URL, or nil.
func (r *MintRepo) Get(ctx context.Context, canonicalURL string) (*domain.MintInfo, error) {
	query := `SELECT ` + mintColumns + ` FROM mints WHERE url = $1`

	rows, err := r.pool.Query(ctx, query, domain.NormalizeMintURL(canonicalURL))
	if err != nil {
		return nil, fmt.Errorf("get mint: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanMintRow(rows)
}

func scanMintRow(row pgx.Row) (*domain.MintInfo, error) {
	info := &domain.MintInfo{}
	var feePpk int64
	err := row.Scan(
		&info.URL, &info.Name, &info.SupportsMPP, &feePpk,
		&info.LastSeenAt, &info.LastCheckedAt, &info.Deleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan mint: %w", err)
	}
	info.InputFeePpk = uint(feePpk)
	return info, nil
}
