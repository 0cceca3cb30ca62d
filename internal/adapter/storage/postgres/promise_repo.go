package postgres

import (
	"context"
	"errors"
	"fmt"

	"nutpay/internal/core/domain"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

// PromiseRepo implements ports.PromiseRepository. The signed token travels
// as a JSON column; its content hash identity makes it safe to round-trip.
type PromiseRepo struct {
	pool Pool
}

// NewPromiseRepo creates a new PromiseRepo.
func NewPromiseRepo(pool Pool) *PromiseRepo {
	return &PromiseRepo{pool: pool}
}

const promiseColumns = `promise_id, token, direction, valid, settled_amount, settlement_ids, deleted, created_at, updated_at`

// Insert stores a new promise record.
func (r *PromiseRepo) Insert(ctx context.Context, rec *domain.PromiseRecord) error {
	tokenJSON, settlementJSON, err := marshalPromise(rec)
	if err != nil {
		return err
	}
	query := `INSERT INTO promises (` + promiseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		rec.PromiseID, tokenJSON, string(rec.Direction), rec.Valid,
		int64(rec.SettledAmount), settlementJSON, rec.Deleted,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert promise: %w", err)
	}
	return nil
}

// Update rewrites an existing promise record.
func (r *PromiseRepo) Update(ctx context.Context, rec *domain.PromiseRecord) error {
	tokenJSON, settlementJSON, err := marshalPromise(rec)
	if err != nil {
		return err
	}
	query := `UPDATE promises SET token = $1, direction = $2, valid = $3,
		settled_amount = $4, settlement_ids = $5, deleted = $6, updated_at = $7
		WHERE promise_id = $8`

	tag, err := r.pool.Exec(ctx, query,
		tokenJSON, string(rec.Direction), rec.Valid,
		int64(rec.SettledAmount), settlementJSON, rec.Deleted,
		rec.UpdatedAt, rec.PromiseID,
	)
	if err != nil {
		return fmt.Errorf("update promise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("promise not found: %s", rec.PromiseID)
	}
	return nil
}

// Get fetches one promise record by id, or nil.
func (r *PromiseRepo) Get(ctx context.Context, promiseID string) (*domain.PromiseRecord, error) {
	query := `SELECT ` + promiseColumns + ` FROM promises WHERE promise_id = $1`

	rows, err := r.pool.Query(ctx, query, promiseID)
	if err != nil {
		return nil, fmt.Errorf("get promise: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPromise(rows)
}

// ListByDirection returns non-deleted records we issued or received.
func (r *PromiseRepo) ListByDirection(ctx context.Context, dir domain.PromiseDirection) ([]domain.PromiseRecord, error) {
	query := `SELECT ` + promiseColumns + ` FROM promises
		WHERE deleted = FALSE AND direction = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, string(dir))
	if err != nil {
		return nil, fmt.Errorf("list promises: %w", err)
	}
	defer rows.Close()

	var out []domain.PromiseRecord
	for rows.Next() {
		rec, err := scanPromise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func marshalPromise(rec *domain.PromiseRecord) ([]byte, []byte, error) {
	tokenJSON, err := json.Marshal(rec.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal promise token: %w", err)
	}
	ids := rec.SettlementIDs
	if ids == nil {
		ids = []string{}
	}
	settlementJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal settlement ids: %w", err)
	}
	return tokenJSON, settlementJSON, nil
}

func scanPromise(row pgx.Row) (*domain.PromiseRecord, error) {
	rec := &domain.PromiseRecord{}
	var tokenJSON, settlementJSON []byte
	var direction string
	var settled int64
	err := row.Scan(
		&rec.PromiseID, &tokenJSON, &direction, &rec.Valid,
		&settled, &settlementJSON, &rec.Deleted,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan promise: %w", err)
	}
	if err := json.Unmarshal(tokenJSON, &rec.Token); err != nil {
		return nil, fmt.Errorf("unmarshal promise token: %w", err)
	}
	if len(settlementJSON) > 0 {
		if err := json.Unmarshal(settlementJSON, &rec.SettlementIDs); err != nil {
			return nil, fmt.Errorf("unmarshal settlement ids: %w", err)
		}
	}
	if len(rec.SettlementIDs) == 0 {
		rec.SettlementIDs = nil
	}
	rec.Direction = domain.PromiseDirection(direction)
	rec.SettledAmount = uint64(settled)
	return rec, nil
}
