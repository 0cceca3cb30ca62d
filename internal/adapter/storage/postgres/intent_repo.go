package postgres

import (
	"context"
	"fmt"

	"nutpay/internal/core/domain"

	"github.com/google/uuid"
)

// IntentRepo implements ports.IntentRepository.
type IntentRepo struct {
	pool Pool
}

// NewIntentRepo creates a new IntentRepo.
func NewIntentRepo(pool Pool) *IntentRepo {
	return &IntentRepo{pool: pool}
}

// Insert stores a pending payment intent.
func (r *IntentRepo) Insert(ctx context.Context, intent *domain.PendingIntent) error {
	query := `INSERT INTO intents (id, contact_id, amount_sat, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		intent.ID, intent.ContactID, int64(intent.AmountSat), intent.MessageID, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

// Delete removes an intent after replay or permanent failure.
func (r *IntentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM intents WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}

// List returns pending intents oldest first.
func (r *IntentRepo) List(ctx context.Context) ([]domain.PendingIntent, error) {
	query := `SELECT id, contact_id, amount_sat, message_id, created_at
		FROM intents ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingIntent
	for rows.Next() {
		var intent domain.PendingIntent
		var amount int64
		if err := rows.Scan(&intent.ID, &intent.ContactID, &amount, &intent.MessageID, &intent.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		intent.AmountSat = uint64(amount)
		out = append(out, intent)
	}
	return out, rows.Err()
}
