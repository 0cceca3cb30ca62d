package ports

import (
	"context"

	"nutpay/internal/core/domain"

	"github.com/google/uuid"
)

// TokenRepository persists bearer token records. Spent records are
// soft-deleted, never removed.
type TokenRepository interface {
	Insert(ctx context.Context, rec *domain.TokenRecord) error
	Update(ctx context.Context, rec *domain.TokenRecord) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ListLive returns non-deleted accepted records.
	ListLive(ctx context.Context) ([]domain.TokenRecord, error)
	// FindByText returns the non-deleted record matching the encoded or raw
	// token text, or nil.
	FindByText(ctx context.Context, text string) (*domain.TokenRecord, error)
}

// MintRepository persists mint info rows keyed by canonical URL.
type MintRepository interface {
	Upsert(ctx context.Context, info *domain.MintInfo) error
	List(ctx context.Context) ([]domain.MintInfo, error)
	Get(ctx context.Context, canonicalURL string) (*domain.MintInfo, error)
}

// PromiseRepository persists Credo promise bookkeeping.
type PromiseRepository interface {
	Insert(ctx context.Context, rec *domain.PromiseRecord) error
	Update(ctx context.Context, rec *domain.PromiseRecord) error
	Get(ctx context.Context, promiseID string) (*domain.PromiseRecord, error)
	// ListByDirection returns non-deleted records we issued or received.
	ListByDirection(ctx context.Context, dir domain.PromiseDirection) ([]domain.PromiseRecord, error)
}

// IntentRepository persists the offline payment queue.
type IntentRepository interface {
	Insert(ctx context.Context, intent *domain.PendingIntent) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.PendingIntent, error)
}

// CounterRepository is the KV backing for blinding counters and restore
// cursors, addressed by composite keys ({prefix}:{mint}:{unit}:{keyset}).
// Values are non-negative; Get reports presence explicitly.
type CounterRepository interface {
	Get(ctx context.Context, key string) (value int64, ok bool, err error)
	Put(ctx context.Context, key string, value int64) error
}
