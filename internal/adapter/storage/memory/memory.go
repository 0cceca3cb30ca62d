// Package memory provides mutex-guarded in-memory implementations of the
// wallet repositories. walletd uses them when no database is configured;
// package tests use them as a faithful store stand-in.
package memory

import (
	"context"
	"sync"

	"nutpay/internal/core/domain"

	"github.com/google/uuid"
)

// --- Token repository ---

type TokenRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.TokenRecord
	order   []uuid.UUID
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{records: make(map[uuid.UUID]*domain.TokenRecord)}
}

func (r *TokenRepo) Insert(ctx context.Context, rec *domain.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *TokenRepo) Update(ctx context.Context, rec *domain.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *TokenRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.Deleted = true
	}
	return nil
}

func (r *TokenRepo) ListLive(ctx context.Context) ([]domain.TokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TokenRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.Live() {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *TokenRepo) FindByText(ctx context.Context, text string) (*domain.TokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rec := r.records[id]
		if rec.Deleted {
			continue
		}
		if rec.EncodedToken == text || (rec.RawToken != "" && rec.RawToken == text) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

// All returns every record including soft-deleted ones. Test helper.
func (r *TokenRepo) All() []domain.TokenRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TokenRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// --- Mint repository ---

type MintRepo struct {
	mu    sync.RWMutex
	mints map[string]*domain.MintInfo
}

func NewMintRepo() *MintRepo {
	return &MintRepo{mints: make(map[string]*domain.MintInfo)}
}

func (r *MintRepo) Upsert(ctx context.Context, info *domain.MintInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *info
	cp.URL = domain.NormalizeMintURL(info.URL)
	r.mints[cp.URL] = &cp
	return nil
}

func (r *MintRepo) List(ctx context.Context) ([]domain.MintInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.MintInfo, 0, len(r.mints))
	for _, m := range r.mints {
		out = append(out, *m)
	}
	return out, nil
}

func (r *MintRepo) Get(ctx context.Context, canonicalURL string) (*domain.MintInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mints[domain.NormalizeMintURL(canonicalURL)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// --- Promise repository ---

type PromiseRepo struct {
	mu       sync.RWMutex
	promises map[string]*domain.PromiseRecord
}

func NewPromiseRepo() *PromiseRepo {
	return &PromiseRepo{promises: make(map[string]*domain.PromiseRecord)}
}

func (r *PromiseRepo) Insert(ctx context.Context, rec *domain.PromiseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.promises[rec.PromiseID] = &cp
	return nil
}

func (r *PromiseRepo) Update(ctx context.Context, rec *domain.PromiseRecord) error {
	return r.Insert(ctx, rec)
}

func (r *PromiseRepo) Get(ctx context.Context, promiseID string) (*domain.PromiseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.promises[promiseID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *PromiseRepo) ListByDirection(ctx context.Context, dir domain.PromiseDirection) ([]domain.PromiseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PromiseRecord
	for _, rec := range r.promises {
		if !rec.Deleted && rec.Direction == dir {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// --- Intent repository ---

type IntentRepo struct {
	mu      sync.RWMutex
	intents map[uuid.UUID]*domain.PendingIntent
	order   []uuid.UUID
}

func NewIntentRepo() *IntentRepo {
	return &IntentRepo{intents: make(map[uuid.UUID]*domain.PendingIntent)}
}

func (r *IntentRepo) Insert(ctx context.Context, intent *domain.PendingIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intent
	r.intents[intent.ID] = &cp
	r.order = append(r.order, intent.ID)
	return nil
}

func (r *IntentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.intents, id)
	return nil
}

func (r *IntentRepo) List(ctx context.Context) ([]domain.PendingIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PendingIntent
	for _, id := range r.order {
		if intent, ok := r.intents[id]; ok {
			out = append(out, *intent)
		}
	}
	return out, nil
}

// --- Counter KV ---

type CounterKV struct {
	mu     sync.RWMutex
	values map[string]int64
}

func NewCounterKV() *CounterKV {
	return &CounterKV{values: make(map[string]int64)}
}

func (s *CounterKV) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *CounterKV) Put(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
