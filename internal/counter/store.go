// Package counter persists per-(mint, unit, keyset) blinding-index counters
// and restore cursors, and serializes all counter-consuming operations for
// the same key. Two in-flight swaps against one keyset must never present
// overlapping index ranges to the mint; operations on different keysets
// proceed independently.
//
// Persistence is local-only and never synced. Losing it cannot double-spend:
// the mint rejects a reused index loudly, and the conflict-skip path recovers.
// No cross-process coordination is attempted.
package counter

import (
	"context"
	"fmt"
	"sync"

	"nutpay/internal/core/ports"
	"nutpay/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	counterPrefix = "counter:"
	cursorPrefix  = "cursor:"
)

// Store is the keyed counter store. All methods are safe for concurrent use;
// counter-consuming sequences must run inside WithLock for their key.
type Store struct {
	kv  ports.CounterRepository
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a counter store over the given KV backing.
func NewStore(kv ports.CounterRepository, log zerolog.Logger) *Store {
	return &Store{
		kv:    kv,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex owning the given composite key.
func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// WithLock runs fn while holding the per-key lock. Calls for the same key
// execute one at a time in arrival order; calls for different keys do not
// block each other.
func (s *Store) WithLock(key string, fn func() error) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// NextCounter returns the next free blinding index for the key.
func (s *Store) NextCounter(ctx context.Context, key string) (uint32, error) {
	v, ok, err := s.kv.Get(ctx, counterPrefix+key)
	if err != nil {
		return 0, apperror.ErrStore(fmt.Errorf("read counter %s: %w", key, err))
	}
	if !ok {
		return 0, nil
	}
	return clampIndex(v), nil
}

// Advance marks `used` indices as consumed and returns the new next free
// index. The stored value never decreases.
func (s *Store) Advance(ctx context.Context, key string, used uint32) (uint32, error) {
	cur, err := s.NextCounter(ctx, key)
	if err != nil {
		return 0, err
	}
	next := cur + used
	if err := s.kv.Put(ctx, counterPrefix+key, int64(next)); err != nil {
		return 0, apperror.ErrStore(fmt.Errorf("advance counter %s: %w", key, err))
	}
	s.log.Debug().Str("key", key).Uint32("from", cur).Uint32("to", next).Msg("counter advanced")
	return next, nil
}

// EnsureAtLeast raises the counter to atLeast if it is lower, returning the
// resulting value. Used on signature-conflict skips and after restore scans.
func (s *Store) EnsureAtLeast(ctx context.Context, key string, atLeast uint32) (uint32, error) {
	cur, err := s.NextCounter(ctx, key)
	if err != nil {
		return 0, err
	}
	if cur >= atLeast {
		return cur, nil
	}
	if err := s.kv.Put(ctx, counterPrefix+key, int64(atLeast)); err != nil {
		return 0, apperror.ErrStore(fmt.Errorf("raise counter %s: %w", key, err))
	}
	return atLeast, nil
}

// Cursor returns the restore cursor for the key: the highest index scanned by
// recovery so far. Independent from the issuance counter.
func (s *Store) Cursor(ctx context.Context, key string) (uint32, error) {
	v, ok, err := s.kv.Get(ctx, cursorPrefix+key)
	if err != nil {
		return 0, apperror.ErrStore(fmt.Errorf("read cursor %s: %w", key, err))
	}
	if !ok {
		return 0, nil
	}
	return clampIndex(v), nil
}

// AdvanceCursor raises the restore cursor to `to` if it is lower.
func (s *Store) AdvanceCursor(ctx context.Context, key string, to uint32) error {
	cur, err := s.Cursor(ctx, key)
	if err != nil {
		return err
	}
	if cur >= to {
		return nil
	}
	if err := s.kv.Put(ctx, cursorPrefix+key, int64(to)); err != nil {
		return apperror.ErrStore(fmt.Errorf("advance cursor %s: %w", key, err))
	}
	return nil
}

func clampIndex(v int64) uint32 {
	if v < 0 {
		return 0
	}
	if v > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}
