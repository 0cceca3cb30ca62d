package counter

import (
	"context"
	"sync"
	"testing"

	"nutpay/internal/adapter/storage/memory"
	"nutpay/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *Store {
	return NewStore(memory.NewCounterKV(), zerolog.Nop())
}

func TestStore_NextCounter_StartsAtZero(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	next, err := s.NextCounter(ctx, "https://mint.a:sat:ks1")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), next)
}

func TestStore_Advance_Monotonic(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	key := domain.CounterKey("https://mint.a", "sat", "ks1")

	next, err := s.Advance(ctx, key, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), next)

	next, err = s.Advance(ctx, key, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), next)

	got, err := s.NextCounter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got)
}

func TestStore_EnsureAtLeast_NeverLowers(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	key := "https://mint.a:sat:ks1"

	got, err := s.EnsureAtLeast(ctx, key, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), got)

	// Lower target is ignored.
	got, err = s.EnsureAtLeast(ctx, key, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), got)

	got, err = s.EnsureAtLeast(ctx, key, 128)
	require.NoError(t, err)
	assert.Equal(t, uint32(128), got)
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	_, err := s.Advance(ctx, "https://mint.a:sat:ks1", 10)
	require.NoError(t, err)

	other, err := s.NextCounter(ctx, "https://mint.b:sat:ks1")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), other)
}

// Concurrent WithLock-guarded reservations on one key must never observe
// overlapping [counter, counter+used) ranges.
func TestStore_WithLock_NoOverlappingRanges(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	key := "https://mint.a:sat:ks1"

	const workers = 16
	const used = 5

	type span struct{ from, to uint32 }
	spans := make(chan span, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithLock(key, func() error {
				from, err := s.NextCounter(ctx, key)
				if err != nil {
					return err
				}
				to, err := s.Advance(ctx, key, used)
				if err != nil {
					return err
				}
				spans <- span{from: from, to: to}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(spans)

	seen := make(map[uint32]bool)
	count := 0
	for sp := range spans {
		assert.Equal(t, sp.from+used, sp.to)
		for i := sp.from; i < sp.to; i++ {
			assert.False(t, seen[i], "index %d reserved twice", i)
			seen[i] = true
		}
		count++
	}
	assert.Equal(t, workers, count)

	final, err := s.NextCounter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(workers*used), final)
}

func TestStore_Cursor_IndependentFromCounter(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	key := "https://mint.a:sat:ks1"

	_, err := s.Advance(ctx, key, 50)
	require.NoError(t, err)

	cur, err := s.Cursor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cur)

	require.NoError(t, s.AdvanceCursor(ctx, key, 30))
	cur, err = s.Cursor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), cur)

	// Cursor never lowers either.
	require.NoError(t, s.AdvanceCursor(ctx, key, 20))
	cur, err = s.Cursor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), cur)

	counter, err := s.NextCounter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), counter)
}
