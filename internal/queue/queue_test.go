package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"nutpay/internal/adapter/storage/memory"
	"nutpay/internal/core/domain"
	"nutpay/pkg/apperror"
	"nutpay/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSettler returns a per-contact error, or succeeds.
type scriptedSettler struct {
	errs    map[string]error
	calls   atomic.Int64
	entered sync.Once
	started chan struct{} // closed on first ReplayIntent entry, when set
	block   chan struct{} // when set, ReplayIntent waits here first
}

func (s *scriptedSettler) ReplayIntent(ctx context.Context, intent *domain.PendingIntent) error {
	if s.started != nil {
		s.entered.Do(func() { close(s.started) })
	}
	if s.block != nil {
		<-s.block
	}
	s.calls.Add(1)
	return s.errs[intent.ContactID]
}

func newQueue(settler Settler) (*Queue, *memory.IntentRepo) {
	repo := memory.NewIntentRepo()
	return New(repo, settler, metrics.Nop(), zerolog.Nop()), repo
}

func TestFlush_RemovesReplayedIntents(t *testing.T) {
	settler := &scriptedSettler{}
	q, repo := newQueue(settler)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("alice", 25, nil)))
	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("bob", 10, nil)))

	rep, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Replayed)
	assert.Zero(t, rep.Dropped)
	assert.Zero(t, rep.Kept)

	left, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestFlush_DropsIntentsForGoneContacts(t *testing.T) {
	settler := &scriptedSettler{errs: map[string]error{
		"ghost": apperror.ErrContactGone("ghost"),
	}}
	q, repo := newQueue(settler)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("ghost", 25, nil)))
	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("alice", 10, nil)))

	rep, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Replayed)
	assert.Equal(t, 1, rep.Dropped)

	left, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left, "gone-contact intents are removed without payment")
}

func TestFlush_DropsPartiallyDeliveredIntents(t *testing.T) {
	settler := &scriptedSettler{errs: map[string]error{
		"alice": apperror.ErrPartialDelivery(10, 25, errors.New("relay rejected event")),
	}}
	q, repo := newQueue(settler)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("alice", 25, nil)))

	rep, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Dropped)

	left, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left, "a partly delivered payment must never be replayed whole")
}

func TestFlush_KeepsRecoverableFailures(t *testing.T) {
	settler := &scriptedSettler{errs: map[string]error{
		"alice": apperror.ErrMintUnreachable("m", errors.New("dial")),
	}}
	q, repo := newQueue(settler)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("alice", 25, nil)))

	rep, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Kept)

	left, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1, "recoverable failures stay queued")

	// Next flush with the mint back succeeds.
	settler.errs = nil
	rep, err = q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Replayed)
}

func TestFlush_SingleFlight(t *testing.T) {
	settler := &scriptedSettler{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	q, repo := newQueue(settler)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.NewPendingIntent("alice", 25, nil)))

	var wg sync.WaitGroup
	var first *Report
	wg.Add(1)
	go func() {
		defer wg.Done()
		rep, err := q.Flush(ctx)
		assert.NoError(t, err)
		first = rep
	}()

	// The first caller holds the flush and is parked inside the settler.
	<-settler.started

	var second *Report
	wg.Add(1)
	go func() {
		defer wg.Done()
		rep, err := q.Flush(ctx)
		assert.NoError(t, err)
		second = rep
	}()

	close(settler.block)
	wg.Wait()

	assert.Equal(t, int64(1), settler.calls.Load(), "intent must be replayed exactly once")
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Replayed)
	require.NotNil(t, second)
	assert.Zero(t, second.Kept)

	left, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}
