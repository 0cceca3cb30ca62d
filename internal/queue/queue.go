// Package queue holds payment intents recorded while the wallet was offline
// and replays them when connectivity returns. Flushes are single-flight: a
// flush requested while one is running joins the running one instead of
// replaying intents twice.
package queue

import (
	"context"
	"sync"

	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/pkg/apperror"
	"nutpay/pkg/metrics"

	"github.com/rs/zerolog"
)

// Settler replays one queued intent. A nil error means the payment went
// through; a QUE_001 error means it never can.
type Settler interface {
	ReplayIntent(ctx context.Context, intent *domain.PendingIntent) error
}

// Report summarizes one flush run.
type Report struct {
	Replayed int // intents paid and removed
	Dropped  int // intents removed as permanently failed
	Kept     int // intents kept for a later flush
}

// Queue is the offline payment queue.
type Queue struct {
	intents ports.IntentRepository
	settler Settler
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu       sync.Mutex
	flushing bool
	done     chan struct{}
	report   *Report
	flushErr error
}

// New creates the queue over the intent repository.
func New(intents ports.IntentRepository, settler Settler, m *metrics.Metrics, log zerolog.Logger) *Queue {
	return &Queue{
		intents: intents,
		settler: settler,
		metrics: m,
		log:     log,
	}
}

// Enqueue records an intent for later replay.
func (q *Queue) Enqueue(ctx context.Context, intent *domain.PendingIntent) error {
	if err := q.intents.Insert(ctx, intent); err != nil {
		return apperror.ErrStore(err)
	}
	if n, err := q.Depth(ctx); err == nil {
		q.metrics.SetQueueDepth(n)
	}
	q.log.Info().
		Str("intent", intent.ID.String()).
		Str("contact", intent.ContactID).
		Uint64("amount", intent.AmountSat).
		Msg("payment intent queued")
	return nil
}

// Depth returns the number of pending intents.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	intents, err := q.intents.List(ctx)
	if err != nil {
		return 0, apperror.ErrStore(err)
	}
	return len(intents), nil
}

// Flush replays every pending intent. Successful and permanently failed
// intents are removed; recoverable failures stay queued for the next flush.
// Concurrent callers join the in-flight flush and share its result.
func (q *Queue) Flush(ctx context.Context) (*Report, error) {
	q.mu.Lock()
	if q.flushing {
		done := q.done
		q.mu.Unlock()
		select {
		case <-done:
			q.mu.Lock()
			rep, err := q.report, q.flushErr
			q.mu.Unlock()
			return rep, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	q.flushing = true
	q.done = make(chan struct{})
	q.mu.Unlock()

	rep, err := q.flush(ctx)

	q.mu.Lock()
	q.flushing = false
	q.report = rep
	q.flushErr = err
	close(q.done)
	q.mu.Unlock()
	return rep, err
}

func (q *Queue) flush(ctx context.Context) (*Report, error) {
	intents, err := q.intents.List(ctx)
	if err != nil {
		q.metrics.IncFlush("error")
		return nil, apperror.ErrStore(err)
	}

	rep := &Report{}
	for i := range intents {
		intent := intents[i]
		if err := ctx.Err(); err != nil {
			rep.Kept += len(intents) - i
			break
		}

		err := q.settler.ReplayIntent(ctx, &intent)
		switch {
		case err == nil:
			if derr := q.intents.Delete(ctx, intent.ID); derr != nil {
				q.metrics.IncFlush("error")
				return rep, apperror.ErrStore(derr)
			}
			rep.Replayed++
		case apperror.IsCode(err, "QUE_001"), apperror.IsCode(err, "PAY_003"):
			// QUE_001: replaying can never succeed. PAY_003: part of the
			// amount was already delivered, so replaying the full intent
			// would pay that part twice. Drop either way.
			q.log.Warn().Err(err).
				Str("intent", intent.ID.String()).
				Str("contact", intent.ContactID).
				Msg("dropping intent, replay would never be safe")
			if derr := q.intents.Delete(ctx, intent.ID); derr != nil {
				q.metrics.IncFlush("error")
				return rep, apperror.ErrStore(derr)
			}
			rep.Dropped++
		default:
			q.log.Warn().Err(err).
				Str("intent", intent.ID.String()).
				Msg("replay failed, intent kept")
			rep.Kept++
		}
	}

	if n, err := q.Depth(ctx); err == nil {
		q.metrics.SetQueueDepth(n)
	}
	if rep.Kept > 0 {
		q.metrics.IncFlush("partial")
	} else {
		q.metrics.IncFlush("ok")
	}
	q.log.Info().
		Int("replayed", rep.Replayed).
		Int("dropped", rep.Dropped).
		Int("kept", rep.Kept).
		Msg("queue flushed")
	return rep, nil
}
