// Package transport publishes gift-wrapped payloads (ecash tokens, Credo
// promises and settlements, chat text) to the relay set. Every outbound
// payload is wrapped twice: once for the recipient and once for the sender's
// own key, so the sender's other devices see the send.
package transport

import (
	"context"
	"errors"
	"time"

	"nutpay/internal/core/ports"
	"nutpay/internal/keyring"
	"nutpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// Config tunes publish behavior.
type Config struct {
	Relays         []string
	PublishTimeout time.Duration
	MaxAttempts    int
	Backoff        time.Duration
}

// Publisher delivers wrapped envelopes with bounded retries.
type Publisher struct {
	transport ports.MessageTransport
	keys      *keyring.Keyring
	cfg       Config
	log       zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPublisher creates a publisher over the relay transport.
func NewPublisher(t ports.MessageTransport, keys *keyring.Keyring, cfg Config, log zerolog.Logger) *Publisher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 15 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Publisher{
		transport: t,
		keys:      keys,
		cfg:       cfg,
		log:       log,
		sleep:     sleepCtx,
	}
}

// Deliver wraps content for the recipient and the sender's own key and
// publishes both, retrying with linear backoff until a relay accepts them.
func (p *Publisher) Deliver(ctx context.Context, recipientPubkey, kind, content string) error {
	if len(p.cfg.Relays) == 0 {
		return apperror.ErrRelayPublishFailed(errors.New("no relays configured"))
	}

	ev := ports.Envelope{
		Kind:      kind,
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}
	senderKey := p.keys.PrivateKeyBytes()

	recipientWrap, err := p.transport.Wrap(ev, senderKey, recipientPubkey)
	if err != nil {
		return apperror.InternalError(err)
	}
	selfWrap, err := p.transport.Wrap(ev, senderKey, p.keys.PublicKeyHex())
	if err != nil {
		return apperror.InternalError(err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		accepted, err := p.transport.Publish(pctx, p.cfg.Relays, recipientWrap, selfWrap)
		cancel()
		if err == nil && accepted {
			p.log.Debug().
				Str("kind", kind).
				Str("recipient", recipientPubkey).
				Int("attempt", attempt).
				Msg("wrapped event published")
			return nil
		}
		if err == nil {
			err = errors.New("no relay accepted the event")
		}
		lastErr = err
		p.log.Warn().Err(err).
			Str("kind", kind).
			Int("attempt", attempt).
			Msg("publish attempt failed")

		if attempt < p.cfg.MaxAttempts {
			if serr := p.sleep(ctx, p.cfg.Backoff*time.Duration(attempt)); serr != nil {
				return serr
			}
		}
	}
	return apperror.ErrRelayPublishFailed(lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
