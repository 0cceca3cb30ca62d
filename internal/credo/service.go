package credo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/internal/keyring"
	"nutpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// Service issues, verifies and settles Credo tokens, and keeps the
// outstanding-balance bookkeeping used for the exposure cap.
type Service struct {
	keys     *keyring.Keyring
	promises ports.PromiseRepository

	exposureCap uint64
	promiseTTL  time.Duration

	now func() time.Time
	log zerolog.Logger
}

// NewService creates the Credo service. exposureCap bounds the total
// outstanding amount across promises we issued; promiseTTL sets expiry on new
// promises.
func NewService(keys *keyring.Keyring, promises ports.PromiseRepository, exposureCap uint64, promiseTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		keys:        keys,
		promises:    promises,
		exposureCap: exposureCap,
		promiseTTL:  promiseTTL,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// IssuePromise builds, signs, records and serializes a new promise to the
// recipient. Refused when the exposure cap would be exceeded.
func (s *Service) IssuePromise(ctx context.Context, recipient string, amount uint64, unit string) (*domain.PromiseRecord, string, error) {
	if amount == 0 {
		return nil, "", apperror.ErrInvalidAmount()
	}

	outstanding, err := s.OutstandingIssued(ctx)
	if err != nil {
		return nil, "", err
	}
	if outstanding+amount > s.exposureCap {
		return nil, "", apperror.ErrExposureCapExceeded()
	}

	nonce, err := randomNonce()
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}

	now := s.now()
	payload := domain.PromisePayload{
		Type:      domain.PayloadTypePromise,
		Issuer:    s.keys.PublicKeyHex(),
		Recipient: recipient,
		Amount:    amount,
		Unit:      unit,
		Nonce:     nonce,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.promiseTTL).Unix(),
	}

	tok, err := s.signPromise(payload)
	if err != nil {
		return nil, "", err
	}

	rec := &domain.PromiseRecord{
		PromiseID: tok.ID,
		Token:     *tok,
		Direction: domain.PromiseIssued,
		Valid:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.promises.Insert(ctx, rec); err != nil {
		return nil, "", apperror.ErrStore(fmt.Errorf("insert promise: %w", err))
	}

	wire, err := EncodePromise(tok)
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}

	s.log.Info().
		Str("promise_id", tok.ID).
		Str("recipient", recipient).
		Uint64("amount", amount).
		Uint64("outstanding", outstanding+amount).
		Msg("promise issued")

	return rec, wire, nil
}

func (s *Service) signPromise(payload domain.PromisePayload) (*domain.PromiseToken, error) {
	id, err := ContentID(payload)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	digest, err := digestOf(id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	sig, err := s.keys.Sign(digest)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return &domain.PromiseToken{ID: id, Payload: payload, Signature: sig}, nil
}

// VerifyPromise checks a promise token: content id matches the payload
// (tamper check), issuer signature verifies, and expiry has not passed.
func (s *Service) VerifyPromise(tok *domain.PromiseToken) error {
	id, err := ContentID(tok.Payload)
	if err != nil {
		return apperror.InternalError(err)
	}
	if id != tok.ID {
		return apperror.ErrBadPromiseSignature()
	}
	digest, err := digestOf(id)
	if err != nil {
		return apperror.ErrBadPromiseSignature()
	}
	if !keyring.VerifySignature(tok.Payload.Issuer, digest, tok.Signature) {
		return apperror.ErrBadPromiseSignature()
	}
	if tok.Expired(s.now()) {
		return apperror.ErrPromiseExpired()
	}
	return nil
}

// ReceivePromise decodes and records an inbound promise. A promise that fails
// verification is still recorded with Valid=false so it stays visible;
// validity is derived, never a deletion trigger. Idempotent by promise id.
func (s *Service) ReceivePromise(ctx context.Context, wire string) (*domain.PromiseRecord, error) {
	tok, err := DecodePromise(wire)
	if err != nil {
		return nil, apperror.ErrDecodeFailed(err)
	}

	if existing, err := s.promises.Get(ctx, tok.ID); err != nil {
		return nil, apperror.ErrStore(err)
	} else if existing != nil {
		return existing, nil
	}

	verifyErr := s.VerifyPromise(tok)
	now := s.now()
	rec := &domain.PromiseRecord{
		PromiseID: tok.ID,
		Token:     *tok,
		Direction: domain.PromiseReceived,
		Valid:     verifyErr == nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.promises.Insert(ctx, rec); err != nil {
		return nil, apperror.ErrStore(fmt.Errorf("insert received promise: %w", err))
	}

	if verifyErr != nil {
		s.log.Warn().Err(verifyErr).Str("promise_id", tok.ID).Msg("recorded invalid promise")
	} else {
		s.log.Info().Str("promise_id", tok.ID).Uint64("amount", tok.Payload.Amount).Msg("promise received")
	}
	return rec, nil
}

// IssueSettlement signs a settlement for a promise we hold (we are the
// recipient, releasing the issuer's obligation). A nil amount settles fully.
func (s *Service) IssueSettlement(ctx context.Context, promiseID string, amount *uint64) (*domain.SettlementToken, string, error) {
	rec, err := s.promises.Get(ctx, promiseID)
	if err != nil {
		return nil, "", apperror.ErrStore(err)
	}
	if rec == nil {
		return nil, "", apperror.New("CRD_004", "Unknown promise", false)
	}
	if rec.Token.Payload.Recipient != s.keys.PublicKeyHex() {
		return nil, "", apperror.New("CRD_005", "Only the promise recipient can settle it", false)
	}

	payload := domain.SettlementPayload{
		Type:      domain.PayloadTypeSettlement,
		PromiseID: promiseID,
		Issuer:    rec.Token.Payload.Issuer,
		Recipient: rec.Token.Payload.Recipient,
		SettledAt: s.now().Unix(),
	}
	if amount != nil {
		amt := *amount
		unit := rec.Token.Payload.Unit
		nonce, err := randomNonce()
		if err != nil {
			return nil, "", apperror.InternalError(err)
		}
		payload.Amount = &amt
		payload.Unit = &unit
		payload.Nonce = &nonce
	}

	id, err := ContentID(payload)
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}
	digest, err := digestOf(id)
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}
	sig, err := s.keys.Sign(digest)
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}
	tok := &domain.SettlementToken{ID: id, Payload: payload, Signature: sig}

	// Track our own settlement locally as well.
	rec.ApplySettlement(tok.ID, payload.Amount)
	if err := s.promises.Update(ctx, rec); err != nil {
		return nil, "", apperror.ErrStore(fmt.Errorf("update promise: %w", err))
	}

	wire, err := EncodeSettlement(tok)
	if err != nil {
		return nil, "", apperror.InternalError(err)
	}
	return tok, wire, nil
}

// ApplySettlement verifies an inbound settlement and accumulates it into the
// referenced promise record. Duplicate deliveries are no-ops; the settled
// amount is clamped at the promise amount.
func (s *Service) ApplySettlement(ctx context.Context, wire string) (*domain.PromiseRecord, error) {
	tok, err := DecodeSettlement(wire)
	if err != nil {
		return nil, apperror.ErrDecodeFailed(err)
	}

	id, err := ContentID(tok.Payload)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if id != tok.ID {
		return nil, apperror.ErrBadPromiseSignature()
	}

	rec, err := s.promises.Get(ctx, tok.Payload.PromiseID)
	if err != nil {
		return nil, apperror.ErrStore(err)
	}
	if rec == nil {
		return nil, apperror.New("CRD_004", "Unknown promise", false)
	}

	// The settlement must be signed by the promise's recipient.
	digest, err := digestOf(id)
	if err != nil {
		return nil, apperror.ErrBadPromiseSignature()
	}
	if !keyring.VerifySignature(rec.Token.Payload.Recipient, digest, tok.Signature) {
		return nil, apperror.ErrBadPromiseSignature()
	}

	if rec.ApplySettlement(tok.ID, tok.Payload.Amount) {
		if err := s.promises.Update(ctx, rec); err != nil {
			return nil, apperror.ErrStore(fmt.Errorf("update promise: %w", err))
		}
		s.log.Info().
			Str("promise_id", rec.PromiseID).
			Uint64("settled", rec.SettledAmount).
			Uint64("outstanding", rec.Outstanding()).
			Msg("settlement applied")
	}
	return rec, nil
}

// ExposureCap returns the configured cap on total outstanding issued amount.
func (s *Service) ExposureCap() uint64 {
	return s.exposureCap
}

// OutstandingIssued sums the unsettled amount of valid, unexpired promises we
// issued. Expired promises no longer count as exposure.
func (s *Service) OutstandingIssued(ctx context.Context) (uint64, error) {
	issued, err := s.promises.ListByDirection(ctx, domain.PromiseIssued)
	if err != nil {
		return 0, apperror.ErrStore(err)
	}
	now := s.now()
	var total uint64
	for i := range issued {
		rec := &issued[i]
		if !rec.Valid || rec.Token.Expired(now) {
			continue
		}
		total += rec.Outstanding()
	}
	return total, nil
}

func randomNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
