// Package settlement sequences the wallet's money movements: receiving
// tokens, splitting for sends, melting to invoices and paying contacts.
// Every proof-creating mint call runs under the per-keyset counter lock so
// deterministic blinding indices are handed out without overlap.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/internal/counter"
	"nutpay/internal/credo"
	"nutpay/internal/selector"
	"nutpay/pkg/apperror"
	"nutpay/pkg/metrics"

	"github.com/rs/zerolog"
)

// Deliverer hands finished wire payloads (ecash tokens, promises) to a
// contact over the messaging transport.
type Deliverer interface {
	Deliver(ctx context.Context, recipientPubkey, kind, content string) error
}

// IntentQueue accepts payment intents that cannot be attempted right now.
type IntentQueue interface {
	Enqueue(ctx context.Context, intent *domain.PendingIntent) error
}

// Config is the orchestrator's tuning knobs.
type Config struct {
	Unit                string
	PreferredMint       string
	NetworkTimeout      time.Duration
	ConflictSkip        uint32
	MaxConflictAttempts int
	CredoEnabled        bool
}

// Deps wires the orchestrator's collaborators. Credo and Queue are optional;
// a nil Credo disables promise fallback, and Queue may be attached after
// construction to break the queue/orchestrator cycle.
type Deps struct {
	Ecash    ports.EcashClient
	Tokens   ports.TokenRepository
	Mints    ports.MintRepository
	Counters *counter.Store
	Credo    *credo.Service
	Probe    ports.ConnectivityProbe
	Contacts ports.ContactDirectory
	Deliver  Deliverer
	Queue    IntentQueue
	Metrics  *metrics.Metrics
}

// Orchestrator implements the settlement operations.
type Orchestrator struct {
	ecash    ports.EcashClient
	tokens   ports.TokenRepository
	mints    ports.MintRepository
	counters *counter.Store
	credo    *credo.Service
	probe    ports.ConnectivityProbe
	contacts ports.ContactDirectory
	deliver  Deliverer
	queue    IntentQueue

	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates the settlement orchestrator.
func New(deps Deps, cfg Config, log zerolog.Logger) *Orchestrator {
	if cfg.MaxConflictAttempts <= 0 {
		cfg.MaxConflictAttempts = 5
	}
	if cfg.ConflictSkip == 0 {
		cfg.ConflictSkip = 64
	}
	return &Orchestrator{
		ecash:    deps.Ecash,
		tokens:   deps.Tokens,
		mints:    deps.Mints,
		counters: deps.Counters,
		credo:    deps.Credo,
		probe:    deps.Probe,
		contacts: deps.Contacts,
		deliver:  deps.Deliver,
		queue:    deps.Queue,
		cfg:      cfg,
		metrics:  deps.Metrics,
		log:      log,
	}
}

// AttachQueue late-binds the offline queue. The queue needs the orchestrator
// to replay intents, so it is constructed second and attached here.
func (o *Orchestrator) AttachQueue(q IntentQueue) {
	o.queue = q
}

func (o *Orchestrator) mintCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.NetworkTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.NetworkTimeout)
}

// ---- Receive ----

// Receive swaps an inbound encoded token for fresh proofs at its mint and
// records the result. Idempotent on the inbound text: a token already
// recorded (and not soft-deleted) returns the existing record. A token the
// mint definitively rejects is recorded in error state so it stays visible;
// transient failures record nothing and are safe to retry.
func (o *Orchestrator) Receive(ctx context.Context, text string) (*domain.TokenRecord, error) {
	if existing, err := o.tokens.FindByText(ctx, text); err != nil {
		return nil, apperror.ErrStore(err)
	} else if existing != nil {
		return existing, nil
	}

	decoded, err := o.ecash.DecodeToken(text)
	if err != nil {
		o.metrics.IncSettlement("receive", "decode_failed")
		return nil, apperror.ErrDecodeFailed(err)
	}
	if decoded.Proofs.Sum() == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	fresh, err := o.receiveWithCounter(ctx, decoded)
	if err != nil {
		if isDefinitiveInvalid(err) {
			rec := domain.NewTokenRecord(text, decoded.Mint, decoded.Unit, decoded.Proofs.Sum())
			rec.State = domain.TokenStateError
			msg := err.Error()
			rec.ErrorText = &msg
			if ierr := o.tokens.Insert(ctx, rec); ierr != nil {
				return nil, apperror.ErrStore(ierr)
			}
			o.metrics.IncSettlement("receive", "invalid")
			return nil, apperror.ErrDefinitiveInvalid(err)
		}
		o.metrics.IncSettlement("receive", "error")
		return nil, err
	}

	encoded, err := o.ecash.EncodeToken(&ports.DecodedToken{
		Mint:   decoded.Mint,
		Unit:   decoded.Unit,
		Proofs: fresh,
	})
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	rec := domain.NewTokenRecord(encoded, decoded.Mint, decoded.Unit, fresh.Sum())
	// Keep the inbound text so a re-received duplicate resolves to this record.
	rec.RawToken = text
	if err := o.tokens.Insert(ctx, rec); err != nil {
		return nil, apperror.ErrStore(err)
	}

	o.metrics.IncSettlement("receive", "ok")
	o.log.Info().
		Str("mint", rec.MintURL).
		Uint64("amount", rec.Amount).
		Msg("token received")
	return rec, nil
}

// receiveWithCounter runs the receive swap under the keyset counter lock,
// skipping forward on signature conflicts.
func (o *Orchestrator) receiveWithCounter(ctx context.Context, decoded *ports.DecodedToken) (domain.Proofs, error) {
	kctx, cancel := o.mintCtx(ctx)
	keysetID, err := o.ecash.ActiveKeyset(kctx, decoded.Mint, decoded.Unit)
	cancel()
	if err != nil {
		return nil, apperror.ErrMintUnreachable(decoded.Mint, err)
	}
	key := domain.CounterKey(decoded.Mint, decoded.Unit, keysetID)

	var fresh domain.Proofs
	err = o.counters.WithLock(key, func() error {
		return withRetry(ctx, o.cfg.MaxConflictAttempts, func(attempt int) error {
			next, err := o.counters.NextCounter(ctx, key)
			if err != nil {
				return err
			}
			c := next
			mctx, cancel := o.mintCtx(ctx)
			got, err := o.ecash.Receive(mctx, decoded, ports.BlindOptions{Counter: &c})
			cancel()
			if err != nil {
				if isSignatureConflict(err) {
					o.metrics.IncCounterConflict()
					if _, serr := o.counters.EnsureAtLeast(ctx, key, next+o.cfg.ConflictSkip); serr != nil {
						return serr
					}
					o.log.Warn().Str("key", key).Uint32("skipped_to", next+o.cfg.ConflictSkip).Msg("signature conflict, counter skipped")
					return apperror.ErrSignatureConflict(err)
				}
				return err
			}
			fresh = got
			_, err = o.counters.Advance(ctx, key, uint32(len(got)))
			return err
		}, isSignatureConflict)
	})
	if err != nil {
		if isSignatureConflict(err) {
			return nil, apperror.ErrConflictExhausted(o.cfg.MaxConflictAttempts, err)
		}
		return nil, err
	}
	return fresh, nil
}

// ---- SendSplit ----

// SendResult is the outcome of a split: the token to hand over, the change
// record kept in the wallet, and the pending record tracking the outbound
// token until delivery is confirmed.
type SendResult struct {
	SendToken  string
	SendRecord *domain.TokenRecord // pending until delivery, soft-deleted after
	KeepRecord *domain.TokenRecord // nil when no change remains
	Merged     bool                // true when fees made a network swap pointless
}

// SendSplit turns source records from one mint into a send token of the
// requested amount plus change. Replacement records are always persisted
// before the sources are soft-deleted; a crash in between leaves duplicates
// for reconciliation, never a gap.
//
// When the change left after the swap would not exceed the swap fee, the
// sources are merged locally instead: the full proof set becomes the send
// token and no mint call is made.
func (o *Orchestrator) SendSplit(ctx context.Context, sources []domain.TokenRecord, amount uint64) (*SendResult, error) {
	if amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if len(sources) == 0 {
		return nil, apperror.ErrInsufficientFunds()
	}

	mint := domain.NormalizeMintURL(sources[0].MintURL)
	unit := sources[0].Unit
	for _, src := range sources {
		if domain.NormalizeMintURL(src.MintURL) != mint {
			return nil, apperror.ErrMixedMints()
		}
		if !src.Live() {
			return nil, apperror.Wrap("TOK_001", "Source record is not spendable", false,
				fmt.Errorf("record %s state=%s deleted=%t", src.ID, src.State, src.Deleted))
		}
	}

	proofs, err := o.decodeSources(sources)
	if err != nil {
		return nil, err
	}
	total := proofs.Sum()
	if total < amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	fctx, cancel := o.mintCtx(ctx)
	fee, err := o.ecash.SwapFee(fctx, mint, unit, proofs)
	cancel()
	if err != nil {
		return nil, apperror.ErrMintUnreachable(mint, err)
	}

	if total-amount <= fee {
		return o.localMerge(ctx, mint, unit, proofs, sources)
	}

	keep, send, err := o.swapWithCounter(ctx, mint, unit, amount, proofs)
	if err != nil {
		o.metrics.IncSettlement("send_split", "error")
		return nil, err
	}

	res, err := o.persistSplit(ctx, mint, unit, keep, send, sources)
	if err != nil {
		return nil, err
	}
	o.metrics.IncSettlement("send_split", "ok")
	o.log.Info().
		Str("mint", mint).
		Uint64("send", send.Sum()).
		Uint64("keep", keep.Sum()).
		Msg("split completed")
	return res, nil
}

// localMerge consolidates the sources into a single token without touching
// the mint. The whole proof set becomes the send token; the overshoot is
// smaller than the fee a swap would have burned.
func (o *Orchestrator) localMerge(ctx context.Context, mint, unit string, proofs domain.Proofs, sources []domain.TokenRecord) (*SendResult, error) {
	encoded, err := o.ecash.EncodeToken(&ports.DecodedToken{Mint: mint, Unit: unit, Proofs: proofs})
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	sendRec := domain.NewTokenRecord(encoded, mint, unit, proofs.Sum())
	sendRec.State = domain.TokenStatePending
	if err := o.tokens.Insert(ctx, sendRec); err != nil {
		return nil, apperror.ErrStore(err)
	}
	if err := o.softDeleteAll(ctx, sources); err != nil {
		return nil, err
	}

	o.metrics.IncSettlement("send_split", "merged")
	o.log.Info().Str("mint", mint).Uint64("amount", proofs.Sum()).Msg("local merge, swap skipped")
	return &SendResult{SendToken: encoded, SendRecord: sendRec, Merged: true}, nil
}

// persistSplit writes the replacement records for a completed swap and only
// then retires the sources.
func (o *Orchestrator) persistSplit(ctx context.Context, mint, unit string, keep, send domain.Proofs, sources []domain.TokenRecord) (*SendResult, error) {
	res := &SendResult{}

	if len(keep) > 0 {
		keepEncoded, err := o.ecash.EncodeToken(&ports.DecodedToken{Mint: mint, Unit: unit, Proofs: keep})
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		keepRec := domain.NewTokenRecord(keepEncoded, mint, unit, keep.Sum())
		if err := o.tokens.Insert(ctx, keepRec); err != nil {
			return nil, apperror.ErrStore(err)
		}
		res.KeepRecord = keepRec
	}

	sendEncoded, err := o.ecash.EncodeToken(&ports.DecodedToken{Mint: mint, Unit: unit, Proofs: send})
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	sendRec := domain.NewTokenRecord(sendEncoded, mint, unit, send.Sum())
	sendRec.State = domain.TokenStatePending
	if err := o.tokens.Insert(ctx, sendRec); err != nil {
		return nil, apperror.ErrStore(err)
	}
	res.SendToken = sendEncoded
	res.SendRecord = sendRec

	if err := o.softDeleteAll(ctx, sources); err != nil {
		return nil, err
	}
	return res, nil
}

// ---- Melt ----

// MeltResult is the outcome of paying an invoice from the ecash balance.
type MeltResult struct {
	Preimage     string
	AmountPaid   uint64
	FeePaid      uint64
	ChangeRecord *domain.TokenRecord // nil when the mint returned no change
}

// Melt pays a Lightning invoice from the wallet balance. Mints are tried in
// spend-plan order; the first one whose balance covers the quoted amount plus
// fee reserve is used. The swapped melt inputs are persisted as a pending
// recovery record before the melt executes, so a failure after the swap
// returns a RecoveryError carrying spendable ecash instead of stranding it.
func (o *Orchestrator) Melt(ctx context.Context, invoice string) (*MeltResult, error) {
	balances, err := o.loadBalances(ctx)
	if err != nil {
		return nil, err
	}
	plan := selector.BuildSpendPlan(balances, o.cfg.PreferredMint, 0)
	if len(plan) == 0 {
		return nil, apperror.ErrInsufficientFunds()
	}

	for _, cand := range plan {
		qctx, cancel := o.mintCtx(ctx)
		quote, err := o.ecash.CreateMeltQuote(qctx, cand.Mint, o.cfg.Unit, invoice)
		cancel()
		if err != nil {
			if isTransient(err) {
				o.log.Warn().Err(err).Str("mint", cand.Mint).Msg("melt quote failed, trying next mint")
				continue
			}
			return nil, apperror.ErrMintUnreachable(cand.Mint, err)
		}

		needed := quote.Amount + quote.FeeReserve
		if cand.Sum < needed {
			continue
		}

		res, err := o.meltAt(ctx, cand, quote, needed)
		if err != nil && isTransient(err) && apperror.AsRecovery(err) == nil {
			o.log.Warn().Err(err).Str("mint", cand.Mint).Msg("melt failed before swap, trying next mint")
			continue
		}
		if err != nil {
			o.metrics.IncSettlement("melt", "error")
			return nil, err
		}
		o.metrics.IncSettlement("melt", "ok")
		return res, nil
	}
	return nil, apperror.ErrInsufficientFunds()
}

func (o *Orchestrator) meltAt(ctx context.Context, cand selector.Candidate, quote *ports.MeltQuote, needed uint64) (*MeltResult, error) {
	sources := pickSources(cand.Records, needed)
	proofs, err := o.decodeSources(sources)
	if err != nil {
		return nil, err
	}

	keep, send, err := o.swapWithCounter(ctx, cand.Mint, o.cfg.Unit, needed, proofs)
	if err != nil {
		return nil, err
	}

	// The swap consumed the sources at the mint. Persist both outputs before
	// anything else can fail: the change as spendable, the melt inputs as a
	// pending recovery record.
	if len(keep) > 0 {
		keepEncoded, err := o.ecash.EncodeToken(&ports.DecodedToken{Mint: cand.Mint, Unit: o.cfg.Unit, Proofs: keep})
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		keepRec := domain.NewTokenRecord(keepEncoded, cand.Mint, o.cfg.Unit, keep.Sum())
		if err := o.tokens.Insert(ctx, keepRec); err != nil {
			return nil, apperror.ErrStore(err)
		}
	}

	recoveryEncoded, err := o.ecash.EncodeToken(&ports.DecodedToken{Mint: cand.Mint, Unit: o.cfg.Unit, Proofs: send})
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	recoveryRec := domain.NewTokenRecord(recoveryEncoded, cand.Mint, o.cfg.Unit, send.Sum())
	recoveryRec.State = domain.TokenStatePending
	if err := o.tokens.Insert(ctx, recoveryRec); err != nil {
		return nil, apperror.ErrStore(err)
	}
	if err := o.softDeleteAll(ctx, sources); err != nil {
		return nil, err
	}

	outcome, meltErr := o.meltWithCounter(ctx, cand.Mint, o.cfg.Unit, quote, send)
	if meltErr == nil && outcome != nil && !outcome.Paid {
		meltErr = fmt.Errorf("mint reported melt quote %s unpaid", quote.ID)
	}
	if meltErr != nil {
		// The melt inputs are still unspent ecash. Flip the recovery record
		// to spendable and surface the token to the caller.
		recoveryRec.State = domain.TokenStateAccepted
		recoveryRec.UpdatedAt = time.Now().UTC()
		if uerr := o.tokens.Update(ctx, recoveryRec); uerr != nil {
			return nil, apperror.ErrStore(uerr)
		}
		o.log.Error().Err(meltErr).
			Str("mint", cand.Mint).
			Uint64("recoverable", send.Sum()).
			Msg("melt failed after swap, inputs recovered")
		return nil, apperror.NewRecoveryError(recoveryEncoded, send.Sum(), meltErr)
	}

	// Paid. The melt inputs are spent; retire the recovery record and keep
	// any fee-reserve change the mint returned.
	if err := o.tokens.SoftDelete(ctx, recoveryRec.ID); err != nil {
		return nil, apperror.ErrStore(err)
	}
	res := &MeltResult{
		Preimage:   outcome.Preimage,
		AmountPaid: quote.Amount,
		FeePaid:    outcome.FeePaid,
	}
	if len(outcome.Change) > 0 {
		changeEncoded, err := o.ecash.EncodeToken(&ports.DecodedToken{Mint: cand.Mint, Unit: o.cfg.Unit, Proofs: outcome.Change})
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		changeRec := domain.NewTokenRecord(changeEncoded, cand.Mint, o.cfg.Unit, outcome.Change.Sum())
		if err := o.tokens.Insert(ctx, changeRec); err != nil {
			return nil, apperror.ErrStore(err)
		}
		res.ChangeRecord = changeRec
	}
	o.log.Info().
		Str("mint", cand.Mint).
		Uint64("amount", quote.Amount).
		Uint64("fee", outcome.FeePaid).
		Msg("invoice melted")
	return res, nil
}

// ---- Pay ----

// PayStatus describes how a payment to a contact concluded.
type PayStatus string

const (
	PayDelivered PayStatus = "delivered" // tokens handed to the transport
	PayQueued    PayStatus = "queued"    // stored for replay, wallet offline
	PayPromised  PayStatus = "promised"  // shortfall covered by a Credo promise
)

// PayResult is the outcome of a contact payment.
type PayResult struct {
	Status      PayStatus
	SentTokens  []string
	SentAmount  uint64
	PromiseWire string // set when a promise covered part of the amount
	IntentID    string // set when the payment was queued
}

// Pay sends amount to the contact. Offline, the payment is queued for later
// replay. Online, the spend plan is drained mint by mint; a shortfall the
// ecash balance cannot cover falls back to a Credo promise when enabled and
// within the exposure cap, otherwise the payment is refused before anything
// is spent.
func (o *Orchestrator) Pay(ctx context.Context, contactID string, amount uint64, messageID *string) (*PayResult, error) {
	if amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if !o.probe.Online() {
		if o.queue == nil {
			return nil, apperror.ErrMintUnreachable("", errors.New("wallet offline and no queue attached"))
		}
		intent := domain.NewPendingIntent(contactID, amount, messageID)
		if err := o.queue.Enqueue(ctx, intent); err != nil {
			return nil, err
		}
		o.metrics.IncSettlement("pay", "queued")
		o.log.Info().Str("contact", contactID).Uint64("amount", amount).Msg("offline, payment queued")
		return &PayResult{Status: PayQueued, IntentID: intent.ID.String()}, nil
	}

	return o.payOnline(ctx, contactID, amount)
}

// ReplayIntent re-runs a queued payment. Offline replays fail retryably so
// the queue keeps the intent; a vanished contact fails permanently.
func (o *Orchestrator) ReplayIntent(ctx context.Context, intent *domain.PendingIntent) error {
	if !o.probe.Online() {
		return apperror.ErrMintUnreachable("", errors.New("still offline"))
	}
	_, err := o.payOnline(ctx, intent.ContactID, intent.AmountSat)
	return err
}

func (o *Orchestrator) payOnline(ctx context.Context, contactID string, amount uint64) (*PayResult, error) {
	pubkey, ok, err := o.contacts.PubKey(ctx, contactID)
	if err != nil {
		return nil, apperror.ErrStore(err)
	}
	if !ok {
		return nil, apperror.ErrContactGone(contactID)
	}

	balances, err := o.loadBalances(ctx)
	if err != nil {
		return nil, err
	}
	plan := selector.BuildSpendPlan(balances, o.cfg.PreferredMint, amount)

	// Decide the promise shortfall up front so an uncoverable payment is
	// refused before any proofs move.
	available := selector.PlanTotal(plan)
	var shortfall uint64
	if available < amount {
		shortfall = amount - available
		if o.credo == nil || !o.cfg.CredoEnabled {
			return nil, apperror.ErrInsufficientFunds()
		}
		outstanding, err := o.credo.OutstandingIssued(ctx)
		if err != nil {
			return nil, err
		}
		if outstanding+shortfall > o.credo.ExposureCap() {
			return nil, apperror.ErrInsufficientFunds()
		}
	}

	res := &PayResult{Status: PayDelivered}
	remaining := amount - shortfall

	// Split every candidate before anything is handed to the transport. A
	// late mint failure then aborts with nothing delivered, so a replayed
	// intent can never pay an earlier portion twice.
	var splits []*SendResult
	for _, cand := range plan {
		if remaining == 0 {
			break
		}
		take := remaining
		if cand.Sum < take {
			take = cand.Sum
		}
		split, err := o.SendSplit(ctx, cand.Records, take)
		if err != nil {
			if isTransient(err) {
				o.log.Warn().Err(err).Str("mint", cand.Mint).Msg("mint unavailable, trying next candidate")
				continue
			}
			o.restoreSplits(ctx, splits)
			return nil, err
		}
		splits = append(splits, split)
		remaining -= take
	}
	if remaining > 0 {
		// Every candidate with enough balance failed transiently. The splits
		// already made go back to spendable; nothing was delivered.
		o.restoreSplits(ctx, splits)
		o.metrics.IncSettlement("pay", "error")
		return nil, apperror.ErrMintUnreachable("", fmt.Errorf("no mint could cover remaining %d", remaining))
	}

	for i, split := range splits {
		if err := o.deliverToken(ctx, pubkey, split); err != nil {
			o.restoreSplits(ctx, splits[i:])
			o.metrics.IncSettlement("pay", "error")
			if res.SentAmount > 0 {
				return nil, apperror.ErrPartialDelivery(res.SentAmount, amount, err)
			}
			return nil, err
		}
		res.SentTokens = append(res.SentTokens, split.SendToken)
		res.SentAmount += split.SendRecord.Amount
	}

	if shortfall > 0 {
		_, wire, err := o.credo.IssuePromise(ctx, pubkey, shortfall, o.cfg.Unit)
		if err != nil {
			return nil, err
		}
		if err := o.deliver.Deliver(ctx, pubkey, "promise", wire); err != nil {
			return nil, err
		}
		o.metrics.IncPromiseIssued()
		res.PromiseWire = wire
		res.Status = PayPromised
	}

	o.metrics.IncSettlement("pay", "ok")
	o.log.Info().
		Str("contact", contactID).
		Uint64("amount", amount).
		Uint64("ecash", res.SentAmount).
		Uint64("promised", shortfall).
		Msg("payment completed")
	return res, nil
}

// restoreSplits flips undelivered send records back to spendable after an
// aborted payment. The proofs never left the wallet, so the balance they
// carry is intact.
func (o *Orchestrator) restoreSplits(ctx context.Context, splits []*SendResult) {
	for _, split := range splits {
		rec := split.SendRecord
		rec.State = domain.TokenStateAccepted
		rec.UpdatedAt = time.Now().UTC()
		if err := o.tokens.Update(ctx, rec); err != nil {
			o.log.Error().Err(err).Str("record", rec.ID.String()).Msg("restoring undelivered split failed")
		}
	}
}

// deliverToken publishes the send token and retires its pending record once
// the transport accepted it. A delivery failure leaves the record pending so
// the token stays recoverable.
func (o *Orchestrator) deliverToken(ctx context.Context, pubkey string, split *SendResult) error {
	if err := o.deliver.Deliver(ctx, pubkey, "token", split.SendToken); err != nil {
		o.log.Error().Err(err).Msg("token delivery failed, pending record retained")
		return err
	}
	return o.tokens.SoftDelete(ctx, split.SendRecord.ID)
}

// ---- shared helpers ----

// swapWithCounter runs a split swap under the keyset counter lock with
// conflict-skip retries.
func (o *Orchestrator) swapWithCounter(ctx context.Context, mint, unit string, amount uint64, proofs domain.Proofs) (domain.Proofs, domain.Proofs, error) {
	kctx, cancel := o.mintCtx(ctx)
	keysetID, err := o.ecash.ActiveKeyset(kctx, mint, unit)
	cancel()
	if err != nil {
		return nil, nil, apperror.ErrMintUnreachable(mint, err)
	}
	key := domain.CounterKey(mint, unit, keysetID)

	var keep, send domain.Proofs
	err = o.counters.WithLock(key, func() error {
		return withRetry(ctx, o.cfg.MaxConflictAttempts, func(attempt int) error {
			next, err := o.counters.NextCounter(ctx, key)
			if err != nil {
				return err
			}
			c := next
			mctx, cancel := o.mintCtx(ctx)
			k, s, err := o.ecash.Swap(mctx, mint, unit, amount, proofs, ports.BlindOptions{Counter: &c})
			cancel()
			if err != nil {
				if isSignatureConflict(err) {
					o.metrics.IncCounterConflict()
					if _, serr := o.counters.EnsureAtLeast(ctx, key, next+o.cfg.ConflictSkip); serr != nil {
						return serr
					}
					o.log.Warn().Str("key", key).Uint32("skipped_to", next+o.cfg.ConflictSkip).Msg("signature conflict, counter skipped")
					return apperror.ErrSignatureConflict(err)
				}
				return err
			}
			keep, send = k, s
			_, err = o.counters.Advance(ctx, key, uint32(len(k)+len(s)))
			return err
		}, isSignatureConflict)
	})
	if err != nil {
		if isSignatureConflict(err) {
			return nil, nil, apperror.ErrConflictExhausted(o.cfg.MaxConflictAttempts, err)
		}
		return nil, nil, err
	}
	return keep, send, nil
}

// meltWithCounter executes a melt under the keyset counter lock. The mint
// blinds its fee-reserve change against the deterministic sequence, so the
// change stays inside the seed and a restore scan can find it.
func (o *Orchestrator) meltWithCounter(ctx context.Context, mint, unit string, quote *ports.MeltQuote, send domain.Proofs) (*ports.MeltOutcome, error) {
	kctx, cancel := o.mintCtx(ctx)
	keysetID, err := o.ecash.ActiveKeyset(kctx, mint, unit)
	cancel()
	if err != nil {
		return nil, apperror.ErrMintUnreachable(mint, err)
	}
	key := domain.CounterKey(mint, unit, keysetID)

	var outcome *ports.MeltOutcome
	err = o.counters.WithLock(key, func() error {
		return withRetry(ctx, o.cfg.MaxConflictAttempts, func(attempt int) error {
			next, err := o.counters.NextCounter(ctx, key)
			if err != nil {
				return err
			}
			c := next
			mctx, cancel := o.mintCtx(ctx)
			out, err := o.ecash.MeltProofs(mctx, mint, quote, send, ports.BlindOptions{Counter: &c})
			cancel()
			if err != nil {
				if isSignatureConflict(err) {
					o.metrics.IncCounterConflict()
					if _, serr := o.counters.EnsureAtLeast(ctx, key, next+o.cfg.ConflictSkip); serr != nil {
						return serr
					}
					o.log.Warn().Str("key", key).Uint32("skipped_to", next+o.cfg.ConflictSkip).Msg("signature conflict, counter skipped")
					return apperror.ErrSignatureConflict(err)
				}
				return err
			}
			outcome = out
			if n := len(out.Change); n > 0 {
				if _, err := o.counters.Advance(ctx, key, uint32(n)); err != nil {
					return err
				}
			}
			return nil
		}, isSignatureConflict)
	})
	if err != nil {
		if isSignatureConflict(err) {
			return nil, apperror.ErrConflictExhausted(o.cfg.MaxConflictAttempts, err)
		}
		return nil, err
	}
	return outcome, nil
}

func (o *Orchestrator) decodeSources(sources []domain.TokenRecord) (domain.Proofs, error) {
	var proofs domain.Proofs
	for _, src := range sources {
		decoded, err := o.ecash.DecodeToken(src.EncodedToken)
		if err != nil {
			return nil, apperror.ErrDecodeFailed(fmt.Errorf("stored record %s: %w", src.ID, err))
		}
		proofs = append(proofs, decoded.Proofs...)
	}
	return proofs, nil
}

func (o *Orchestrator) softDeleteAll(ctx context.Context, sources []domain.TokenRecord) error {
	for _, src := range sources {
		if err := o.tokens.SoftDelete(ctx, src.ID); err != nil {
			return apperror.ErrStore(err)
		}
	}
	return nil
}

func (o *Orchestrator) loadBalances(ctx context.Context) (map[string]selector.MintBalance, error) {
	records, err := o.tokens.ListLive(ctx)
	if err != nil {
		return nil, apperror.ErrStore(err)
	}
	mints, err := o.mints.List(ctx)
	if err != nil {
		return nil, apperror.ErrStore(err)
	}
	return selector.GroupBalances(records, mints), nil
}

// pickSources takes records in order until their sum covers needed.
func pickSources(records []domain.TokenRecord, needed uint64) []domain.TokenRecord {
	var out []domain.TokenRecord
	var sum uint64
	for _, rec := range records {
		out = append(out, rec)
		sum += rec.Amount
		if sum >= needed {
			break
		}
	}
	return out
}
