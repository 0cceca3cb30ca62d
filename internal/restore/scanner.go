// Package restore rebuilds wallet balance from the deterministic seed. The
// scanner asks the mint to re-issue signatures for blinding indices it has
// seen, filters out proofs the wallet already holds or the mint reports
// spent, and adopts the remainder as fresh records.
package restore

import (
	"context"
	"fmt"

	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/internal/counter"
	"nutpay/pkg/apperror"
	"nutpay/pkg/metrics"

	"github.com/rs/zerolog"
)

// Config tunes the scan behavior.
type Config struct {
	Window    uint32 // indices scanned behind the high-water mark
	BatchSize int    // restore batch per mint call
	Lookahead int    // empty batches tolerated before the mint scan stops
	ChunkSize int    // max proofs per adopted record
}

// Scanner performs restore scans per (mint, unit, keyset).
type Scanner struct {
	ecash    ports.EcashClient
	tokens   ports.TokenRepository
	counters *counter.Store

	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewScanner creates a restore scanner.
func NewScanner(ecash ports.EcashClient, tokens ports.TokenRepository, counters *counter.Store, cfg Config, m *metrics.Metrics, log zerolog.Logger) *Scanner {
	if cfg.Window == 0 {
		cfg.Window = 100
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 3
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	return &Scanner{
		ecash:    ecash,
		tokens:   tokens,
		counters: counters,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}
}

// Result summarizes one keyset scan.
type Result struct {
	KeysetID       string
	RestoredProofs int
	RestoredAmount uint64
	Records        []*domain.TokenRecord
}

// ScanAll scans every configured mint in turn. A mint failure does not stop
// the sweep; the error of the last failed mint is returned alongside the
// results that did complete.
func (s *Scanner) ScanAll(ctx context.Context, mints []string, unit string) ([]*Result, error) {
	var results []*Result
	var lastErr error
	for _, mint := range mints {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res, err := s.Scan(ctx, mint, unit)
		results = append(results, res...)
		if err != nil {
			s.log.Warn().Err(err).Str("mint", mint).Msg("restore scan failed")
			lastErr = err
		}
	}
	return results, lastErr
}

// Scan restores every keyset of one (mint, unit), rotated keysets included;
// proofs issued under a keyset the mint has since retired are still
// recoverable.
func (s *Scanner) Scan(ctx context.Context, mint, unit string) ([]*Result, error) {
	keysetIDs, err := s.ecash.Keysets(ctx, mint, unit)
	if err != nil {
		return nil, apperror.ErrMintUnreachable(mint, err)
	}

	var results []*Result
	for _, keysetID := range keysetIDs {
		res, err := s.ScanKeyset(ctx, mint, unit, keysetID)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ScanKeyset restores one (mint, unit, keyset). The scan starts one window
// behind the high-water mark of the issuance counter and restore cursor;
// when that window turns up nothing signed and did not begin at zero, a
// single deep scan from index zero runs instead, so a wallet with lost local
// state still finds old proofs. The scan runs under the keyset counter lock
// and raises counter and cursor past the highest signed index so new
// issuance never reuses scanned indices.
func (s *Scanner) ScanKeyset(ctx context.Context, mint, unit, keysetID string) (*Result, error) {
	key := domain.CounterKey(mint, unit, keysetID)

	res := &Result{KeysetID: keysetID}
	err := s.counters.WithLock(key, func() error {
		next, err := s.counters.NextCounter(ctx, key)
		if err != nil {
			return err
		}
		cursor, err := s.counters.Cursor(ctx, key)
		if err != nil {
			return err
		}
		hwm := next
		if cursor > hwm {
			hwm = cursor
		}
		start := uint32(0)
		if hwm > s.cfg.Window {
			start = hwm - s.cfg.Window
		}

		batch, err := s.ecash.Restore(ctx, mint, unit, keysetID, start, s.cfg.BatchSize, s.cfg.Lookahead)
		if err != nil {
			return apperror.ErrMintUnreachable(mint, err)
		}
		if batch.LastSignedIndex < 0 && start > 0 {
			s.log.Info().Str("key", key).Uint32("start", start).Msg("window empty, deep scanning from zero")
			batch, err = s.ecash.Restore(ctx, mint, unit, keysetID, 0, s.cfg.BatchSize, s.cfg.Lookahead)
			if err != nil {
				return apperror.ErrMintUnreachable(mint, err)
			}
		}
		if batch.LastSignedIndex < 0 {
			return nil
		}

		fresh, err := s.filterKnown(ctx, batch.Proofs)
		if err != nil {
			return err
		}
		fresh, err = s.filterSpent(ctx, mint, fresh)
		if err != nil {
			return err
		}

		if err := s.adopt(ctx, mint, unit, fresh, res); err != nil {
			return err
		}

		// Raise issuance and scan positions past everything the mint signed.
		resume := uint32(batch.LastSignedIndex) + 1
		if _, err := s.counters.EnsureAtLeast(ctx, key, resume); err != nil {
			return err
		}
		return s.counters.AdvanceCursor(ctx, key, resume)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddRestoredProofs(res.RestoredProofs)
	s.log.Info().
		Str("mint", mint).
		Str("keyset", keysetID).
		Int("proofs", res.RestoredProofs).
		Uint64("amount", res.RestoredAmount).
		Msg("restore scan finished")
	return res, nil
}

// filterKnown drops proofs whose secrets the wallet already holds in live
// records, so a scan never duplicates balance.
func (s *Scanner) filterKnown(ctx context.Context, candidates domain.Proofs) (domain.Proofs, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	live, err := s.tokens.ListLive(ctx)
	if err != nil {
		return nil, apperror.ErrStore(err)
	}
	known := make(map[string]struct{})
	for _, rec := range live {
		decoded, err := s.ecash.DecodeToken(rec.EncodedToken)
		if err != nil {
			// A corrupt stored record must not block recovery.
			s.log.Warn().Err(err).Str("record", rec.ID.String()).Msg("skipping undecodable record during restore")
			continue
		}
		for _, secret := range decoded.Proofs.Secrets() {
			known[secret] = struct{}{}
		}
	}

	out := candidates[:0]
	for _, p := range candidates {
		if _, dup := known[p.Secret]; !dup {
			out = append(out, p)
		}
	}
	return out, nil
}

// filterSpent keeps only proofs the mint still reports unspent.
func (s *Scanner) filterSpent(ctx context.Context, mint string, candidates domain.Proofs) (domain.Proofs, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	states, err := s.ecash.CheckProofStates(ctx, mint, candidates)
	if err != nil {
		return nil, apperror.ErrMintUnreachable(mint, err)
	}
	if len(states) != len(candidates) {
		return nil, apperror.InternalError(fmt.Errorf("mint returned %d states for %d proofs", len(states), len(candidates)))
	}
	out := candidates[:0]
	for i, p := range candidates {
		if states[i] == ports.ProofStateUnspent {
			out = append(out, p)
		}
	}
	return out, nil
}

// adopt persists recovered proofs as accepted records, chunked so a single
// record never grows unbounded.
func (s *Scanner) adopt(ctx context.Context, mint, unit string, proofs domain.Proofs, res *Result) error {
	for len(proofs) > 0 {
		n := s.cfg.ChunkSize
		if n > len(proofs) {
			n = len(proofs)
		}
		chunk := proofs[:n]
		proofs = proofs[n:]

		encoded, err := s.ecash.EncodeToken(&ports.DecodedToken{Mint: mint, Unit: unit, Proofs: chunk})
		if err != nil {
			return apperror.InternalError(err)
		}
		rec := domain.NewTokenRecord(encoded, mint, unit, chunk.Sum())
		if err := s.tokens.Insert(ctx, rec); err != nil {
			return apperror.ErrStore(err)
		}
		res.Records = append(res.Records, rec)
		res.RestoredProofs += len(chunk)
		res.RestoredAmount += chunk.Sum()
	}
	return nil
}
