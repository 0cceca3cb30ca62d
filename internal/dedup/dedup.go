// Package dedup reconciles local state after crashes, reinstalls and replayed
// transport deliveries: duplicate token records, duplicate mint rows and
// duplicate messages all collapse back to one survivor. Everything here is
// idempotent; running a pass twice changes nothing the second time.
package dedup

import (
	"context"
	"sort"

	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// Reconciler runs dedup passes over the repositories.
type Reconciler struct {
	tokens ports.TokenRepository
	mints  ports.MintRepository
	log    zerolog.Logger
}

// New creates a reconciler.
func New(tokens ports.TokenRepository, mints ports.MintRepository, log zerolog.Logger) *Reconciler {
	return &Reconciler{tokens: tokens, mints: mints, log: log}
}

// Tokens soft-deletes live records that duplicate another record's token
// text, keeping the oldest. Duplicates appear when the same inbound token was
// recorded twice or when a restore scan re-adopted a stored set.
func (r *Reconciler) Tokens(ctx context.Context) (int, error) {
	live, err := r.tokens.ListLive(ctx)
	if err != nil {
		return 0, apperror.ErrStore(err)
	}

	survivors := SelectTokenSurvivors(live)
	keep := make(map[string]struct{}, len(survivors))
	for _, rec := range survivors {
		keep[rec.ID.String()] = struct{}{}
	}

	removed := 0
	for _, rec := range live {
		if _, ok := keep[rec.ID.String()]; ok {
			continue
		}
		if err := r.tokens.SoftDelete(ctx, rec.ID); err != nil {
			return removed, apperror.ErrStore(err)
		}
		r.log.Info().Str("record", rec.ID.String()).Msg("duplicate token record retired")
		removed++
	}
	return removed, nil
}

// SelectTokenSurvivors picks one record per token text, preferring the
// oldest. Pure.
func SelectTokenSurvivors(records []domain.TokenRecord) []domain.TokenRecord {
	ordered := make([]domain.TokenRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	seen := make(map[string]struct{})
	var out []domain.TokenRecord
	for _, rec := range ordered {
		key := rec.EncodedToken
		if key == "" {
			key = rec.RawToken
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if rec.RawToken != "" {
			seen[rec.RawToken] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}

// Mints merges mint rows that canonicalize to the same URL, keeping the row
// with the richest metadata and rewriting its URL to canonical form. Losing
// rows are marked deleted.
func (r *Reconciler) Mints(ctx context.Context) (int, error) {
	rows, err := r.mints.List(ctx)
	if err != nil {
		return 0, apperror.ErrStore(err)
	}

	byCanonical := make(map[string][]domain.MintInfo)
	for _, row := range rows {
		if row.Deleted {
			continue
		}
		canonical := domain.NormalizeMintURL(row.URL)
		byCanonical[canonical] = append(byCanonical[canonical], row)
	}

	merged := 0
	for canonical, group := range byCanonical {
		if len(group) == 1 && group[0].URL == canonical {
			continue
		}
		winner := group[0]
		for _, row := range group[1:] {
			if row.Score() > winner.Score() {
				winner = row
			}
		}
		for _, row := range group {
			if row.URL == winner.URL {
				continue
			}
			row.Deleted = true
			if err := r.mints.Upsert(ctx, &row); err != nil {
				return merged, apperror.ErrStore(err)
			}
			merged++
		}
		winner.URL = canonical
		if err := r.mints.Upsert(ctx, &winner); err != nil {
			return merged, apperror.ErrStore(err)
		}
		r.log.Info().Str("mint", canonical).Int("rows", len(group)).Msg("mint rows merged")
	}
	return merged, nil
}

// messageKey identifies a message for dedup purposes.
type messageKey struct {
	direction domain.MessageDirection
	timestamp int64
	content   string
}

// Messages removes duplicate messages, keeping first occurrences in order.
// Identity is the wrap id when present, else the client id, else the
// (direction, timestamp, content) composite. Pure.
func Messages(msgs []domain.Message) []domain.Message {
	seenWrap := make(map[string]struct{})
	seenClient := make(map[string]struct{})
	seenComposite := make(map[messageKey]struct{})

	var out []domain.Message
	for _, msg := range msgs {
		switch {
		case msg.WrapID != "":
			if _, dup := seenWrap[msg.WrapID]; dup {
				continue
			}
			seenWrap[msg.WrapID] = struct{}{}
		case msg.ClientID != "":
			if _, dup := seenClient[msg.ClientID]; dup {
				continue
			}
			seenClient[msg.ClientID] = struct{}{}
		default:
			key := messageKey{msg.Direction, msg.Timestamp, msg.Content}
			if _, dup := seenComposite[key]; dup {
				continue
			}
			seenComposite[key] = struct{}{}
		}
		out = append(out, msg)
	}
	return out
}
