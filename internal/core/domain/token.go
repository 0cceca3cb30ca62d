package domain

import (
	"time"

	"github.com/google/uuid"
)

// Proof is a bearer credential redeemable at one mint: amount, keyset id,
// secret and the mint's signature over the blinded secret.
type Proof struct {
	Amount   uint64 `json:"amount"`
	KeysetID string `json:"id"`
	Secret   string `json:"secret"`
	C        string `json:"C"`
}

// Proofs is a set of proofs belonging to one (mint, unit).
type Proofs []Proof

// Sum returns the total amount carried by the proof set.
func (ps Proofs) Sum() uint64 {
	var total uint64
	for _, p := range ps {
		total += p.Amount
	}
	return total
}

// Secrets returns the bearer secrets of the set.
func (ps Proofs) Secrets() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Secret
	}
	return out
}

// TokenState is the lifecycle state of a stored token record.
type TokenState string

const (
	TokenStateAccepted TokenState = "accepted"
	TokenStatePending  TokenState = "pending"
	TokenStateError    TokenState = "error"
)

// TokenRecord is a locally stored bearer token. Records are soft-deleted on
// spend, never removed: at most one non-deleted record maps to a given bearer
// secret set, and Amount always equals the sum of the live proof amounts.
type TokenRecord struct {
	ID           uuid.UUID  `json:"id"`
	EncodedToken string     `json:"encoded_token"`
	RawToken     string     `json:"raw_token,omitempty"` // Decoded JSON form, when available
	MintURL      string     `json:"mint_url"`
	Unit         string     `json:"unit"`
	Amount       uint64     `json:"amount"`
	State        TokenState `json:"state"`
	ErrorText    *string    `json:"error_text,omitempty"`
	Deleted      bool       `json:"deleted"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Live reports whether the record still represents spendable value.
func (r *TokenRecord) Live() bool {
	return !r.Deleted && r.State == TokenStateAccepted
}

// NewTokenRecord builds an accepted record for freshly obtained proofs.
func NewTokenRecord(encoded, mintURL, unit string, amount uint64) *TokenRecord {
	now := time.Now().UTC()
	return &TokenRecord{
		ID:           uuid.New(),
		EncodedToken: encoded,
		MintURL:      NormalizeMintURL(mintURL),
		Unit:         unit,
		Amount:       amount,
		State:        TokenStateAccepted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
