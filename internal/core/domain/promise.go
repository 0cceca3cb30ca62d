package domain

import "time"

// Payload type tags for Credo tokens.
const (
	PayloadTypePromise    = "promise"
	PayloadTypeSettlement = "settlement"
)

// PromisePayload is the canonical content of a Credo promise: a signed IOU
// from issuer to recipient, valid until ExpiresAt. Identity is the content
// hash of the canonical serialization, so the payload is immutable.
type PromisePayload struct {
	Type      string `json:"type"`
	Issuer    string `json:"issuer"`    // x-only pubkey, hex
	Recipient string `json:"recipient"` // x-only pubkey, hex
	Amount    uint64 `json:"amount"`
	Unit      string `json:"unit"`
	Nonce     string `json:"nonce"`
	CreatedAt int64  `json:"createdAt"` // Unix seconds
	ExpiresAt int64  `json:"expiresAt"`
}

// PromiseToken is a promise payload plus its content id and the issuer's
// Schnorr signature over the id.
type PromiseToken struct {
	ID        string         `json:"id"`
	Payload   PromisePayload `json:"payload"`
	Signature string         `json:"sig"` // 64-byte Schnorr signature, hex
}

// Expired reports whether the promise is past its expiry at the given time.
func (t *PromiseToken) Expired(now time.Time) bool {
	return now.Unix() >= t.Payload.ExpiresAt
}

// SettlementPayload acknowledges that some or all of a promise has been paid.
// A nil Amount means the promise is fully settled. Signed by the promise's
// recipient, who is releasing the issuer's obligation.
type SettlementPayload struct {
	Type      string  `json:"type"`
	PromiseID string  `json:"promiseId"`
	Issuer    string  `json:"issuer"`
	Recipient string  `json:"recipient"`
	Amount    *uint64 `json:"amount,omitempty"`
	Unit      *string `json:"unit,omitempty"`
	Nonce     *string `json:"nonce,omitempty"`
	SettledAt int64   `json:"settledAt"`
}

// SettlementToken is a settlement payload plus content id and the recipient's
// signature over the id.
type SettlementToken struct {
	ID        string            `json:"id"`
	Payload   SettlementPayload `json:"payload"`
	Signature string            `json:"sig"`
}

// PromiseDirection distinguishes promises we issued from ones we hold.
type PromiseDirection string

const (
	PromiseIssued   PromiseDirection = "issued"
	PromiseReceived PromiseDirection = "received"
)

// PromiseRecord is the local bookkeeping row for a promise. Invalid promises
// are recorded with Valid=false rather than dropped, so they stay visible.
type PromiseRecord struct {
	PromiseID     string           `json:"promise_id"`
	Token         PromiseToken     `json:"token"`
	Direction     PromiseDirection `json:"direction"`
	Valid         bool             `json:"valid"`
	SettledAmount uint64           `json:"settled_amount"`
	SettlementIDs []string         `json:"settlement_ids,omitempty"` // Applied settlements, for idempotence
	Deleted       bool             `json:"deleted"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Outstanding returns amount minus settled, clamped to [0, amount].
func (r *PromiseRecord) Outstanding() uint64 {
	if r.SettledAmount >= r.Token.Payload.Amount {
		return 0
	}
	return r.Token.Payload.Amount - r.SettledAmount
}

// ApplySettlement accumulates a settlement into the record. Duplicate
// settlement ids are ignored and the settled amount never exceeds the promise
// amount. A nil amount settles the promise in full. Returns true if the
// record changed.
func (r *PromiseRecord) ApplySettlement(settlementID string, amount *uint64) bool {
	for _, id := range r.SettlementIDs {
		if id == settlementID {
			return false
		}
	}

	total := r.Token.Payload.Amount
	settled := total
	if amount != nil {
		settled = r.SettledAmount + *amount
	}
	if settled > total {
		settled = total
	}

	r.SettlementIDs = append(r.SettlementIDs, settlementID)
	if settled == r.SettledAmount {
		return true // id recorded, amount already at clamp
	}
	r.SettledAmount = settled
	r.UpdatedAt = time.Now().UTC()
	return true
}
