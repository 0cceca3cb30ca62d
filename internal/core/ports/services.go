package ports

import (
	"context"

	"nutpay/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// DecodedToken is the parsed form of an encoded ecash token.
type DecodedToken struct {
	Mint   string        `json:"mint"`
	Unit   string        `json:"unit"`
	Memo   string        `json:"memo,omitempty"`
	Proofs domain.Proofs `json:"proofs"`
}

// BlindOptions carries the deterministic blinding counter for operations that
// create new proofs. A nil Counter lets the client pick random secrets, which
// the settlement core never does.
type BlindOptions struct {
	Counter *uint32
}

// MeltQuote is the mint's quote for paying an external invoice.
type MeltQuote struct {
	ID         string
	Invoice    string
	Amount     uint64
	FeeReserve uint64
	Expiry     int64
}

// MeltOutcome is the result of executing a melt.
type MeltOutcome struct {
	Paid     bool
	Preimage string
	Change   domain.Proofs
	FeePaid  uint64
}

// ProofState is the mint's view of a proof.
type ProofState string

const (
	ProofStateUnspent ProofState = "UNSPENT"
	ProofStatePending ProofState = "PENDING"
	ProofStateSpent   ProofState = "SPENT"
)

// RestoreBatch is the result of a deterministic restore scan.
// LastSignedIndex is -1 when the scan found no signatures.
type RestoreBatch struct {
	Proofs          domain.Proofs
	LastSignedIndex int64
}

// EcashClient is the external ecash protocol capability. The cryptography
// (blinding, signature verification) lives behind this interface; the
// settlement core only sequences calls and supplies counters.
type EcashClient interface {
	// DecodeToken parses an encoded token string. No network.
	DecodeToken(text string) (*DecodedToken, error)
	// EncodeToken serializes proofs into a transferable token string. No network.
	EncodeToken(t *DecodedToken) (string, error)

	// ActiveKeyset returns the mint's active keyset id for the unit.
	ActiveKeyset(ctx context.Context, mint, unit string) (string, error)

	// Keysets returns every keyset id the mint has issued for the unit,
	// rotated ones included. The active keyset is part of the list.
	Keysets(ctx context.Context, mint, unit string) ([]string, error)

	// Swap exchanges proofs for a fresh set split as (keep, send) where the
	// send part totals amount (the mint may add change to keep).
	Swap(ctx context.Context, mint, unit string, amount uint64, proofs domain.Proofs, opts BlindOptions) (keep, send domain.Proofs, err error)

	// SwapFee returns the fee the mint charges to spend this proof set.
	SwapFee(ctx context.Context, mint, unit string, proofs domain.Proofs) (uint64, error)

	// Receive swaps a decoded inbound token at its mint for fresh proofs.
	Receive(ctx context.Context, t *DecodedToken, opts BlindOptions) (domain.Proofs, error)

	// CreateMeltQuote asks the mint for an invoice payment quote.
	CreateMeltQuote(ctx context.Context, mint, unit, invoice string) (*MeltQuote, error)

	// MeltProofs executes a melt quote with the given proofs.
	MeltProofs(ctx context.Context, mint string, quote *MeltQuote, proofs domain.Proofs, opts BlindOptions) (*MeltOutcome, error)

	// CheckProofStates returns the mint's state for each proof, in order.
	CheckProofStates(ctx context.Context, mint string, proofs domain.Proofs) ([]ProofState, error)

	// Restore rebuilds proofs from the deterministic seed starting at the
	// given counter, scanning until lookahead empty batches pass.
	Restore(ctx context.Context, mint, unit, keysetID string, start uint32, batchSize, lookahead int) (*RestoreBatch, error)
}

// Envelope is a plaintext message event before gift wrapping.
type Envelope struct {
	Kind      string `json:"kind"` // token, promise, settlement, text
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// WrappedEvent is a gift-wrapped envelope addressed to one recipient.
type WrappedEvent struct {
	ID        string // Wrap identifier
	Recipient string // x-only pubkey, hex
	Payload   []byte
}

// MessageTransport is the external gift-wrapped messaging capability.
type MessageTransport interface {
	// Wrap seals an envelope for the recipient using the sender's key.
	Wrap(ev Envelope, senderKey []byte, recipientPubkey string) (*WrappedEvent, error)
	// Publish sends wrapped events to the relay set. Returns true if any
	// relay accepted any event.
	Publish(ctx context.Context, relays []string, wraps ...*WrappedEvent) (bool, error)
}

// ConnectivityProbe reports whether the wallet currently has network access.
type ConnectivityProbe interface {
	Online() bool
}

// ContactDirectory resolves contact ids to messaging pubkeys. Lookup of a
// deleted contact returns ("", false, nil).
type ContactDirectory interface {
	PubKey(ctx context.Context, contactID string) (pubkey string, ok bool, err error)
}
