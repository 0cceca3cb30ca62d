// Package engine adapts the local protocol engine sidecar to the ecash and
// messaging capability ports. The sidecar owns the cryptography: blind
// signatures, proof verification, gift-wrap sealing. This client moves JSON
// over loopback HTTP and maps sidecar error codes onto wallet error codes.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"nutpay/config"
	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/pkg/apperror"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.EcashClient and ports.MessageTransport against the
// protocol engine's HTTP API.
type Client struct {
	baseURL string
	http    HTTPClient
	log     zerolog.Logger
}

// NewClient creates an engine client from configuration.
func NewClient(cfg config.EngineConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.With().Str("component", "engine").Logger(),
	}
}

// engineError is the sidecar's error envelope. The field names match the
// wallet's own error codes so mint-originated codes pass through unchanged.
type engineError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal engine request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Wrap("NET_001", "protocol engine unreachable", true, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.Wrap("NET_001", "reading engine response", true, err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= http.StatusInternalServerError ||
			resp.StatusCode == http.StatusTooManyRequests
		var ee engineError
		if err := json.Unmarshal(raw, &ee); err == nil && ee.Code != "" {
			return &apperror.AppError{Code: ee.Code, Message: ee.Message, Retryable: retryable}
		}
		return apperror.Wrap("SYS_002", "engine request failed", retryable,
			fmt.Errorf("%s: status %d", path, resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal engine response: %w", err)
		}
	}
	return nil
}

// ---- ports.EcashClient ----

// ActiveKeyset returns the mint's active keyset id for the unit.
func (c *Client) ActiveKeyset(ctx context.Context, mint, unit string) (string, error) {
	var out struct {
		KeysetID string `json:"keyset_id"`
	}
	err := c.post(ctx, "/v1/keysets/active", map[string]string{"mint": mint, "unit": unit}, &out)
	if err != nil {
		return "", err
	}
	return out.KeysetID, nil
}

// Keysets returns every keyset id the mint has issued for the unit.
func (c *Client) Keysets(ctx context.Context, mint, unit string) ([]string, error) {
	var out struct {
		KeysetIDs []string `json:"keyset_ids"`
	}
	err := c.post(ctx, "/v1/keysets", map[string]string{"mint": mint, "unit": unit}, &out)
	if err != nil {
		return nil, err
	}
	return out.KeysetIDs, nil
}

type swapRequest struct {
	Mint    string        `json:"mint"`
	Unit    string        `json:"unit"`
	Amount  uint64        `json:"amount"`
	Proofs  domain.Proofs `json:"proofs"`
	Counter *uint32       `json:"counter,omitempty"`
}

// Swap exchanges proofs for a fresh (keep, send) split.
func (c *Client) Swap(ctx context.Context, mint, unit string, amount uint64, proofs domain.Proofs, opts ports.BlindOptions) (domain.Proofs, domain.Proofs, error) {
	var out struct {
		Keep domain.Proofs `json:"keep"`
		Send domain.Proofs `json:"send"`
	}
	req := swapRequest{Mint: mint, Unit: unit, Amount: amount, Proofs: proofs, Counter: opts.Counter}
	if err := c.post(ctx, "/v1/swap", req, &out); err != nil {
		return nil, nil, err
	}
	return out.Keep, out.Send, nil
}

// SwapFee returns the fee the mint charges to spend this proof set.
func (c *Client) SwapFee(ctx context.Context, mint, unit string, proofs domain.Proofs) (uint64, error) {
	var out struct {
		Fee uint64 `json:"fee"`
	}
	req := swapRequest{Mint: mint, Unit: unit, Proofs: proofs}
	if err := c.post(ctx, "/v1/swap/fee", req, &out); err != nil {
		return 0, err
	}
	return out.Fee, nil
}

type receiveRequest struct {
	Mint    string        `json:"mint"`
	Unit    string        `json:"unit"`
	Memo    string        `json:"memo,omitempty"`
	Proofs  domain.Proofs `json:"proofs"`
	Counter *uint32       `json:"counter,omitempty"`
}

// Receive swaps a decoded inbound token at its mint for fresh proofs.
func (c *Client) Receive(ctx context.Context, t *ports.DecodedToken, opts ports.BlindOptions) (domain.Proofs, error) {
	var out struct {
		Proofs domain.Proofs `json:"proofs"`
	}
	req := receiveRequest{Mint: t.Mint, Unit: t.Unit, Memo: t.Memo, Proofs: t.Proofs, Counter: opts.Counter}
	if err := c.post(ctx, "/v1/receive", req, &out); err != nil {
		return nil, err
	}
	return out.Proofs, nil
}

// CreateMeltQuote asks the mint for an invoice payment quote.
func (c *Client) CreateMeltQuote(ctx context.Context, mint, unit, invoice string) (*ports.MeltQuote, error) {
	var out struct {
		ID         string `json:"id"`
		Amount     uint64 `json:"amount"`
		FeeReserve uint64 `json:"fee_reserve"`
		Expiry     int64  `json:"expiry"`
	}
	req := map[string]string{"mint": mint, "unit": unit, "invoice": invoice}
	if err := c.post(ctx, "/v1/melt/quote", req, &out); err != nil {
		return nil, err
	}
	return &ports.MeltQuote{
		ID:         out.ID,
		Invoice:    invoice,
		Amount:     out.Amount,
		FeeReserve: out.FeeReserve,
		Expiry:     out.Expiry,
	}, nil
}

type meltRequest struct {
	Mint    string        `json:"mint"`
	QuoteID string        `json:"quote_id"`
	Invoice string        `json:"invoice"`
	Proofs  domain.Proofs `json:"proofs"`
	Counter *uint32       `json:"counter,omitempty"`
}

// MeltProofs executes a melt quote with the given proofs.
func (c *Client) MeltProofs(ctx context.Context, mint string, quote *ports.MeltQuote, proofs domain.Proofs, opts ports.BlindOptions) (*ports.MeltOutcome, error) {
	var out struct {
		Paid     bool          `json:"paid"`
		Preimage string        `json:"preimage"`
		Change   domain.Proofs `json:"change"`
		FeePaid  uint64        `json:"fee_paid"`
	}
	req := meltRequest{Mint: mint, QuoteID: quote.ID, Invoice: quote.Invoice, Proofs: proofs, Counter: opts.Counter}
	if err := c.post(ctx, "/v1/melt", req, &out); err != nil {
		return nil, err
	}
	return &ports.MeltOutcome{
		Paid:     out.Paid,
		Preimage: out.Preimage,
		Change:   out.Change,
		FeePaid:  out.FeePaid,
	}, nil
}

// CheckProofStates returns the mint's state for each proof, in order.
func (c *Client) CheckProofStates(ctx context.Context, mint string, proofs domain.Proofs) ([]ports.ProofState, error) {
	var out struct {
		States []ports.ProofState `json:"states"`
	}
	req := map[string]any{"mint": mint, "proofs": proofs}
	if err := c.post(ctx, "/v1/proofs/state", req, &out); err != nil {
		return nil, err
	}
	return out.States, nil
}

// Restore rebuilds proofs from the deterministic seed starting at the given
// counter.
func (c *Client) Restore(ctx context.Context, mint, unit, keysetID string, start uint32, batchSize, lookahead int) (*ports.RestoreBatch, error) {
	var out struct {
		Proofs          domain.Proofs `json:"proofs"`
		LastSignedIndex int64         `json:"last_signed_index"`
	}
	req := map[string]any{
		"mint":       mint,
		"unit":       unit,
		"keyset_id":  keysetID,
		"start":      start,
		"batch_size": batchSize,
		"lookahead":  lookahead,
	}
	if err := c.post(ctx, "/v1/restore", req, &out); err != nil {
		return nil, err
	}
	return &ports.RestoreBatch{Proofs: out.Proofs, LastSignedIndex: out.LastSignedIndex}, nil
}

// ---- ports.MessageTransport ----

type wrapRequest struct {
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
	SenderKey string `json:"sender_key"` // hex
	Recipient string `json:"recipient"`
}

// Wrap seals an envelope for the recipient using the sender's key. The key
// only crosses the loopback boundary; the sidecar never persists it.
func (c *Client) Wrap(ev ports.Envelope, senderKey []byte, recipientPubkey string) (*ports.WrappedEvent, error) {
	var out struct {
		ID      string `json:"id"`
		Payload []byte `json:"payload"`
	}
	req := wrapRequest{
		Kind:      ev.Kind,
		Content:   ev.Content,
		CreatedAt: ev.CreatedAt,
		SenderKey: fmt.Sprintf("%x", senderKey),
		Recipient: recipientPubkey,
	}
	if err := c.post(context.Background(), "/v1/wrap", req, &out); err != nil {
		return nil, err
	}
	return &ports.WrappedEvent{ID: out.ID, Recipient: recipientPubkey, Payload: out.Payload}, nil
}

type publishRequest struct {
	Relays []string              `json:"relays"`
	Wraps  []*ports.WrappedEvent `json:"wraps"`
}

// Publish sends wrapped events to the relay set via the sidecar.
func (c *Client) Publish(ctx context.Context, relays []string, wraps ...*ports.WrappedEvent) (bool, error) {
	var out struct {
		Accepted bool `json:"accepted"`
	}
	if err := c.post(ctx, "/v1/publish", publishRequest{Relays: relays, Wraps: wraps}, &out); err != nil {
		return false, err
	}
	return out.Accepted, nil
}
