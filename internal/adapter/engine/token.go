package engine

import (
	"encoding/base64"
	"fmt"
	"strings"

	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/pkg/apperror"

	json "github.com/goccy/go-json"
)

// tokenPrefix marks a serialized V3 token. The payload after the prefix is
// URL-safe base64 of the JSON body, unpadded.
const tokenPrefix = "cashuA"

type tokenBody struct {
	Token []tokenEntry `json:"token"`
	Unit  string       `json:"unit,omitempty"`
	Memo  string       `json:"memo,omitempty"`
}

type tokenEntry struct {
	Mint   string        `json:"mint"`
	Proofs domain.Proofs `json:"proofs"`
}

// DecodeToken parses a serialized token. Purely local: base64 and JSON, no
// crypto and no network.
func (c *Client) DecodeToken(text string) (*ports.DecodedToken, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, tokenPrefix) {
		return nil, apperror.ErrDecodeFailed(fmt.Errorf("missing %q prefix", tokenPrefix))
	}
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(trimmed[len(tokenPrefix):], "="))
	if err != nil {
		return nil, apperror.ErrDecodeFailed(err)
	}
	var body tokenBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperror.ErrDecodeFailed(err)
	}
	if len(body.Token) == 0 || len(body.Token[0].Proofs) == 0 {
		return nil, apperror.ErrDecodeFailed(fmt.Errorf("token carries no proofs"))
	}
	// Multi-entry tokens must not mix mints.
	mint := body.Token[0].Mint
	proofs := make(domain.Proofs, 0, len(body.Token[0].Proofs))
	for _, entry := range body.Token {
		if entry.Mint != mint {
			return nil, apperror.ErrMixedMints()
		}
		proofs = append(proofs, entry.Proofs...)
	}
	unit := body.Unit
	if unit == "" {
		unit = "sat"
	}
	return &ports.DecodedToken{
		Mint:   domain.NormalizeMintURL(mint),
		Unit:   unit,
		Memo:   body.Memo,
		Proofs: proofs,
	}, nil
}

// EncodeToken serializes proofs into the transferable text form.
func (c *Client) EncodeToken(t *ports.DecodedToken) (string, error) {
	if len(t.Proofs) == 0 {
		return "", fmt.Errorf("encoding token with no proofs")
	}
	body := tokenBody{
		Token: []tokenEntry{{Mint: t.Mint, Proofs: t.Proofs}},
		Unit:  t.Unit,
		Memo:  t.Memo,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal token body: %w", err)
	}
	return tokenPrefix + base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(raw), nil
}
