package credo

import (
	"encoding/base64"
	"fmt"
	"strings"

	"nutpay/internal/core/domain"

	json "github.com/goccy/go-json"
)

// WirePrefix is the textual marker of a serialized Credo token.
const WirePrefix = "credoA"

type wireEnvelope struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	Sig     string          `json:"sig"`
}

type payloadHead struct {
	Type string `json:"type"`
}

// EncodePromise serializes a promise token to its transport form:
// prefix + base64url(JSON).
func EncodePromise(tok *domain.PromiseToken) (string, error) {
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("marshal promise token: %w", err)
	}
	return WirePrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// EncodeSettlement serializes a settlement token to its transport form.
func EncodeSettlement(tok *domain.SettlementToken) (string, error) {
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("marshal settlement token: %w", err)
	}
	return WirePrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeEnvelope strips the prefix and returns the raw envelope plus the
// payload type tag.
func decodeEnvelope(wire string) (*wireEnvelope, string, error) {
	if !strings.HasPrefix(wire, WirePrefix) {
		return nil, "", fmt.Errorf("missing %s prefix", WirePrefix)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(wire, WirePrefix))
	if err != nil {
		return nil, "", fmt.Errorf("decoding token body: %w", err)
	}
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("unmarshal envelope: %w", err)
	}
	var head payloadHead
	if err := json.Unmarshal(env.Payload, &head); err != nil {
		return nil, "", fmt.Errorf("unmarshal payload head: %w", err)
	}
	return &env, head.Type, nil
}

// DecodePromise parses a wire token into a promise token.
func DecodePromise(wire string) (*domain.PromiseToken, error) {
	env, typ, err := decodeEnvelope(wire)
	if err != nil {
		return nil, err
	}
	if typ != domain.PayloadTypePromise {
		return nil, fmt.Errorf("expected promise payload, got %q", typ)
	}
	var payload domain.PromisePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal promise payload: %w", err)
	}
	return &domain.PromiseToken{ID: env.ID, Payload: payload, Signature: env.Sig}, nil
}

// DecodeSettlement parses a wire token into a settlement token.
func DecodeSettlement(wire string) (*domain.SettlementToken, error) {
	env, typ, err := decodeEnvelope(wire)
	if err != nil {
		return nil, err
	}
	if typ != domain.PayloadTypeSettlement {
		return nil, fmt.Errorf("expected settlement payload, got %q", typ)
	}
	var payload domain.SettlementPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal settlement payload: %w", err)
	}
	return &domain.SettlementToken{ID: env.ID, Payload: payload, Signature: env.Sig}, nil
}

// IsCredoToken reports whether the text looks like a Credo wire token.
func IsCredoToken(text string) bool {
	return strings.HasPrefix(text, WirePrefix)
}
