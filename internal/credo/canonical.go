// Package credo implements the promise/settlement protocol: signed,
// content-addressed IOU tokens exchanged when ecash runs short.
package credo

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	json "github.com/goccy/go-json"
)

// Canonicalize serializes a payload deterministically: object keys sorted
// recursively, no insignificant whitespace, numbers in their shortest form.
// Two payloads with identical semantic content always produce the same
// string, so the content hash is a stable identity.
func Canonicalize(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	// Round-trip through generic maps: the JSON encoder emits map keys in
	// sorted order at every level. UseNumber keeps integers exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}
	return string(out), nil
}

// ContentID returns the hex SHA-256 digest of the canonical form of v.
// This digest is the token's identity.
func ContentID(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// digestOf converts a hex content id back to raw digest bytes for signing.
func digestOf(contentID string) ([]byte, error) {
	b, err := hex.DecodeString(contentID)
	if err != nil {
		return nil, fmt.Errorf("decoding content id: %w", err)
	}
	if len(b) != sha256.Size {
		return nil, fmt.Errorf("content id must be %d bytes, got %d", sha256.Size, len(b))
	}
	return b, nil
}
