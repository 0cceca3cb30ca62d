package credo

import (
	"testing"

	"nutpay/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsKeysRecursively(t *testing.T) {
	a := map[string]any{
		"z": 1,
		"a": map[string]any{"y": true, "b": "x"},
	}
	b := map[string]any{
		"a": map[string]any{"b": "x", "y": true},
		"z": 1,
	}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)

	assert.Equal(t, ca, cb)
	assert.Equal(t, `{"a":{"b":"x","y":true},"z":1}`, ca)
}

func TestCanonicalize_KeepsIntegersExact(t *testing.T) {
	c, err := Canonicalize(map[string]any{"amount": uint64(9007199254740993)})
	require.NoError(t, err)
	assert.Equal(t, `{"amount":9007199254740993}`, c)
}

func TestContentID_Idempotent(t *testing.T) {
	payload := domain.PromisePayload{
		Type:      domain.PayloadTypePromise,
		Issuer:    "aa",
		Recipient: "bb",
		Amount:    100,
		Unit:      "sat",
		Nonce:     "0102",
		CreatedAt: 1700000000,
		ExpiresAt: 1700003600,
	}

	id1, err := ContentID(payload)
	require.NoError(t, err)
	id2, err := ContentID(payload)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)

	// Independently constructed payload with identical content hashes equally.
	clone := domain.PromisePayload{
		Type:      "promise",
		Issuer:    "aa",
		Recipient: "bb",
		Amount:    100,
		Unit:      "sat",
		Nonce:     "0102",
		CreatedAt: 1700000000,
		ExpiresAt: 1700003600,
	}
	id3, err := ContentID(clone)
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
}

func TestContentID_ChangesWithContent(t *testing.T) {
	p := domain.PromisePayload{Type: "promise", Amount: 100}
	q := domain.PromisePayload{Type: "promise", Amount: 101}

	idP, err := ContentID(p)
	require.NoError(t, err)
	idQ, err := ContentID(q)
	require.NoError(t, err)
	assert.NotEqual(t, idP, idQ)
}
