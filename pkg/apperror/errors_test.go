package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorFormat(t *testing.T) {
	err := New("PAY_001", "Insufficient ecash balance", false)
	assert.Equal(t, "[PAY_001] Insufficient ecash balance", err.Error())

	wrapped := Wrap("NET_001", "Mint unreachable", true, errors.New("dial tcp: timeout"))
	assert.Contains(t, wrapped.Error(), "NET_001")
	assert.Contains(t, wrapped.Error(), "dial tcp: timeout")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := ErrMintUnreachable("https://mint.example.com", inner)

	assert.True(t, errors.Is(err, inner))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrSignatureConflict(errors.New("outputs already signed"))))
	assert.True(t, IsRetryable(ErrMintUnreachable("https://m", errors.New("timeout"))))
	assert.False(t, IsRetryable(ErrMixedMints()))
	assert.False(t, IsRetryable(ErrInsufficientFunds()))
	assert.False(t, IsRetryable(errors.New("plain error")))

	// Retryability survives wrapping with fmt.Errorf.
	wrapped := fmt.Errorf("send split: %w", ErrMintUnreachable("https://m", errors.New("timeout")))
	assert.True(t, IsRetryable(wrapped))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("replay intent: %w", ErrContactGone("contact-1"))
	assert.True(t, IsCode(err, "QUE_001"))
	assert.False(t, IsCode(err, "PAY_001"))
	assert.False(t, IsCode(errors.New("plain"), "QUE_001"))
}

func TestRecoveryError(t *testing.T) {
	inner := errors.New("melt quote expired")
	err := NewRecoveryError("cashuAeyJ0b2tlbiI6W119", 125, inner)

	re := AsRecovery(fmt.Errorf("melt: %w", err))
	require.NotNil(t, re)
	assert.Equal(t, uint64(125), re.RecoveryAmount)
	assert.Equal(t, "cashuAeyJ0b2tlbiI6W119", re.RecoveryToken)
	assert.True(t, errors.Is(re, inner))

	assert.Nil(t, AsRecovery(errors.New("no recovery here")))
}
