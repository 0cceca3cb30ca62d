package settlement

import (
	"context"
	"errors"
	"net"
	"strings"

	"nutpay/pkg/apperror"
)

// withRetry runs fn up to maxAttempts times, retrying only while the
// classifier accepts the error. The attempt index (0-based) is passed to fn
// so callers can adjust state between attempts (counter skips).
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error, retryable func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// isSignatureConflict classifies the mint's "this blinding index was already
// signed" rejection. The ecash client surfaces it as a message, so the string
// heuristic lives here and nowhere else.
func isSignatureConflict(err error) bool {
	if err == nil {
		return false
	}
	if apperror.IsCode(err, "CTR_001") {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already been signed") ||
		strings.Contains(msg, "outputs have already been signed") ||
		strings.Contains(msg, "signature already produced")
}

// isTransient classifies network-level failures eligible for mint-candidate
// fallback. Transient failures never mark token state invalid.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if apperror.IsRetryable(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout")
}

// isDefinitiveInvalid classifies the mint's assertion that proofs are
// unusable. Only this class may mark a token record terminally invalid.
func isDefinitiveInvalid(err error) bool {
	if err == nil {
		return false
	}
	if apperror.IsCode(err, "TOK_003") {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already spent") ||
		strings.Contains(msg, "proofs are spent") ||
		strings.Contains(msg, "token already spent")
}
