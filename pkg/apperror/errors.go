package apperror

import (
	"errors"
	"fmt"
)

// AppError is a structured, coded error for wallet operations.
type AppError struct {
	Code      string `json:"error_code"`
	Message   string `json:"message"`
	Retryable bool   `json:"-"` // Eligible for mint fallback / replay
	Err       error  `json:"-"` // Wrapped internal error (kept for logs)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, retryable bool) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, retryable bool, err error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}

// ---- Token handling (TOK) ----

func ErrDecodeFailed(err error) *AppError {
	return Wrap("TOK_001", "Token could not be decoded", false, err)
}

func ErrMixedMints() *AppError {
	return New("TOK_002", "Source tokens span multiple mints", false)
}

// ErrDefinitiveInvalid is returned only when a mint asserts the proofs are
// unusable. Transient failures must never produce this code.
func ErrDefinitiveInvalid(err error) *AppError {
	return Wrap("TOK_003", "Mint reports token proofs as unusable", false, err)
}

// ---- Settlement (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient ecash balance", false)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", false)
}

// ErrPartialDelivery reports a payment whose transport failed after some
// tokens were already handed over. Replaying the full amount would pay the
// delivered part twice, so this error is never retryable.
func ErrPartialDelivery(delivered, requested uint64, err error) *AppError {
	return Wrap("PAY_003", fmt.Sprintf("Delivered %d of %d before transport failure", delivered, requested), false, err)
}

// ---- Counter store (CTR) ----

func ErrSignatureConflict(err error) *AppError {
	return Wrap("CTR_001", "Blinding index already signed by mint", true, err)
}

func ErrConflictExhausted(attempts int, err error) *AppError {
	return Wrap("CTR_002", fmt.Sprintf("Signature conflict persisted after %d attempts", attempts), false, err)
}

// ---- Network (NET) ----

func ErrMintUnreachable(mint string, err error) *AppError {
	return Wrap("NET_001", fmt.Sprintf("Mint %s unreachable", mint), true, err)
}

func ErrRelayPublishFailed(err error) *AppError {
	return Wrap("NET_002", "No relay accepted the wrapped event", true, err)
}

// ---- Credo (CRD) ----

func ErrExposureCapExceeded() *AppError {
	return New("CRD_001", "Outstanding promise exposure cap exceeded", false)
}

func ErrPromiseExpired() *AppError {
	return New("CRD_002", "Promise is past its expiry", false)
}

func ErrBadPromiseSignature() *AppError {
	return New("CRD_003", "Promise or settlement signature is invalid", false)
}

// ---- Offline queue (QUE) ----

// ErrContactGone marks a permanently failed intent: the contact no longer
// exists, so replaying can never succeed.
func ErrContactGone(contactID string) *AppError {
	return New("QUE_001", fmt.Sprintf("Contact %s no longer exists", contactID), false)
}

// ---- System (SYS) ----

func ErrStore(err error) *AppError {
	return Wrap("SYS_001", "Local store failure", false, err)
}

func InternalError(err error) *AppError {
	return Wrap("SYS_002", "Internal error", false, err)
}

// IsRetryable reports whether err (or any wrapped error) is an AppError
// flagged as eligible for retry or mint-candidate fallback.
func IsRetryable(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// RecoveryError signals a failure after proofs were already swapped: the
// attached recovery token holds valid ecash that the caller must persist
// before reporting the failure. Funds are never stranded on this path.
type RecoveryError struct {
	RecoveryToken  string
	RecoveryAmount uint64
	Err            error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("melt failed after swap, %d recoverable: %v", e.RecoveryAmount, e.Err)
}

func (e *RecoveryError) Unwrap() error {
	return e.Err
}

// NewRecoveryError wraps err with the recovery token covering the swapped proofs.
func NewRecoveryError(token string, amount uint64, err error) *RecoveryError {
	return &RecoveryError{RecoveryToken: token, RecoveryAmount: amount, Err: err}
}

// AsRecovery extracts a RecoveryError from an error chain, or nil.
func AsRecovery(err error) *RecoveryError {
	var re *RecoveryError
	if errors.As(err, &re) {
		return re
	}
	return nil
}
