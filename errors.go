package agentpay

import (
	"errors"
	"fmt"
)

// Error is the error type returned by every agentpay operation.
// Code is one of the ErrCode* constants and is stable across releases.
type Error struct {
	Code    string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeInvalidAmount          = "invalid_amount"
	ErrCodeInvalidAddress         = "invalid_address"
	ErrCodeInvalidRequest         = "invalid_request"
	ErrCodeNoWalletConfigured     = "no_wallet_configured"
	ErrCodeNotFound               = "not_found"
	ErrCodeTransientLedgerFailure = "transient_ledger_failure"
)

// NewError creates a new agentpay error
func NewError(code, message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapError creates an agentpay error carrying the underlying cause
func WrapError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrInvalidAmount reports a malformed or out-of-range amount
func ErrInvalidAmount(amount string, reason string) *Error {
	return NewError(ErrCodeInvalidAmount, fmt.Sprintf("invalid amount %q: %s", amount, reason), map[string]interface{}{
		"amount": amount,
	})
}

// ErrNoWalletConfigured reports an operation that needs signing key material
func ErrNoWalletConfigured(chain Chain) *Error {
	return NewError(ErrCodeNoWalletConfigured, fmt.Sprintf("no wallet configured for chain %s", chain), map[string]interface{}{
		"chain": string(chain),
	})
}

// ErrPaymentNotFound reports an unknown payment request id
func ErrPaymentNotFound(id string) *Error {
	return NewError(ErrCodeNotFound, fmt.Sprintf("payment request %s not found", id), map[string]interface{}{
		"payment_id": id,
	})
}

// ErrChainNotConfigured reports a chain with no registered provider
func ErrChainNotConfigured(chain Chain) *Error {
	return NewError(ErrCodeNotFound, fmt.Sprintf("chain %s is not configured", chain), map[string]interface{}{
		"chain": string(chain),
	})
}

// ErrCode returns the agentpay error code carried by err, or "" if err is not an *Error
func ErrCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given agentpay error code
func IsCode(err error, code string) bool {
	return ErrCode(err) == code
}
