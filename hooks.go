package agentpay

import (
	"context"
	"time"
)

// ============================================================================
// Hook Context Types
// ============================================================================

// ConfirmedContext is passed to hooks after a payment request is confirmed
type ConfirmedContext struct {
	Ctx         context.Context
	Request     PaymentRequest
	Observation TransferObservation
}

// CreatedContext is passed to hooks after a payment request is created
type CreatedContext struct {
	Ctx     context.Context
	Request PaymentRequest
}

// TransferContext is passed to hooks after an outbound transfer is submitted
type TransferContext struct {
	Ctx      context.Context
	Result   TransferResult
	Duration time.Duration
}

// ============================================================================
// Hook Function Types
// ============================================================================

// ConfirmedHook runs after the pending → confirmed transition.
// Errors are logged and never change the outcome.
type ConfirmedHook func(ConfirmedContext) error

// CreatedHook runs after a payment request is stored
type CreatedHook func(CreatedContext) error

// TransferHook runs after SendUSDC has submitted a transfer
type TransferHook func(TransferContext) error
