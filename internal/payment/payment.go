// Package payment defines the boundary to the external payment processor.
//
// The gateway is untrusted input: a payment is only considered confirmed —
// and stock only decremented — after VerifySignature returns true for the
// exact triplet presented in the confirmation callback.
package payment

import "context"

// CreateIntentRequest describes the amount to be collected for an order.
type CreateIntentRequest struct {
	// AmountMinor is the amount in the smallest currency unit (paise).
	AmountMinor int64
	Currency    string
	// ReceiptID correlates the intent with our order id.
	ReceiptID string
	Notes     map[string]string
}

// Gateway is the capability the checkout core depends on.
type Gateway interface {
	// CreateIntent registers the amount with the processor and returns its
	// intent id, used later to correlate the asynchronous confirmation.
	CreateIntent(ctx context.Context, req CreateIntentRequest) (string, error)
	// VerifySignature reports whether the signature authenticates the
	// (intent, payment) pair.
	VerifySignature(intentID, paymentID, signature string) bool
}
