package payments

import "context"

// Provider verifies the payment result the client posts back with the
// registration form. Verification happens before any store write; a failure
// aborts the whole submission.
type Provider interface {
	Name() string

	// VerifyPayment checks the gateway signature over the order/payment pair.
	// Returns nil only when the signature is valid.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error

	// Required reports whether submissions must carry payment fields.
	Required() bool
}
