package payments

import (
	"context"
	"fmt"

	"expo-registration/internal/config"
	"expo-registration/internal/payments/hmacsig"
)

func NewProvider(cfg config.Config) (Provider, error) {
	switch cfg.PaymentProvider {
	case "hmac":
		return hmacsig.New(cfg.PaymentWebhookSecret), nil
	case "none":
		return noneProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.PaymentProvider)
	}
}

// noneProvider is for deployments that don't charge for registration.
type noneProvider struct{}

func (noneProvider) Name() string   { return "none" }
func (noneProvider) Required() bool { return false }

func (noneProvider) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error {
	return nil
}
