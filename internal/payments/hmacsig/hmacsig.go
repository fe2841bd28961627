// Package hmacsig verifies gateway payment signatures: HMAC-SHA256 over
// "orderID|paymentID" with the shared webhook secret, hex-encoded.
package hmacsig

import (
	"context"
	"crypto/hmac"
	"fmt"

	"expo-registration/internal/util"
)

type Provider struct {
	secret string
}

func New(secret string) *Provider {
	return &Provider{secret: secret}
}

func (p *Provider) Name() string   { return "hmac" }
func (p *Provider) Required() bool { return true }

func (p *Provider) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("missing payment fields")
	}
	expected := util.HMACSHA256Hex(p.secret, orderID+"|"+paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("payment signature mismatch for order %s", orderID)
	}
	return nil
}
