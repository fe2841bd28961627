package hmacsig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expo-registration/internal/util"
)

func TestVerifyPayment(t *testing.T) {
	p := New("secret")
	sig := util.HMACSHA256Hex("secret", "order_1|pay_1")

	require.NoError(t, p.VerifyPayment(context.Background(), "order_1", "pay_1", sig))

	assert.Error(t, p.VerifyPayment(context.Background(), "order_1", "pay_1", "bogus"))
	assert.Error(t, p.VerifyPayment(context.Background(), "order_2", "pay_1", sig), "signature bound to the order")
	assert.Error(t, p.VerifyPayment(context.Background(), "", "pay_1", sig))
	assert.Error(t, p.VerifyPayment(context.Background(), "order_1", "pay_1", ""))
}

func TestVerifyPaymentWrongSecret(t *testing.T) {
	sig := util.HMACSHA256Hex("other-secret", "order_1|pay_1")
	assert.Error(t, New("secret").VerifyPayment(context.Background(), "order_1", "pay_1", sig))
}
