package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_VerifyPayment(t *testing.T) {
	s := NewSigner("key_secret", "hook_secret")

	mac := hmac.New(sha256.New, []byte("key_secret"))
	mac.Write([]byte("order_ABC|pay_XYZ"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, s.PaymentSignature("order_ABC", "pay_XYZ"))
	assert.True(t, s.VerifyPayment("order_ABC", "pay_XYZ", want))
	assert.False(t, s.VerifyPayment("order_ABC", "pay_OTHER", want))
	assert.False(t, s.VerifyPayment("order_ABC", "pay_XYZ", ""))
}

func TestSigner_VerifyWebhook(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)

	s := NewSigner("key_secret", "hook_secret")
	sig := s.WebhookSignature(body)
	assert.True(t, s.VerifyWebhook(body, sig))
	assert.False(t, s.VerifyWebhook([]byte(`{"event":"payment.failed"}`), sig))

	noSecret := NewSigner("key_secret", "")
	assert.False(t, noSecret.VerifyWebhook(body, noSecret.WebhookSignature(body)))
}

func TestParseWebhook(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {"id": "pay_1", "order_id": "order_1", "status": "failed", "error_description": "card declined"}}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Event)
	assert.Equal(t, "order_1", ev.GatewayOrderID())
	assert.Equal(t, "pay_1", ev.PaymentID())
	assert.Equal(t, "card declined", ev.FailureReason())

	_, err = ParseWebhook([]byte(`{}`))
	assert.Error(t, err)
}
