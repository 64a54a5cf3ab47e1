package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer checks the signatures Razorpay attaches to checkout callbacks and webhooks.
type Signer struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewSigner(keySecret, webhookSecret string) *Signer {
	return &Signer{keySecret: []byte(keySecret), webhookSecret: []byte(webhookSecret)}
}

// PaymentSignature is hex(HMAC-SHA256(keySecret, orderID + "|" + paymentID)).
func (s *Signer) PaymentSignature(orderID, paymentID string) string {
	return sign(s.keySecret, []byte(orderID+"|"+paymentID))
}

func (s *Signer) VerifyPayment(orderID, paymentID, signature string) bool {
	return equal(s.PaymentSignature(orderID, paymentID), signature)
}

// WebhookSignature is hex(HMAC-SHA256(webhookSecret, body)).
func (s *Signer) WebhookSignature(body []byte) string {
	return sign(s.webhookSecret, body)
}

func (s *Signer) VerifyWebhook(body []byte, signature string) bool {
	if len(s.webhookSecret) == 0 {
		return false
	}
	return equal(s.WebhookSignature(body), signature)
}

func sign(secret, msg []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func equal(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}
