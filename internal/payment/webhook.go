package payment

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// WebhookEvent is the subset of a Razorpay webhook body we act on.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func ParseWebhook(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook: %w", err)
	}
	if ev.Event == "" {
		return WebhookEvent{}, fmt.Errorf("decode webhook: missing event")
	}
	return ev, nil
}

func (ev WebhookEvent) GatewayOrderID() string {
	return ev.Payload.Payment.Entity.OrderID
}

func (ev WebhookEvent) PaymentID() string {
	return ev.Payload.Payment.Entity.ID
}

func (ev WebhookEvent) FailureReason() string {
	if d := ev.Payload.Payment.Entity.ErrorDescription; d != "" {
		return d
	}
	return "payment failed"
}
