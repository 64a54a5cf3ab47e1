package events

import (
	"fmt"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

// Envelope is the common wrapper for every event this service emits.
type Envelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      int64     `json:"sequence"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       T         `json:"payload"`
}

func (e Envelope[T]) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName: %s", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion: %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	if e.Sequence < 1 {
		return fmt.Errorf("invalid sequence: %d", e.Sequence)
	}
	return nil
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderPayload is shared by all order.* events; consumers switch on eventName.
type OrderPayload struct {
	OrderID        string      `json:"orderId"`
	UserID         string      `json:"userId"`
	GatewayOrderID string      `json:"gatewayOrderId"`
	Items          []OrderItem `json:"items"`
	TotalAmount    int64       `json:"totalAmount"`
	Currency       string      `json:"currency"`
	PaymentStatus  string      `json:"paymentStatus"`
	DeliveryStatus string      `json:"deliveryStatus"`
	FailureReason  string      `json:"failureReason,omitempty"`
}

func newOrderPayload(o order.Order) OrderPayload {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return OrderPayload{
		OrderID:        o.ID,
		UserID:         o.UserID,
		GatewayOrderID: o.GatewayOrderID,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		Currency:       o.Currency,
		PaymentStatus:  string(o.PaymentStatus),
		DeliveryStatus: string(o.DeliveryStatus),
		FailureReason:  o.FailureReason,
	}
}

func orderSchema(routingKey string) string {
	return "storefront/" + routingKey + ".json"
}
