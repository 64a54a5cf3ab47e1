package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidDelivery   = errors.New("invalid delivery details")
)

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type DeliveryDetails struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	PhoneNo  string `json:"phoneNo"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zipcode  string `json:"zipcode"`
}

func (d DeliveryDetails) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"fullName", d.FullName},
		{"email", d.Email},
		{"phoneNo", d.PhoneNo},
		{"address", d.Address},
		{"city", d.City},
		{"state", d.State},
		{"zipcode", d.Zipcode},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDelivery, strings.Join(missing, ", "))
	}
	if !strings.Contains(d.Email, "@") {
		return fmt.Errorf("%w: email is malformed", ErrInvalidDelivery)
	}
	return nil
}

type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	CartID           string          `json:"cartId"`
	Items            []Item          `json:"items"`
	TotalAmount      int64           `json:"totalAmount"`
	Currency         string          `json:"currency"`
	DeliveryDetails  DeliveryDetails `json:"deliveryDetails"`
	GatewayOrderID   string          `json:"gatewayOrderId"`
	GatewayPaymentID string          `json:"gatewayPaymentId,omitempty"`
	Receipt          string          `json:"receipt"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	DeliveryStatus   DeliveryStatus  `json:"deliveryStatus"`
	FailureReason    string          `json:"failureReason,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// SummaryItem is an order line resolved against the catalog. Products that
// have since been deleted keep their id but lose their display fields.
type SummaryItem struct {
	ProductID    string `json:"productId"`
	Title        string `json:"title"`
	PriceInPaisa int64  `json:"sellingPriceInPaisa"`
	Quantity     int    `json:"quantity"`
}

type Summary struct {
	ID              string          `json:"id"`
	Items           []SummaryItem   `json:"items"`
	TotalAmount     int64           `json:"totalAmount"`
	Currency        string          `json:"currency"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	DeliveryStatus  DeliveryStatus  `json:"deliveryStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}
