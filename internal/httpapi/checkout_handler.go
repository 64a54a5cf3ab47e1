package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const (
	HeaderWebhookSignature = "X-Razorpay-Signature"
	HeaderReplayed         = "Idempotent-Replayed"
)

type CheckoutService interface {
	CreateOrder(ctx context.Context, req checkout.CreateOrderRequest) (checkout.CreateOrderResult, error)
	VerifyPayment(ctx context.Context, req checkout.VerifyPaymentRequest) (*order.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature, correlationID string) error
}

type CheckoutHandler struct {
	svc     CheckoutService
	timeout time.Duration
	logger  *slog.Logger
}

// NewCheckoutHandler bounds each call by timeout, which must cover the gateway round trip.
func NewCheckoutHandler(svc CheckoutService, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CheckoutHandler{svc: svc, timeout: timeout, logger: logger}
}

func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CartID          string                `json:"cartId"`
		LegacyCartID    string                `json:"_id"`
		DeliveryDetails order.DeliveryDetails `json:"deliveryDetails"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cartID := body.CartID
	if cartID == "" {
		cartID = body.LegacyCartID
	}
	if cartID == "" {
		writeError(w, http.StatusBadRequest, "cartId is required")
		return
	}
	key := idempotency.Key(r)
	if len(key) > idempotency.MaxKeyLength {
		writeDomainError(w, r, h.logger, idempotency.ErrInvalidKey)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.CreateOrder(ctx, checkout.CreateOrderRequest{
		UserID:          auth.UserID(r.Context()),
		CartID:          cartID,
		DeliveryDetails: body.DeliveryDetails,
		IdempotencyKey:  key,
		CorrelationID:   CorrelationIDFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if res.Replayed {
		w.Header().Set(HeaderReplayed, "true")
	}
	writeJSON(w, http.StatusCreated, res, "Order created successfully")
}

func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	o, err := h.svc.VerifyPayment(ctx, checkout.VerifyPaymentRequest{
		GatewayOrderID: body.OrderID,
		PaymentID:      body.PaymentID,
		Signature:      body.Signature,
		CorrelationID:  CorrelationIDFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o, "Payment verified successfully")
}

func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if err := h.svc.HandleWebhook(ctx, body, r.Header.Get(HeaderWebhookSignature), CorrelationIDFrom(r.Context())); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Webhook processed")
}
