package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/payment"
)

var (
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrInvalidWebhookSignature   = errors.New("invalid webhook signature")
	ErrInvalidWebhook            = errors.New("invalid webhook payload")
)

// CartPricer returns a user's cart priced against the current catalog.
type CartPricer interface {
	Reprice(ctx context.Context, userID, cartID string) (*cart.Cart, error)
}

// Recorder receives checkout outcomes for metrics.
type Recorder interface {
	OrderCreated(currency string, amount int64)
	PaymentOutcome(source, outcome string)
}

type Options struct {
	Currency string
	// KeyID is the gateway's public key, echoed to clients so they can open the payment widget.
	KeyID    string
	Notifier order.Notifier
	Recorder Recorder
	Logger   *slog.Logger
}

type Service struct {
	carts    CartPricer
	orders   order.Repository
	gateway  payment.Gateway
	signer   *payment.Signer
	idem     idempotency.Store
	notifier order.Notifier
	recorder Recorder
	currency string
	keyID    string
	logger   *slog.Logger
}

func NewService(carts CartPricer, orders order.Repository, gateway payment.Gateway, signer *payment.Signer, idem idempotency.Store, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.Notifier == nil {
		opts.Notifier = order.Notifiers{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		carts:    carts,
		orders:   orders,
		gateway:  gateway,
		signer:   signer,
		idem:     idem,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		currency: opts.Currency,
		keyID:    opts.KeyID,
		logger:   opts.Logger,
	}
}

type CreateOrderRequest struct {
	UserID          string
	CartID          string
	DeliveryDetails order.DeliveryDetails
	IdempotencyKey  string
	CorrelationID   string
}

type CreateOrderResult struct {
	OrderID         string                `json:"orderId"`
	Amount          int64                 `json:"amount"`
	Currency        string                `json:"currency"`
	DeliveryDetails order.DeliveryDetails `json:"deliveryDetails"`
	KeyID           string                `json:"keyId,omitempty"`
	Replayed        bool                  `json:"-"`
}

// CreateOrder snapshots the caller's cart into a Pending order backed by a
// fresh gateway payment intent. The cart itself is left untouched.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	if err := req.DeliveryDetails.Validate(); err != nil {
		return CreateOrderResult{}, err
	}

	if req.IdempotencyKey == "" {
		return s.createOrder(ctx, req)
	}

	fingerprint, err := idempotency.Fingerprint(struct {
		CartID          string                `json:"cartId"`
		DeliveryDetails order.DeliveryDetails `json:"deliveryDetails"`
	}{req.CartID, req.DeliveryDetails})
	if err != nil {
		return CreateOrderResult{}, err
	}
	stored, replay, err := s.idem.Reserve(ctx, req.UserID, req.IdempotencyKey, fingerprint)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if replay {
		var res CreateOrderResult
		if err := json.Unmarshal(stored, &res); err != nil {
			return CreateOrderResult{}, fmt.Errorf("decode stored checkout response: %w", err)
		}
		res.Replayed = true
		return res, nil
	}

	res, err := s.createOrder(ctx, req)
	if err != nil {
		if relErr := s.idem.Release(context.WithoutCancel(ctx), req.UserID, req.IdempotencyKey); relErr != nil {
			s.logger.Warn("release idempotency key failed", "user_id", req.UserID, "error", relErr)
		}
		return CreateOrderResult{}, err
	}

	body, err := json.Marshal(res)
	if err == nil {
		err = s.idem.Complete(ctx, req.UserID, req.IdempotencyKey, body)
	}
	if err != nil {
		// The order exists; a lost replay record only costs a duplicate intent on retry.
		s.logger.Warn("store idempotent checkout response failed", "user_id", req.UserID, "error", err)
	}
	return res, nil
}

func (s *Service) createOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	c, err := s.carts.Reprice(ctx, req.UserID, req.CartID)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if c.IsEmpty() {
		return CreateOrderResult{}, cart.ErrCartNotFound
	}

	receipt := uuid.NewString()
	intent, err := s.gateway.CreateIntent(ctx, c.TotalPriceInPaisa, s.currency, receipt)
	if err != nil {
		s.logger.Error("create payment intent failed", "cart_id", c.ID, "error", err)
		if !errors.Is(err, payment.ErrGateway) {
			err = fmt.Errorf("%w: %v", payment.ErrGateway, err)
		}
		return CreateOrderResult{}, err
	}

	items := make([]order.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, order.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	currency := intent.Currency
	if currency == "" {
		currency = s.currency
	}

	o := &order.Order{
		UserID:          req.UserID,
		CartID:          c.ID,
		Items:           items,
		TotalAmount:     c.TotalPriceInPaisa,
		Currency:        currency,
		DeliveryDetails: req.DeliveryDetails,
		GatewayOrderID:  intent.ID,
		Receipt:         receipt,
		PaymentStatus:   order.PaymentPending,
		DeliveryStatus:  order.DeliveryPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return CreateOrderResult{}, fmt.Errorf("persist order: %w", err)
	}

	s.notifier.OrderChanged(ctx, order.Change{Kind: order.ChangeCreated, Order: *o, CorrelationID: req.CorrelationID})
	s.recorder.OrderCreated(o.Currency, o.TotalAmount)

	return CreateOrderResult{
		OrderID:         intent.ID,
		Amount:          o.TotalAmount,
		Currency:        o.Currency,
		DeliveryDetails: o.DeliveryDetails,
		KeyID:           s.keyID,
	}, nil
}

type VerifyPaymentRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	CorrelationID  string
}

// VerifyPayment marks the order Paid when the checkout callback signature
// matches. Repeating a verified call returns the already paid order.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*order.Order, error) {
	if strings.TrimSpace(req.GatewayOrderID) == "" || strings.TrimSpace(req.PaymentID) == "" || req.Signature == "" {
		s.recorder.PaymentOutcome("callback", "rejected")
		return nil, fmt.Errorf("%w: missing payment fields", ErrPaymentVerificationFailed)
	}
	if !s.signer.VerifyPayment(req.GatewayOrderID, req.PaymentID, req.Signature) {
		s.recorder.PaymentOutcome("callback", "rejected")
		s.logger.Warn("payment signature mismatch", "gateway_order_id", req.GatewayOrderID)
		return nil, ErrPaymentVerificationFailed
	}

	o, changed, err := s.orders.MarkPaid(ctx, req.GatewayOrderID, req.PaymentID)
	if err != nil {
		return nil, err
	}
	s.afterPaid(ctx, "callback", o, changed, req.CorrelationID)
	return o, nil
}

// HandleWebhook applies a signed gateway webhook. Events for unknown orders or
// for orders already past the transition are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature, correlationID string) error {
	if !s.signer.VerifyWebhook(body, signature) {
		s.recorder.PaymentOutcome("webhook", "rejected")
		return ErrInvalidWebhookSignature
	}
	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	gatewayOrderID := ev.GatewayOrderID()
	if gatewayOrderID == "" {
		return fmt.Errorf("%w: missing order id", ErrInvalidWebhook)
	}

	var (
		o       *order.Order
		changed bool
	)
	switch ev.Event {
	case payment.EventPaymentCaptured, payment.EventOrderPaid:
		o, changed, err = s.orders.MarkPaid(ctx, gatewayOrderID, ev.PaymentID())
		if err == nil {
			s.afterPaid(ctx, "webhook", o, changed, correlationID)
		}
	case payment.EventPaymentFailed:
		o, changed, err = s.orders.MarkFailed(ctx, gatewayOrderID, ev.FailureReason())
		if err == nil && changed {
			s.recorder.PaymentOutcome("webhook", "failed")
			s.notifier.OrderChanged(ctx, order.Change{Kind: order.ChangePaymentFailed, Order: *o, CorrelationID: correlationID})
		}
	default:
		s.logger.Debug("ignoring webhook event", "event", ev.Event)
		return nil
	}

	if errors.Is(err, order.ErrNotFound) || errors.Is(err, order.ErrInvalidTransition) {
		s.logger.Info("webhook not applied", "event", ev.Event, "gateway_order_id", gatewayOrderID, "reason", err)
		return nil
	}
	return err
}

func (s *Service) afterPaid(ctx context.Context, source string, o *order.Order, changed bool, correlationID string) {
	if !changed {
		s.recorder.PaymentOutcome(source, "duplicate")
		return
	}
	s.recorder.PaymentOutcome(source, "paid")
	s.notifier.OrderChanged(ctx, order.Change{Kind: order.ChangePaid, Order: *o, CorrelationID: correlationID})
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated(string, int64)     {}
func (nopRecorder) PaymentOutcome(string, string) {}
