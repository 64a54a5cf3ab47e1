package order

import (
	"context"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

type ChangeKind string

const (
	ChangeCreated         ChangeKind = "created"
	ChangePaid            ChangeKind = "paid"
	ChangePaymentFailed   ChangeKind = "payment_failed"
	ChangeDeliveryUpdated ChangeKind = "delivery_status_changed"
)

// Change describes a persisted order state change.
type Change struct {
	Kind          ChangeKind
	Order         Order
	CorrelationID string
}

// Notifier is told about every committed order change. Implementations must
// not fail the caller; delivery is best effort.
type Notifier interface {
	OrderChanged(ctx context.Context, change Change)
}

// Notifiers fans a change out to several notifiers in order.
type Notifiers []Notifier

func (ns Notifiers) OrderChanged(ctx context.Context, change Change) {
	for _, n := range ns {
		if n != nil {
			n.OrderChanged(ctx, change)
		}
	}
}

type ProductLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type Service struct {
	repo     Repository
	products ProductLookup
	notifier Notifier
}

func NewService(repo Repository, products ProductLookup, notifier Notifier) *Service {
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &Service{repo: repo, products: products, notifier: notifier}
}

// History lists the user's orders newest first with product names resolved.
func (s *Service) History(ctx context.Context, userID string) ([]Summary, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var ids []string
	for _, o := range orders {
		for _, it := range o.Items {
			if _, ok := seen[it.ProductID]; !ok {
				seen[it.ProductID] = struct{}{}
				ids = append(ids, it.ProductID)
			}
		}
	}

	products := map[string]catalog.Product{}
	if len(ids) > 0 {
		products, err = s.products.GetMany(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve products: %w", err)
		}
	}

	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		out = append(out, summarize(o, products))
	}
	return out, nil
}

// Track returns one of the user's orders. Orders of other users are reported as missing.
func (s *Service) Track(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID string, next DeliveryStatus, correlationID string) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery status %q", ErrInvalidTransition, next)
	}

	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.DeliveryStatus.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.DeliveryStatus, next)
	}
	if next != DeliveryCancelled && current.PaymentStatus != PaymentPaid {
		return nil, fmt.Errorf("%w: order is not paid", ErrInvalidTransition)
	}

	updated, err := s.repo.UpdateDeliveryStatus(ctx, orderID, current.DeliveryStatus, next)
	if err != nil {
		return nil, err
	}

	s.notifier.OrderChanged(ctx, Change{Kind: ChangeDeliveryUpdated, Order: *updated, CorrelationID: correlationID})
	return updated, nil
}

func summarize(o Order, products map[string]catalog.Product) Summary {
	items := make([]SummaryItem, 0, len(o.Items))
	for _, it := range o.Items {
		p := products[it.ProductID]
		items = append(items, SummaryItem{
			ProductID:    it.ProductID,
			Title:        p.Title,
			PriceInPaisa: p.PriceInPaisa,
			Quantity:     it.Quantity,
		})
	}
	return Summary{
		ID:              o.ID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		DeliveryDetails: o.DeliveryDetails,
		PaymentStatus:   o.PaymentStatus,
		DeliveryStatus:  o.DeliveryStatus,
		CreatedAt:       o.CreatedAt,
	}
}
