package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

// ProductLookup resolves the products a cart references.
type ProductLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type Options struct {
	// MaxAttempts bounds the read-modify-write loop when a concurrent writer wins.
	MaxAttempts int
	Logger      *slog.Logger
	// OnConflict is called for every lost version race, including the last one.
	OnConflict func()
}

type Service struct {
	repo        Repository
	products    ProductLookup
	maxAttempts int
	logger      *slog.Logger
	onConflict  func()
}

func NewService(repo Repository, products ProductLookup, opts Options) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnConflict == nil {
		opts.OnConflict = func() {}
	}
	return &Service{
		repo:        repo,
		products:    products,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
		onConflict:  opts.OnConflict,
	}
}

func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (View, error) {
	return s.mutate(ctx, userID, productID, true, func(c *Cart, products map[string]catalog.Product) error {
		return c.AddItem(products, productID, quantity)
	})
}

func (s *Service) DecreaseItem(ctx context.Context, userID, productID string, quantity int) (View, error) {
	return s.mutate(ctx, userID, productID, false, func(c *Cart, products map[string]catalog.Product) error {
		return c.DecreaseItem(products, productID, quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (View, error) {
	return s.mutate(ctx, userID, productID, false, func(c *Cart, products map[string]catalog.Product) error {
		return c.RemoveItem(products, productID)
	})
}

// GetCart returns the joined view priced at current catalog prices. A user
// without a cart gets an empty view.
func (s *Service) GetCart(ctx context.Context, userID string) (View, error) {
	c, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return emptyView(), nil
	}
	if err != nil {
		return View{}, err
	}

	products, err := s.products.GetMany(ctx, c.productIDs())
	if err != nil {
		return View{}, fmt.Errorf("load products: %w", err)
	}
	return newView(c, products)
}

// Reprice brings a user's cart in line with the current catalog before it is
// charged: deleted products are dropped and totals use today's prices. The
// result is persisted when it differs from the stored cart, so the charged
// amount always equals what GetCart shows.
func (s *Service) Reprice(ctx context.Context, userID, cartID string) (*Cart, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.repo.GetByID(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if c.UserID != userID {
			return nil, ErrCartNotFound
		}

		products, err := s.products.GetMany(ctx, c.productIDs())
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}

		before := *c
		if err := c.Recompute(products); err != nil {
			return nil, err
		}
		if len(before.Items) == len(c.Items) &&
			before.TotalQuantity == c.TotalQuantity &&
			before.TotalPriceInPaisa == c.TotalPriceInPaisa {
			return c, nil
		}

		err = s.repo.Update(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		s.onConflict()
		if attempt >= s.maxAttempts {
			return nil, ErrConflict
		}
		s.logger.Debug("cart version conflict while repricing, retrying", "cart_id", cartID, "attempt", attempt)
	}
}

func (s *Service) mutate(
	ctx context.Context,
	userID, productID string,
	createIfMissing bool,
	apply func(c *Cart, products map[string]catalog.Product) error,
) (View, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.repo.GetByUser(ctx, userID)
		isNew := false
		switch {
		case errors.Is(err, ErrCartNotFound):
			if !createIfMissing {
				return View{}, ErrNotInCart
			}
			c = &Cart{ID: uuid.NewString(), UserID: userID, Items: []Item{}}
			isNew = true
		case err != nil:
			return View{}, err
		}

		products, err := s.products.GetMany(ctx, append(c.productIDs(), productID))
		if err != nil {
			return View{}, fmt.Errorf("load products: %w", err)
		}

		if err := apply(c, products); err != nil {
			return View{}, err
		}

		if isNew {
			err = s.repo.Insert(ctx, c)
		} else {
			err = s.repo.Update(ctx, c)
		}
		if err == nil {
			return newView(c, products)
		}
		if !errors.Is(err, ErrConflict) {
			return View{}, err
		}
		s.onConflict()
		if attempt >= s.maxAttempts {
			return View{}, ErrConflict
		}
		s.logger.Debug("cart version conflict, retrying", "user_id", userID, "attempt", attempt)
	}
}
