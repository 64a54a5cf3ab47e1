package cart

import (
	"errors"
	"time"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("out of stock")
	ErrNotInCart       = errors.New("product not in cart")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrConflict        = errors.New("cart was modified concurrently")
	ErrTotalOutOfRange = errors.New("cart total out of range")
)

// MaxLineQuantity caps how many units of one product a cart may hold.
const MaxLineQuantity = 1000

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is one user's cart document. TotalQuantity and TotalPriceInPaisa are
// derived by Recompute and must not be set anywhere else.
type Cart struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Items             []Item    `json:"items"`
	TotalQuantity     int       `json:"totalQuantity"`
	TotalPriceInPaisa int64     `json:"totalPriceInPaisa"`
	Version           int64     `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) productIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (c *Cart) indexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
