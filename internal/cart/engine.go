package cart

import (
	"fmt"
	"math"
	"slices"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

// The mutators below operate on an in-memory cart and a snapshot of the
// products it references. Each one leaves the aggregates recomputed. On error
// the cart is left exactly as it was.

// AddItem increments the line item for productID or appends a new one.
func (c *Cart) AddItem(products map[string]catalog.Product, productID string, quantity int) error {
	if quantity <= 0 || quantity > MaxLineQuantity {
		return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidQuantity, MaxLineQuantity)
	}
	p, ok := products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock <= 0 {
		return ErrOutOfStock
	}

	items := slices.Clone(c.Items)
	if i := c.indexOf(productID); i >= 0 {
		next := items[i].Quantity + quantity
		if next > MaxLineQuantity {
			return fmt.Errorf("%w: at most %d of one product", ErrInvalidQuantity, MaxLineQuantity)
		}
		items[i].Quantity = next
	} else {
		items = append(items, Item{ProductID: productID, Quantity: quantity})
	}

	return c.replaceItems(items, products)
}

// DecreaseItem lowers the quantity of a line item and drops it once nothing is left.
func (c *Cart) DecreaseItem(products map[string]catalog.Product, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i := c.indexOf(productID)
	if i < 0 {
		return ErrNotInCart
	}

	items := slices.Clone(c.Items)
	if remaining := items[i].Quantity - quantity; remaining > 0 {
		items[i].Quantity = remaining
	} else {
		items = slices.Delete(items, i, i+1)
	}

	return c.replaceItems(items, products)
}

func (c *Cart) RemoveItem(products map[string]catalog.Product, productID string) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrNotInCart
	}
	return c.replaceItems(slices.Delete(slices.Clone(c.Items), i, i+1), products)
}

// Recompute rebuilds the cached aggregates from every line item using that
// item's own product price. Items whose product no longer exists are pruned.
func (c *Cart) Recompute(products map[string]catalog.Product) error {
	return c.replaceItems(c.Items, products)
}

func (c *Cart) replaceItems(items []Item, products map[string]catalog.Product) error {
	kept, qty, total, err := aggregate(items, products)
	if err != nil {
		return err
	}
	c.Items = kept
	c.TotalQuantity = qty
	c.TotalPriceInPaisa = total
	return nil
}

// aggregate returns the priced line items and their totals. It never modifies items.
func aggregate(items []Item, products map[string]catalog.Product) ([]Item, int, int64, error) {
	kept := make([]Item, 0, len(items))
	var qty, total int64
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || it.Quantity <= 0 {
			continue
		}
		line, ok := mulChecked(int64(it.Quantity), p.PriceInPaisa)
		if !ok {
			return nil, 0, 0, ErrTotalOutOfRange
		}
		if total, ok = addChecked(total, line); !ok {
			return nil, 0, 0, ErrTotalOutOfRange
		}
		if qty, ok = addChecked(qty, int64(it.Quantity)); !ok || qty > math.MaxInt32 {
			return nil, 0, 0, ErrTotalOutOfRange
		}
		kept = append(kept, it)
	}
	return kept, int(qty), total, nil
}

// mulChecked and addChecked work on non-negative amounts and report overflow.
func mulChecked(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func addChecked(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
