package cart

import "github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"

type ProductSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Image        string `json:"image"`
	PriceInPaisa int64  `json:"sellingPriceInPaisa"`
}

type LineView struct {
	Product   ProductSummary `json:"product"`
	Quantity  int            `json:"quantity"`
	ItemTotal int64          `json:"itemTotal"`
}

// View is the client-facing cart: line items joined with current product
// display fields and their subtotals.
type View struct {
	CartID      string     `json:"cartId,omitempty"`
	Items       []LineView `json:"items"`
	TotalItems  int        `json:"totalItems"`
	TotalAmount int64      `json:"totalAmount"`
}

func (v View) IsEmpty() bool {
	return len(v.Items) == 0
}

func emptyView() View {
	return View{Items: []LineView{}}
}

// newView prices c with the same aggregation Recompute uses, so a freshly
// mutated cart shows exactly its stored totals.
func newView(c *Cart, products map[string]catalog.Product) (View, error) {
	items, qty, total, err := aggregate(c.Items, products)
	if err != nil {
		return View{}, err
	}

	v := emptyView()
	v.CartID = c.ID
	v.TotalItems = qty
	v.TotalAmount = total
	for _, it := range items {
		p := products[it.ProductID]
		v.Items = append(v.Items, LineView{
			Product: ProductSummary{
				ID:           p.ID,
				Title:        p.Title,
				Image:        p.Image,
				PriceInPaisa: p.PriceInPaisa,
			},
			Quantity:  it.Quantity,
			ItemTotal: int64(it.Quantity) * p.PriceInPaisa,
		})
	}
	return v, nil
}
