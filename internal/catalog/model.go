package catalog

import (
	"math"
	"time"
)

type Category string

const (
	CategoryMen         Category = "Men"
	CategoryWomen       Category = "Women"
	CategoryKids        Category = "Kids"
	CategoryAccessories Category = "Accessories"
	CategoryFootwear    Category = "Footwear"
	CategoryJewellery   Category = "Jewellery"
)

var categories = []Category{
	CategoryMen, CategoryWomen, CategoryKids, CategoryAccessories, CategoryFootwear, CategoryJewellery,
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	PriceInPaisa int64     `json:"sellingPriceInPaisa"`
	Stock        int       `json:"totalStock"`
	RatingTotal  int64     `json:"-"`
	RatingCount  int       `json:"ratingCount"`
	AvgRating    float64   `json:"avgRating"`
	Image        string    `json:"image"`
	OwnerID      string    `json:"owner"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// averageRating rounds to one decimal place.
func averageRating(total int64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*10) / 10
}

// MaxSellingPrice is the highest price in rupees a seller may list.
const MaxSellingPrice = 10_000_000

// PaisaFromRupees converts a rupee amount entered by a seller into paisa.
// Callers bound rupees by MaxSellingPrice first.
func PaisaFromRupees(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

type Sort string

const (
	SortLatest    Sort = "latest"
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	Categories []Category
	MinPrice   *int64 // paisa
	MaxPrice   *int64 // paisa
	Search     string
	OwnerID    string
	Sort       Sort
	Page       int
	Limit      int
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	switch f.Sort {
	case SortPriceAsc, SortPriceDesc:
	default:
		f.Sort = SortLatest
	}
	return f
}

type Page struct {
	Products      []Product `json:"products"`
	CurrentPage   int       `json:"currentPage"`
	TotalPages    int       `json:"totalPages"`
	TotalProducts int       `json:"totalProducts"`
	HasMore       bool      `json:"hasMore"`
}

func newPage(products []Product, total, page, limit int) Page {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	if products == nil {
		products = []Product{}
	}
	return Page{
		Products:      products,
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalProducts: total,
		HasMore:       page < totalPages,
	}
}
