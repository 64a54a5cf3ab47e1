package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
)

// ProductInput is what a seller submits. Price is entered in rupees.
type ProductInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	SellingPrice float64  `json:"sellingPrice"`
	TotalStock   int      `json:"totalStock"`
	Image        string   `json:"image"`
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	case !in.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, in.Category)
	case in.SellingPrice < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case !(in.SellingPrice <= MaxSellingPrice):
		return fmt.Errorf("%w: price must not exceed %d", ErrInvalidProduct, MaxSellingPrice)
	case in.TotalStock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

func (in ProductInput) apply(p *Product) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.Category = in.Category
	p.PriceInPaisa = PaisaFromRupees(in.SellingPrice)
	p.Stock = in.TotalStock
	p.Image = in.Image
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) ListBySeller(ctx context.Context, ownerID string, page, limit int) (Page, error) {
	return s.repo.List(ctx, Filter{OwnerID: ownerID, Page: page, Limit: limit, Sort: SortLatest})
}

func (s *Service) Create(ctx context.Context, ownerID string, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	p := Product{OwnerID: ownerID}
	in.apply(&p)
	if err := s.repo.Create(ctx, &p); err != nil {
		return Product{}, err
	}
	p.AvgRating = averageRating(p.RatingTotal, p.RatingCount)
	return p, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	p := Product{ID: id, OwnerID: ownerID}
	in.apply(&p)
	if err := s.repo.Update(ctx, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, id, ownerID)
}

func (s *Service) Rate(ctx context.Context, id string, rating int) (Product, error) {
	if rating < 1 || rating > 5 {
		return Product{}, ErrInvalidRating
	}
	return s.repo.Rate(ctx, id, rating)
}
