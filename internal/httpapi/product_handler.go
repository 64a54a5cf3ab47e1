package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

type CatalogService interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	List(ctx context.Context, f catalog.Filter) (catalog.Page, error)
	ListBySeller(ctx context.Context, ownerID string, page, limit int) (catalog.Page, error)
	Create(ctx context.Context, ownerID string, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, ownerID, id string, in catalog.ProductInput) (catalog.Product, error)
	Delete(ctx context.Context, ownerID, id string) error
	Rate(ctx context.Context, id string, rating int) (catalog.Product, error)
}

type ProductHandler struct {
	svc    CatalogService
	logger *slog.Logger
}

func NewProductHandler(svc CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, logger: logger}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	page, err := h.svc.List(ctx, f)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "Products fetched successfully")
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	p, err := h.svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "Product fetched successfully")
}

func (h *ProductHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating int `json:"rating"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	p, err := h.svc.Rate(ctx, chi.URLParam(r, "id"), body.Rating)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "Rating submitted")
}

func (h *ProductHandler) SellerList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	res, err := h.svc.ListBySeller(ctx, auth.UserID(r.Context()), page, limit)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res, "Products fetched successfully")
}

func (h *ProductHandler) SellerCreate(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	p, err := h.svc.Create(ctx, auth.UserID(r.Context()), in)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p, "Product created successfully")
}

func (h *ProductHandler) SellerUpdate(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	p, err := h.svc.Update(ctx, auth.UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p, "Product updated successfully")
}

func (h *ProductHandler) SellerDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Product deleted successfully")
}

func parseFilter(q url.Values) (catalog.Filter, error) {
	f := catalog.Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Sort:   catalog.Sort(q.Get("sortBy")),
	}
	if raw := q.Get("category"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, catalog.Category(c))
			}
		}
	}

	var err error
	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit"); err != nil {
		return f, err
	}
	if f.MinPrice, err = priceParam(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = priceParam(q, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name}
	}
	return n, nil
}

// priceParam reads a rupee amount and returns it in paisa.
func priceParam(q url.Values, name string) (*int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	rupees, err := strconv.ParseFloat(raw, 64)
	if err != nil || !(rupees >= 0) {
		return nil, &paramError{name: name}
	}
	rupees = min(rupees, catalog.MaxSellingPrice)
	paisa := catalog.PaisaFromRupees(rupees)
	return &paisa, nil
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return "invalid query parameter: " + e.name
}
