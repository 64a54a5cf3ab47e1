package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
)

const dbTimeout = 3 * time.Second

type CartService interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) (cart.View, error)
	DecreaseItem(ctx context.Context, userID, productID string, quantity int) (cart.View, error)
	RemoveItem(ctx context.Context, userID, productID string) (cart.View, error)
	GetCart(ctx context.Context, userID string) (cart.View, error)
}

type CartHandler struct {
	svc    CartService
	logger *slog.Logger
}

func NewCartHandler(svc CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{svc: svc, logger: logger}
}

type cartItemRequest struct {
	ProductID string `json:"productID"`
	Quantity  *int   `json:"quantity"`
}

func (h *CartHandler) decodeItem(w http.ResponseWriter, r *http.Request) (cartItemRequest, int, bool) {
	var body cartItemRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return body, 0, false
	}
	body.ProductID = strings.TrimSpace(body.ProductID)
	if body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productID is required")
		return body, 0, false
	}
	qty := 1
	if body.Quantity != nil {
		qty = *body.Quantity
	}
	return body, qty, true
}

func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	body, qty, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	v, err := h.svc.AddItem(ctx, auth.UserID(r.Context()), body.ProductID, qty)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v, "Product added to cart")
}

func (h *CartHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	body, qty, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	v, err := h.svc.DecreaseItem(ctx, auth.UserID(r.Context()), body.ProductID, qty)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v, "Cart quantity updated")
}

func (h *CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	body, _, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	v, err := h.svc.RemoveItem(ctx, auth.UserID(r.Context()), body.ProductID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v, "Product removed from cart")
}

func (h *CartHandler) GetCartItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	v, err := h.svc.GetCart(ctx, auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if v.IsEmpty() {
		writeJSON(w, http.StatusOK, v, "Your cart is empty")
		return
	}
	writeJSON(w, http.StatusOK, v, "Cart fetched successfully")
}
