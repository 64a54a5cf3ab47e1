package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type OrderService interface {
	History(ctx context.Context, userID string) ([]order.Summary, error)
	Track(ctx context.Context, userID, orderID string) (*order.Order, error)
	UpdateDeliveryStatus(ctx context.Context, orderID string, next order.DeliveryStatus, correlationID string) (*order.Order, error)
}

type OrderHandler struct {
	svc    OrderService
	logger *slog.Logger
}

func NewOrderHandler(svc OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	orders, err := h.svc.History(ctx, auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders, "Orders fetched successfully")
}

func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	o, err := h.svc.Track(ctx, auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o, "Order fetched successfully")
}

func (h *OrderHandler) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status order.DeliveryStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	o, err := h.svc.UpdateDeliveryStatus(ctx, chi.URLParam(r, "id"), body.Status, CorrelationIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o, "Delivery status updated")
}
