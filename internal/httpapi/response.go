package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/payment"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid json")

// APIResponse is the envelope shared by every response, success or not.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, data any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    msg,
		Success:    status < http.StatusBadRequest,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, nil, msg)
}

// writeDomainError maps a service error to its status code. Server-side
// failures are logged and reported with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"correlation_id", CorrelationIDFrom(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, msg)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrNotInCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrTotalOutOfRange),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrInvalidDelivery),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidRating),
		errors.Is(err, checkout.ErrPaymentVerificationFailed),
		errors.Is(err, checkout.ErrInvalidWebhook),
		errors.Is(err, idempotency.ErrInvalidKey),
		errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, checkout.ErrInvalidWebhookSignature):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, cart.ErrConflict),
		errors.Is(err, idempotency.ErrInProgress):
		return http.StatusConflict, err.Error()

	case errors.Is(err, idempotency.ErrKeyReused):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, payment.ErrGateway):
		return http.StatusInternalServerError, "payment gateway error"

	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}
