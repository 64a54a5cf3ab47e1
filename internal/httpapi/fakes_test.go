package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/logger"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const testSecret = "test-secret"

type fakeCart struct {
	addFunc      func(ctx context.Context, userID, productID string, quantity int) (cart.View, error)
	decreaseFunc func(ctx context.Context, userID, productID string, quantity int) (cart.View, error)
	removeFunc   func(ctx context.Context, userID, productID string) (cart.View, error)
	getFunc      func(ctx context.Context, userID string) (cart.View, error)
}

func (f *fakeCart) AddItem(ctx context.Context, userID, productID string, quantity int) (cart.View, error) {
	return f.addFunc(ctx, userID, productID, quantity)
}

func (f *fakeCart) DecreaseItem(ctx context.Context, userID, productID string, quantity int) (cart.View, error) {
	return f.decreaseFunc(ctx, userID, productID, quantity)
}

func (f *fakeCart) RemoveItem(ctx context.Context, userID, productID string) (cart.View, error) {
	return f.removeFunc(ctx, userID, productID)
}

func (f *fakeCart) GetCart(ctx context.Context, userID string) (cart.View, error) {
	return f.getFunc(ctx, userID)
}

type fakeCheckout struct {
	createFunc  func(ctx context.Context, req checkout.CreateOrderRequest) (checkout.CreateOrderResult, error)
	verifyFunc  func(ctx context.Context, req checkout.VerifyPaymentRequest) (*order.Order, error)
	webhookFunc func(ctx context.Context, body []byte, signature, correlationID string) error
}

func (f *fakeCheckout) CreateOrder(ctx context.Context, req checkout.CreateOrderRequest) (checkout.CreateOrderResult, error) {
	return f.createFunc(ctx, req)
}

func (f *fakeCheckout) VerifyPayment(ctx context.Context, req checkout.VerifyPaymentRequest) (*order.Order, error) {
	return f.verifyFunc(ctx, req)
}

func (f *fakeCheckout) HandleWebhook(ctx context.Context, body []byte, signature, correlationID string) error {
	return f.webhookFunc(ctx, body, signature, correlationID)
}

type fakeOrders struct {
	historyFunc  func(ctx context.Context, userID string) ([]order.Summary, error)
	trackFunc    func(ctx context.Context, userID, orderID string) (*order.Order, error)
	deliveryFunc func(ctx context.Context, orderID string, next order.DeliveryStatus, correlationID string) (*order.Order, error)
}

func (f *fakeOrders) History(ctx context.Context, userID string) ([]order.Summary, error) {
	return f.historyFunc(ctx, userID)
}

func (f *fakeOrders) Track(ctx context.Context, userID, orderID string) (*order.Order, error) {
	return f.trackFunc(ctx, userID, orderID)
}

func (f *fakeOrders) UpdateDeliveryStatus(ctx context.Context, orderID string, next order.DeliveryStatus, correlationID string) (*order.Order, error) {
	return f.deliveryFunc(ctx, orderID, next, correlationID)
}

type fakeCatalog struct {
	getFunc          func(ctx context.Context, id string) (catalog.Product, error)
	listFunc         func(ctx context.Context, f catalog.Filter) (catalog.Page, error)
	listBySellerFunc func(ctx context.Context, ownerID string, page, limit int) (catalog.Page, error)
	createFunc       func(ctx context.Context, ownerID string, in catalog.ProductInput) (catalog.Product, error)
	updateFunc       func(ctx context.Context, ownerID, id string, in catalog.ProductInput) (catalog.Product, error)
	deleteFunc       func(ctx context.Context, ownerID, id string) error
	rateFunc         func(ctx context.Context, id string, rating int) (catalog.Product, error)
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (catalog.Product, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeCatalog) List(ctx context.Context, filter catalog.Filter) (catalog.Page, error) {
	return f.listFunc(ctx, filter)
}

func (f *fakeCatalog) ListBySeller(ctx context.Context, ownerID string, page, limit int) (catalog.Page, error) {
	return f.listBySellerFunc(ctx, ownerID, page, limit)
}

func (f *fakeCatalog) Create(ctx context.Context, ownerID string, in catalog.ProductInput) (catalog.Product, error) {
	return f.createFunc(ctx, ownerID, in)
}

func (f *fakeCatalog) Update(ctx context.Context, ownerID, id string, in catalog.ProductInput) (catalog.Product, error) {
	return f.updateFunc(ctx, ownerID, id, in)
}

func (f *fakeCatalog) Delete(ctx context.Context, ownerID, id string) error {
	return f.deleteFunc(ctx, ownerID, id)
}

func (f *fakeCatalog) Rate(ctx context.Context, id string, rating int) (catalog.Product, error) {
	return f.rateFunc(ctx, id, rating)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// newTestRouter fills unset services with empty fakes so every route resolves.
func newTestRouter(d Deps) http.Handler {
	d.Logger = logger.Discard()
	d.Cfg = config.Config{CORSAllowOrigins: []string{"*"}}
	d.Verifier = auth.NewVerifier(testSecret)
	if d.Cart == nil {
		d.Cart = &fakeCart{}
	}
	if d.Checkout == nil {
		d.Checkout = &fakeCheckout{}
	}
	if d.Orders == nil {
		d.Orders = &fakeOrders{}
	}
	if d.Catalog == nil {
		d.Catalog = &fakeCatalog{}
	}
	return NewRouter(d)
}

func token(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"_id":   userID,
		"email": userID + "@example.com",
		"role":  string(role),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func doRequest(t *testing.T, h http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.Equal(t, rr.Code, env.StatusCode)
	return env
}
