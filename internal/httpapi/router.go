package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
)

const serviceName = "storefront-service"

type Pinger interface {
	Ping(ctx context.Context) error
}

type OrderFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Logger   *slog.Logger
	Cfg      config.Config
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics

	Cart     CartService
	Checkout CheckoutService
	Orders   OrderService
	Catalog  CatalogService
	Feed     OrderFeed
	DB       Pinger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares (outer -> inner)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(d.Cfg.CORSAllowOrigins))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/health", healthHandler(d.DB))

	products := NewProductHandler(d.Catalog, d.Logger)
	r.Get("/products", products.List)
	r.Get("/products/{id}", products.Get)

	checkout := NewCheckoutHandler(d.Checkout, d.Cfg.Payment.Timeout+5*time.Second, d.Logger)
	// Gateway callbacks authenticate with their own signature.
	r.Post("/checkout/webhook", checkout.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(d.Verifier))

		r.With(RequireCapability(auth.Shop)).Post("/products/{id}/rating", products.Rate)

		r.Route("/cart", func(r chi.Router) {
			r.Use(RequireCapability(auth.Shop))
			cart := NewCartHandler(d.Cart, d.Logger)
			r.Put("/add-to-cart", cart.AddToCart)
			r.Put("/decrease-quantity", cart.DecreaseQuantity)
			r.Put("/delete-item", cart.DeleteItem)
			r.Get("/get-cart-items", cart.GetCartItems)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(RequireCapability(auth.Shop))
			r.Post("/create-order", checkout.CreateOrder)
			r.Post("/verify-payment", checkout.VerifyPayment)
		})

		orders := NewOrderHandler(d.Orders, d.Logger)
		r.Route("/orders", func(r chi.Router) {
			if d.Feed != nil {
				r.Get("/ws", d.Feed.ServeWS)
			}
			r.With(RequireCapability(auth.Shop)).Get("/", orders.History)
			r.With(RequireCapability(auth.Shop)).Get("/{id}", orders.Track)
			r.With(RequireCapability(auth.ManageOrders)).Put("/{id}/delivery-status", orders.UpdateDeliveryStatus)
		})

		r.Route("/seller/products", func(r chi.Router) {
			r.Use(RequireCapability(auth.ManageProducts))
			r.Get("/", products.SellerList)
			r.Post("/", products.SellerCreate)
			r.Put("/{id}", products.SellerUpdate)
			r.Delete("/{id}", products.SellerDelete)
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "service": serviceName}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status["status"] = "degraded"
				writeJSON(w, http.StatusServiceUnavailable, status, "database unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, status, "ok")
	}
}
