package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/controllers"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/middleware"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/cart"
	checkoutsvc "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/checkout"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/tracking"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
	pkgredis "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *pkgredis.Client,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	tracker *tracking.Tracker,
	metricsRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var cachePinger pkgredis.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, cachePinger))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	// Tracking by order number needs nothing but the receipt.
	r.Get("/api/v1/tracking/{orderNumber}", controllers.TrackOrder(tracker, logg))

	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CustomerContext(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(cartService, logg))
				r.Delete("/", controllers.ClearCart(cartService, logg))
				r.Post("/items", controllers.AddCartItem(cartService, logg))
				r.Patch("/items/{itemID}", controllers.UpdateCartItem(cartService, logg))
				r.Delete("/items/{itemID}", controllers.RemoveCartItem(cartService, logg))
			})

			r.Post("/checkout", controllers.Checkout(checkoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(ordersService, logg))
				r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
				r.Get("/number/{orderNumber}", controllers.GetOrderByNumber(ordersService, logg))
			})
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Post("/{orderID}/status", controllers.TransitionOrderStatus(ordersService, logg))
		})
	})

	return r
}
