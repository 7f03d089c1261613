package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelinehq/cartside/api/controllers"
	"github.com/avelinehq/cartside/api/middleware"
	"github.com/avelinehq/cartside/internal/lifecycle"
	"github.com/avelinehq/cartside/pkg/config"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/money"
)

// NewRouter wires the HTTP surface around the cart core.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	core *lifecycle.Coordinator,
	registry *prometheus.Registry,
	readiness ...controllers.NamedPinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	policy := money.ShippingPolicy{
		FreeThreshold: cfg.Cart.FreeShippingThreshold,
		FlatFee:       cfg.Cart.FlatShippingFee,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(core, policy, logg))
			r.Delete("/", controllers.CartClear(core, policy, logg))
			r.Post("/items", controllers.CartAddItem(core, policy, logg))
			r.Put("/items/{productID}", controllers.CartSetQuantity(core, policy, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(core, policy, logg))
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionGet(core, logg))
			r.With(middleware.Auth(cfg.JWT, logg)).Post("/login", controllers.SessionLogin(core, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutBegin(core, logg))
			r.Post("/confirm", controllers.CheckoutConfirm(core, logg))
			r.Post("/cancel", controllers.CheckoutCancel(core, logg))
		})
	})

	return r
}
