package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ErnestIssa/peak-mode/pkg/metrics"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SecureCookies      bool
	// Logger receives the request log; nil uses slog.Default.
	Logger *slog.Logger
}

func NewRouter(cfg RouterConfig, products *ProductHandler, carts *CartHandler, checkouts *CheckoutHandler,
	serverMetrics *metrics.ServerMetrics, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if serverMetrics != nil {
		r.Use(MetricsMiddleware(serverMetrics))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ProfileMiddleware(cfg.SecureCookies))

		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
			}
			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.List)
				r.Get("/{source}/{id}", products.Get)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)
				r.Post("/items", carts.AddItem)
				r.Put("/items", carts.UpdateQuantity)
				r.Delete("/items", carts.RemoveItem)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkouts.Open)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", checkouts.Get)
				r.Delete("/", checkouts.Close)
				r.Post("/continue", checkouts.Continue)
				r.Post("/pay", checkouts.Pay)
				r.Post("/retry", checkouts.Retry)
			})
		})
	})

	return r
}
