package httpapi

import (
	"context"
	"net/http"
	"time"

	"petcare-be/internal/cart"
	"petcare-be/internal/logger"
	"petcare-be/internal/middleware"
	"petcare-be/internal/order"
	"petcare-be/internal/transport"
	"petcare-be/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthCheck func(ctx context.Context) error

type Deps struct {
	Carts          cart.Service
	Orders         order.Service
	Limiter        *middleware.RateLimiter
	JWTSecret      string
	AllowedOrigin  string
	RequestTimeout time.Duration
	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]HealthCheck
}

func NewRouter(d Deps) http.Handler {
	cartHandler := NewCartHandler(d.Carts, d.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(d.Carts, d.Orders, d.RequestTimeout)

	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigin))

	r.Get("/healthz", healthHandler(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.JWTSecret))
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Use(transport.CartIdentity)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/count", cartHandler.Count)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Post("/checkout", checkoutHandler.Submit)
		r.Get("/checkout/attempts/{key}", checkoutHandler.AttemptStatus)
		r.Get("/orders/{number}", checkoutHandler.GetOrder)
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.FromCtx(ctx).Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "down"
				continue
			}
			body[name] = "up"
		}

		utils.WriteJSON(w, status, body)
	}
}
