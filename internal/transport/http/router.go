package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pushsvc/internal/handler"
	"pushsvc/internal/httputil"
	authmw "pushsvc/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	PushHandler *handler.PushHandler
	JWTSecret   string
	Gatherer    prometheus.Gatherer // nil disables /metrics
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Public: clients need the key before they can subscribe
	r.Get("/api/method/vapid_public_key", cfg.PushHandler.VAPIDPublicKey)

	// Subscribe answers guests itself with a SubscribeResponse
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Post("/api/method/push", cfg.PushHandler.Subscribe)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.With(authmw.RequireWriteAny).Post("/api/method/send_push_notification", cfg.PushHandler.SendPushNotification)
	})

	return r
}
