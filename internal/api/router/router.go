package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/relaydesk/warelay/internal/channels/whatsapp"
	"github.com/relaydesk/warelay/internal/http/handlers"
	httpmiddleware "github.com/relaydesk/warelay/internal/http/middleware"
	"github.com/relaydesk/warelay/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Webhook        *whatsapp.WebhookHandler
	Dashboard      *handlers.DashboardHandler
	MetricsHandler http.Handler

	// OperatorAuthSecret guards mutating dashboard endpoints when set.
	OperatorAuthSecret string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: provider webhook, health, metrics.
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		public.Get("/webhook", cfg.Webhook.HandleVerification)
		public.Post("/webhook", cfg.Webhook.HandleInbound)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Dashboard API. Reads stay open; mutations require the operator
	// JWT when a secret is configured.
	r.Route("/api", func(api chi.Router) {
		api.Get("/chats", cfg.Dashboard.ListChats)
		api.Get("/chats/{phone}/messages", cfg.Dashboard.ListMessages)
		api.Get("/stats", cfg.Dashboard.Stats)

		api.Group(func(mutating chi.Router) {
			if cfg.OperatorAuthSecret != "" {
				mutating.Use(httpmiddleware.OperatorJWT(cfg.OperatorAuthSecret))
			}
			mutating.Post("/send", cfg.Dashboard.Send)
			mutating.Post("/toggle-ai", cfg.Dashboard.ToggleAI)
			mutating.Post("/simulate-message", cfg.Dashboard.Simulate)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
