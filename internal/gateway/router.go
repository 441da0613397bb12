package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the widget endpoints, the prefill consumption endpoint and
// the operational surface onto one chi router.
func NewRouter(h *Handler, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HandleHealthz)
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/chat", func(r chi.Router) {
		r.Get("/ws", h.HandleWebSocket)
		r.Post("/message", h.HandleMessage)
		r.Post("/quick", h.HandleQuickSelect)
		r.Post("/restart", h.HandleRestart)
		r.Post("/handoff", h.HandleHandoff)
		r.Get("/history", h.HandleHistory)
		r.Get("/mailto", h.HandleMailto)
		r.Get("/prefill", h.HandlePrefill)
	})

	return r
}
