package relay

import (
	"go-ws-relay/internal/metrics"
	"go-ws-relay/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures a new chi router for the relay.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Method("GET", "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identify(h.settings, h.log))

		r.Get("/ws/{facility}", h.serveWS)
	})

	return r
}
