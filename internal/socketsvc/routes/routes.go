package routes

import (
	"github.com/avvvet/keno-services/internal/socketsvc/handlers"
	"github.com/go-chi/chi"
)

func SetRoutes(r chi.Router, h *handlers.Handler) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", h.HandleWebSocket)
		r.Get("/health", h.HealthHandler)
	})
}
