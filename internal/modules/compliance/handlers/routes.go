package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all compliance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Post("/portfolio/{fundID}", h.HandleRunPortfolio)
		r.Post("/dry-run", h.HandleDryRun)
	})
}
