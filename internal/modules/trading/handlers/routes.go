package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trade routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Post("/", h.HandleSubmit)
		r.Get("/{id}", h.HandleGet)
		r.Get("/fund/{fundID}", h.HandleListByFund)
		r.Post("/{id}/override", h.HandleOverride)
		r.Post("/{id}/cancel", h.HandleCancel)
	})
}
