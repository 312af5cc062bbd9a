package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all alert routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/summary", h.HandleSummary)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/override", h.HandleOverride)
		r.Post("/{id}/cancel", h.HandleCancel)
	})
}
