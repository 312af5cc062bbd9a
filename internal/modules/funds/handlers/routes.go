package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all fund routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/funds", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/summary", h.HandleSummary)
		r.Get("/{id}/holdings", h.HandleHoldings)
		r.Put("/{id}/cash", h.HandleUpdateCash)
	})
}
