package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/issuers", func(r chi.Router) {
		r.Post("/", h.HandleCreateIssuer)
		r.Get("/", h.HandleListIssuers)
	})
	r.Route("/securities", func(r chi.Router) {
		r.Post("/", h.HandleCreateSecurity)
		r.Get("/", h.HandleSearchSecurities)
		r.Get("/{ticker}", h.HandleGetSecurity)
	})
	r.Route("/prices", func(r chi.Router) {
		r.Post("/", h.HandleUpsertPrice)
		r.Get("/{ticker}", h.HandleCurrentPrice)
		r.Get("/{ticker}/history", h.HandlePriceHistory)
	})
}
