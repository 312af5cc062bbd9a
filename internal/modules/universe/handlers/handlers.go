// Package handlers provides HTTP handlers for the issuer, security, and
// price reference data.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

// Handler provides HTTP handlers for universe endpoints
type Handler struct {
	issuers      *universe.IssuerRepository
	securities   *universe.SecurityRepository
	prices       *universe.PriceRepository
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(
	issuers *universe.IssuerRepository,
	securities *universe.SecurityRepository,
	prices *universe.PriceRepository,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		issuers:      issuers,
		securities:   securities,
		prices:       prices,
		eventManager: eventManager,
		log:          log.With().Str("handler", "universe").Logger(),
	}
}

// HandleCreateIssuer handles POST /api/issuers
func (h *Handler) HandleCreateIssuer(w http.ResponseWriter, r *http.Request) {
	var issuer universe.Issuer
	if err := json.NewDecoder(r.Body).Decode(&issuer); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.issuers.Create(issuer)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create issuer")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleListIssuers handles GET /api/issuers
func (h *Handler) HandleListIssuers(w http.ResponseWriter, r *http.Request) {
	list, err := h.issuers.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list issuers")
		http.Error(w, "Failed to list issuers", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []universe.Issuer{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleCreateSecurity handles POST /api/securities
func (h *Handler) HandleCreateSecurity(w http.ResponseWriter, r *http.Request) {
	var security universe.Security
	if err := json.NewDecoder(r.Body).Decode(&security); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.securities.Create(security)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create security")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleSearchSecurities handles GET /api/securities?q=...
func (h *Handler) HandleSearchSecurities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	list, err := h.securities.Search(query, limit)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Failed to search securities")
		http.Error(w, "Failed to search securities", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []universe.Security{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGetSecurity handles GET /api/securities/{ticker}
func (h *Handler) HandleGetSecurity(w http.ResponseWriter, r *http.Request) {
	ticker := universe.CanonicalTicker(chi.URLParam(r, "ticker"))

	security, err := h.securities.GetByTicker(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to get security")
		http.Error(w, "Failed to get security", http.StatusInternalServerError)
		return
	}
	if security == nil {
		http.Error(w, "Security not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(security)
}

// HandleUpsertPrice handles POST /api/prices
func (h *Handler) HandleUpsertPrice(w http.ResponseWriter, r *http.Request) {
	var price universe.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&price); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.prices.Upsert(price); err != nil {
		h.log.Error().Err(err).Str("ticker", price.Ticker).Msg("Failed to upsert price")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.eventManager != nil {
		h.eventManager.EmitTyped("universe", &events.PriceUpdatedData{
			Ticker:    universe.CanonicalTicker(price.Ticker),
			Price:     price.Price,
			PriceDate: price.PriceDate,
		})
	}

	writeSuccess(w)
}

// HandleCurrentPrice handles GET /api/prices/{ticker}
func (h *Handler) HandleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	ticker := universe.CanonicalTicker(chi.URLParam(r, "ticker"))

	price, err := h.prices.LatestPrice(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to get price")
		http.Error(w, "Failed to get price", http.StatusInternalServerError)
		return
	}
	if price == nil {
		http.Error(w, "No price on record for "+ticker, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(price)
}

// HandlePriceHistory handles GET /api/prices/{ticker}/history
func (h *Handler) HandlePriceHistory(w http.ResponseWriter, r *http.Request) {
	ticker := universe.CanonicalTicker(chi.URLParam(r, "ticker"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 1000 {
		limit = 90
	}

	history, err := h.prices.History(ticker, limit)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to get price history")
		http.Error(w, "Failed to get price history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []universe.PricePoint{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

func writeSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}
