// Package handlers provides HTTP handlers for fund management and the
// valuation read model.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
)

// HoldingsReader supplies the decorated holdings of a fund.
type HoldingsReader interface {
	GetFundHoldingsWithValues(fundID int64) ([]holdings.HoldingWithValue, error)
}

// Handler provides HTTP handlers for fund endpoints
type Handler struct {
	service  *funds.Service
	holdings HoldingsReader
	log      zerolog.Logger
}

// NewHandler creates a new funds handler
func NewHandler(service *funds.Service, holdingsReader HoldingsReader, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		holdings: holdingsReader,
		log:      log.With().Str("handler", "funds").Logger(),
	}
}

// HandleCreate handles POST /api/funds
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var fund funds.Fund
	if err := json.NewDecoder(r.Body).Decode(&fund); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(fund)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create fund")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleList handles GET /api/funds
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list funds")
		http.Error(w, "Failed to list funds", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []funds.Fund{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /api/funds/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fundID(w, r)
	if !ok {
		return
	}

	fund, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, "Failed to get fund")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fund)
}

// HandleSummary handles GET /api/funds/{id}/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fundID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(id)
	if err != nil {
		h.writeError(w, err, "Failed to compute fund summary")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// HandleHoldings handles GET /api/funds/{id}/holdings
func (h *Handler) HandleHoldings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fundID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Get(id); err != nil {
		h.writeError(w, err, "Failed to get fund")
		return
	}

	list, err := h.holdings.GetFundHoldingsWithValues(id)
	if err != nil {
		h.log.Error().Err(err).Int64("fund_id", id).Msg("Failed to list fund holdings")
		http.Error(w, "Failed to list fund holdings", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []holdings.HoldingWithValue{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleUpdateCash handles PUT /api/funds/{id}/cash
func (h *Handler) HandleUpdateCash(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fundID(w, r)
	if !ok {
		return
	}

	var body struct {
		Cash float64 `json:"cash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Cash < 0 {
		http.Error(w, "Cash cannot be negative", http.StatusBadRequest)
		return
	}

	fund, err := h.service.UpdateCash(id, body.Cash)
	if err != nil {
		h.writeError(w, err, "Failed to update fund cash")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fund)
}

func (h *Handler) fundID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid fund id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, funds.ErrFundNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
