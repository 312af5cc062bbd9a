// Package handlers provides HTTP handlers for trade submission and the
// override/cancel resolution flow.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/trading"
)

// Handler provides HTTP handlers for trade endpoints
type Handler struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(service *trading.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// HandleSubmit handles POST /api/trades
//
// Status codes follow the trade's outcome: 201 when it processed, 403 when
// compliance alerts gate it, 400 for validation or availability failures,
// and 202 when rule evaluation errors parked it for the operator.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req trading.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Submit(req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to submit trade")
		http.Error(w, "Failed to submit trade", http.StatusInternalServerError)
		return
	}

	if len(result.FieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":      false,
			"field_errors": result.FieldErrors,
		})
		return
	}

	status := http.StatusInternalServerError
	success := false
	switch result.Trade.Status {
	case trading.StatusProcessed:
		status = http.StatusCreated
		success = true
	case trading.StatusAlert:
		status = http.StatusForbidden
	case trading.StatusInvalid:
		status = http.StatusBadRequest
	case trading.StatusCompliance:
		status = http.StatusAccepted
	}

	writeJSON(w, status, map[string]interface{}{
		"success":    success,
		"trade":      result.Trade,
		"compliance": result.Report,
	})
}

// HandleGet handles GET /api/trades/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, id, "Failed to get trade")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trade)
}

// HandleListByFund handles GET /api/trades/fund/{fundID}
func (h *Handler) HandleListByFund(w http.ResponseWriter, r *http.Request) {
	fundID, err := strconv.ParseInt(chi.URLParam(r, "fundID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid fund id", http.StatusBadRequest)
		return
	}

	list, err := h.service.GetByFund(fundID)
	if err != nil {
		h.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to list trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []trading.Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleOverride handles POST /api/trades/{id}/override
// Body: {"overrides": {"<alert_id>": "<reason>", ...}}
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}

	var body struct {
		Overrides map[string]string `json:"overrides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Overrides) == 0 {
		http.Error(w, "At least one alert override is required", http.StatusBadRequest)
		return
	}

	reasons := make(map[int64]string, len(body.Overrides))
	for raw, reason := range body.Overrides {
		alertID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid alert id in overrides: "+raw, http.StatusBadRequest)
			return
		}
		reasons[alertID] = reason
	}

	result, err := h.service.Override(id, reasons)
	if err != nil {
		switch {
		case errors.Is(err, trading.ErrTradeNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, trading.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, trading.ErrUnknownAlert), errors.Is(err, alerts.ErrEmptyReason):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, alerts.ErrAlreadyResolved):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Int64("trade_id", id).Msg("Failed to override trade alerts")
			http.Error(w, "Failed to override trade alerts", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":              result.Committed,
		"trade":                result.Trade,
		"overridden_alert_ids": result.OverriddenIDs,
		"pending_alert_ids":    result.PendingIDs,
	})
}

// HandleCancel handles POST /api/trades/{id}/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tradeID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Cancel(id)
	if err != nil {
		h.writeError(w, err, id, "Failed to cancel trade")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "trade": trade})
}

func (h *Handler) tradeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, tradeID int64, msg string) {
	switch {
	case errors.Is(err, trading.ErrTradeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, trading.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error().Err(err).Int64("trade_id", tradeID).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
