// Package handlers provides HTTP handlers for alert review and resolution.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/alerts"
)

// Handler provides HTTP handlers for alert endpoints
type Handler struct {
	service *alerts.Service
	log     zerolog.Logger
}

// NewHandler creates a new alerts handler
func NewHandler(service *alerts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "alerts").Logger(),
	}
}

// HandleList handles GET /api/alerts
// Filters: fund_id, rule_id, trade_id, status, from, to.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := alerts.Filter{
		Status: query.Get("status"),
		From:   query.Get("from"),
		To:     query.Get("to"),
	}
	filter.FundID, _ = strconv.ParseInt(query.Get("fund_id"), 10, 64)
	filter.RuleID, _ = strconv.ParseInt(query.Get("rule_id"), 10, 64)
	if raw := query.Get("trade_id"); raw != "" {
		if tradeID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.TradeID = &tradeID
		}
	}

	list, err := h.service.List(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list alerts")
		http.Error(w, "Failed to list alerts", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /api/alerts/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.alertID(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, "Failed to get alert")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alert)
}

// HandleOverride handles POST /api/alerts/{id}/override
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := h.alertID(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	alert, err := h.service.Override(id, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, alerts.ErrEmptyReason):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, alerts.ErrAlertNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, alerts.ErrAlreadyResolved):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Int64("alert_id", id).Msg("Failed to override alert")
			http.Error(w, "Failed to override alert", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "alert": alert})
}

// HandleCancel handles POST /api/alerts/{id}/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.alertID(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Cancel(id)
	if err != nil {
		h.writeError(w, err, "Failed to cancel alert")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "alert": alert})
}

// HandleSummary handles GET /api/alerts/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute alert summary")
		http.Error(w, "Failed to compute alert summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) alertID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid alert id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, alerts.ErrAlertNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
