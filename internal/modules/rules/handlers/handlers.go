// Package handlers provides HTTP handlers for rule management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/rules"
)

// Handler provides HTTP handlers for rule endpoints
type Handler struct {
	service *rules.Service
	log     zerolog.Logger
}

// NewHandler creates a new rules handler
func NewHandler(service *rules.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rules").Logger(),
	}
}

// HandleList handles GET /api/rules
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rules")
		http.Error(w, "Failed to list rules", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []rules.Rule{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /api/rules/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	rule, err := h.service.Get(id)
	if err != nil {
		h.writeError(w, err, "Failed to get rule")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rule)
}

// HandleCreate handles POST /api/rules
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(rule)
	if err != nil {
		h.log.Warn().Err(err).Str("rule_name", rule.Name).Msg("Rule rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleUpdate handles PUT /api/rules/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(id, rule)
	if err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// HandleDelete handles DELETE /api/rules/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(id); err != nil {
		h.writeError(w, err, "Failed to delete rule")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// HandleValidate handles POST /api/rules/validate
// Dry-run check of a filter expression without saving a rule.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RuleLogic string `json:"rule_logic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{"valid": true}
	if err := h.service.ValidateLogic(body.RuleLogic); err != nil {
		response["valid"] = false
		response["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleAttach handles POST /api/rules/{id}/attachments
func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	var body struct {
		FundID int64 `json:"fund_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	attachment, err := h.service.Attach(id, body.FundID)
	if err != nil {
		switch {
		case errors.Is(err, rules.ErrRuleNotFound), errors.Is(err, rules.ErrFundNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, rules.ErrAlreadyAttached):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Msg("Failed to attach rule")
			http.Error(w, "Failed to attach rule", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(attachment)
}

// HandleDetach handles DELETE /api/rules/{id}/attachments/{fundID}
func (h *Handler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	fundID, err := strconv.ParseInt(chi.URLParam(r, "fundID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid fund id", http.StatusBadRequest)
		return
	}

	if err := h.service.Detach(id, fundID); err != nil {
		h.log.Error().Err(err).Msg("Failed to detach rule")
		http.Error(w, "Failed to detach rule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// HandleAttachments handles GET /api/rules/{id}/attachments
func (h *Handler) HandleAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}

	attachments, err := h.service.Attachments(id)
	if err != nil {
		h.writeError(w, err, "Failed to list attachments")
		return
	}
	if attachments == nil {
		attachments = []rules.Attachment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attachments)
}

func (h *Handler) ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid rule id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, rules.ErrRuleNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
