// Package handlers provides HTTP handlers for compliance runs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/compliance"
	"github.com/fundguard/fundguard/internal/modules/rules"
)

// RuleGetter resolves saved rules for dry-runs by id.
type RuleGetter interface {
	GetByID(id int64) (*rules.Rule, error)
}

// Handler provides HTTP handlers for compliance endpoints
type Handler struct {
	service *compliance.Service
	rules   RuleGetter
	log     zerolog.Logger
}

// NewHandler creates a new compliance handler
func NewHandler(service *compliance.Service, ruleGetter RuleGetter, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		rules:   ruleGetter,
		log:     log.With().Str("handler", "compliance").Logger(),
	}
}

// HandleRunPortfolio handles POST /api/compliance/portfolio/{fundID}
func (h *Handler) HandleRunPortfolio(w http.ResponseWriter, r *http.Request) {
	fundID, err := strconv.ParseInt(chi.URLParam(r, "fundID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid fund id", http.StatusBadRequest)
		return
	}

	report, err := h.service.RunPortfolio(fundID)
	if err != nil {
		if errors.Is(err, compliance.ErrFundNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("fund_id", fundID).Msg("Portfolio compliance failed")
		http.Error(w, "Portfolio compliance failed", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"success":   true,
		"fund_id":   report.FundID,
		"results":   report.Results,
		"alerted":   report.HasAlerts(),
		"alert_ids": report.AlertIDs,
	}
	if reasons := report.EvaluationErrors(); len(reasons) > 0 {
		response["evaluation_errors"] = reasons
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DryRunRequest is the body of a rule dry-run. Either RuleID (a saved rule)
// or Rule (an inline definition) must be supplied.
type DryRunRequest struct {
	FundID int64                         `json:"fund_id"`
	RuleID int64                         `json:"rule_id,omitempty"`
	Rule   *rules.Rule                   `json:"rule,omitempty"`
	Trade  *compliance.HypotheticalTrade `json:"trade,omitempty"`
}

// HandleDryRun handles POST /api/compliance/dry-run
// Evaluates one rule against a fund without persisting alerts.
func (h *Handler) HandleDryRun(w http.ResponseWriter, r *http.Request) {
	var req DryRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var rule *rules.Rule
	switch {
	case req.Rule != nil:
		rule = req.Rule
	case req.RuleID > 0:
		saved, err := h.rules.GetByID(req.RuleID)
		if err != nil {
			h.log.Error().Err(err).Int64("rule_id", req.RuleID).Msg("Failed to load rule for dry-run")
			http.Error(w, "Failed to load rule", http.StatusInternalServerError)
			return
		}
		if saved == nil {
			http.Error(w, "Rule not found", http.StatusNotFound)
			return
		}
		rule = saved
	default:
		http.Error(w, "Either rule_id or rule is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.DryRun(req.FundID, *rule, req.Trade)
	if err != nil {
		if errors.Is(err, compliance.ErrFundNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
