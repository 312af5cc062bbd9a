// Package rules manages compliance rule definitions and their attachment to
// funds. Rule filters are expressed in the ruleexpr sublanguage and validated
// before a rule can be saved.
package rules

import "fmt"

// Denominator values control how a rule's exposure percentage is computed.
const (
	DenominatorTotalAssets       = "total_assets"
	DenominatorNetAssets         = "net_assets"
	DenominatorTotalAssetsExCash = "total_assets_ex_cash"
	DenominatorProhibit          = "prohibit"
	DenominatorSharesOutstanding = "shares_outstanding_fe"
)

// AlertIf values select the inclusive threshold direction.
const (
	AlertIfAbove = "above"
	AlertIfBelow = "below"
)

// Rule is a compliance rule definition. A rule with the prohibit denominator
// alerts on any matching holding; shares_outstanding_fe evaluates each
// matching holding against its security's float; the asset denominators
// evaluate aggregate exposure against a fund-level base.
type Rule struct {
	ID                  int64    `json:"rule_id"`
	Name                string   `json:"rule_name"`
	AlertMessage        string   `json:"alert_message,omitempty"`
	EvaluateOnTrade     bool     `json:"evaluate_on_trade"`
	EvaluateOnPortfolio bool     `json:"evaluate_on_portfolio"`
	RuleLogic           string   `json:"rule_logic"`
	Denominator         string   `json:"denominator"`
	AlertIf             string   `json:"alert_if,omitempty"`
	AlertPercent        *float64 `json:"alert_percent,omitempty"`
	IsActive            bool     `json:"is_active"`
	CreatedAt           string   `json:"created_at,omitempty"`
	UpdatedAt           string   `json:"updated_at,omitempty"`
}

// Attachment links a rule to a fund it applies to.
type Attachment struct {
	ID        int64  `json:"attachment_id"`
	RuleID    int64  `json:"rule_id"`
	FundID    int64  `json:"fund_id"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// IsProhibit reports whether the rule forbids matching holdings outright.
func (r *Rule) IsProhibit() bool {
	return r.Denominator == DenominatorProhibit
}

// IsForEach reports whether the rule evaluates each matching holding
// against its security's shares outstanding.
func (r *Rule) IsForEach() bool {
	return r.Denominator == DenominatorSharesOutstanding
}

// Validate checks the structural fields. Rule logic is validated separately
// through ruleexpr.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule_name is required")
	}

	switch r.Denominator {
	case DenominatorTotalAssets, DenominatorNetAssets, DenominatorTotalAssetsExCash,
		DenominatorProhibit, DenominatorSharesOutstanding:
	default:
		return fmt.Errorf("invalid denominator %q", r.Denominator)
	}

	if r.IsProhibit() {
		return nil
	}

	switch r.AlertIf {
	case AlertIfAbove, AlertIfBelow:
	default:
		return fmt.Errorf("alert_if must be %q or %q", AlertIfAbove, AlertIfBelow)
	}
	if r.AlertPercent == nil {
		return fmt.Errorf("alert_percent is required for %s rules", r.Denominator)
	}
	if *r.AlertPercent < 0 || *r.AlertPercent > 100 {
		return fmt.Errorf("alert_percent must be between 0 and 100, got %.4f", *r.AlertPercent)
	}
	return nil
}
