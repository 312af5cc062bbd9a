// Package alerts persists rule violations and their operator resolution.
// A pending alert gates its trade; overriding or cancelling resolves it.
package alerts

import (
	"encoding/json"
	"fmt"
)

// Alert statuses. Overridden and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusOverridden = "overridden"
	StatusCancelled  = "cancelled"
)

// Alert is a persisted rule violation. TradeID is nil for alerts raised by
// a portfolio-compliance run. CalculatedPercent is nil for prohibit and
// for-each rules; TriggeringHoldings is a serialised JSON list.
type Alert struct {
	ID                 int64    `json:"alert_id"`
	RuleID             int64    `json:"rule_id"`
	FundID             int64    `json:"fund_id"`
	TradeID            *int64   `json:"trade_id,omitempty"`
	CalculatedPercent  *float64 `json:"calculated_percent,omitempty"`
	TriggeringHoldings string   `json:"triggering_holdings,omitempty"`
	Status             string   `json:"status"`
	OverrideReason     string   `json:"override_reason,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
	UpdatedAt          string   `json:"updated_at,omitempty"`
}

// IsTerminal reports whether the alert has been resolved.
func (a *Alert) IsTerminal() bool {
	return a.Status == StatusOverridden || a.Status == StatusCancelled
}

// DecodeTriggeringHoldings deserialises the triggering-holdings payload into
// the supplied slice pointer.
func (a *Alert) DecodeTriggeringHoldings(dest interface{}) error {
	if a.TriggeringHoldings == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(a.TriggeringHoldings), dest); err != nil {
		return fmt.Errorf("failed to decode triggering holdings for alert %d: %w", a.ID, err)
	}
	return nil
}

// Filter narrows alert listings. Zero values mean "any".
type Filter struct {
	FundID  int64
	RuleID  int64
	TradeID *int64
	Status  string
	From    string // inclusive, YYYY-MM-DD
	To      string // inclusive, YYYY-MM-DD
}

// Summary carries the alert counters for the dashboard.
type Summary struct {
	Pending    int64 `json:"pending"`
	Overridden int64 `json:"overridden"`
	Cancelled  int64 `json:"cancelled"`
	Last24h    int64 `json:"last_24h"`
}
