// Package trading drives the trade lifecycle: validation, pricing,
// availability, compliance, override resolution, and the atomic commit.
package trading

import "github.com/fundguard/fundguard/internal/modules/holdings"

// Trade sides.
const (
	SideBuy  = holdings.SideBuy
	SideSell = holdings.SideSell
)

// Trade statuses. INVALID, CANCELLED and PROCESSED are terminal.
const (
	StatusSubmitted  = "SUBMITTED"
	StatusValidating = "VALIDATING"
	StatusInvalid    = "INVALID"
	StatusCompliance = "COMPLIANCE"
	StatusAlert      = "ALERT"
	StatusCancelled  = "CANCELLED"
	StatusProcessed  = "PROCESSED"
)

// Trade is one submitted order moving through the state machine. Price and
// TotalValue are snapshotted at pricing time and never re-read afterwards.
type Trade struct {
	ID         int64    `json:"trade_id"`
	FundID     int64    `json:"fund_id"`
	Ticker     string   `json:"ticker"`
	Side       string   `json:"side"`
	Shares     int64    `json:"shares"`
	Price      *float64 `json:"price,omitempty"`
	TotalValue *float64 `json:"total_value,omitempty"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

// IsTerminal reports whether the trade can no longer change state.
func (t *Trade) IsTerminal() bool {
	switch t.Status {
	case StatusInvalid, StatusCancelled, StatusProcessed:
		return true
	}
	return false
}

// SubmitRequest is the inbound order shape.
type SubmitRequest struct {
	FundID int64  `json:"fund_id"`
	Ticker string `json:"ticker"`
	Side   string `json:"side"`
	Shares int64  `json:"shares"`
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
