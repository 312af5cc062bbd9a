package trading

import (
	"fmt"
	"strings"
)

// FundChecker verifies fund existence.
type FundChecker interface {
	Exists(id int64) (bool, error)
}

// SecurityChecker verifies security existence.
type SecurityChecker interface {
	Exists(ticker string) (bool, error)
}

// Validator checks submitted orders before pricing. Field errors are
// collected so the client sees every problem at once.
type Validator struct {
	funds      FundChecker
	securities SecurityChecker
}

// NewValidator creates a new trade validator
func NewValidator(funds FundChecker, securities SecurityChecker) *Validator {
	return &Validator{funds: funds, securities: securities}
}

// Validate returns the field errors for a submission. An empty slice means
// the order is well-formed and references existing entities.
func (v *Validator) Validate(req SubmitRequest) ([]FieldError, error) {
	var fieldErrors []FieldError

	if req.FundID <= 0 {
		fieldErrors = append(fieldErrors, FieldError{
			Field: "fund_id", Message: "fund_id must be positive",
		})
	} else {
		exists, err := v.funds.Exists(req.FundID)
		if err != nil {
			return nil, fmt.Errorf("failed to check fund: %w", err)
		}
		if !exists {
			fieldErrors = append(fieldErrors, FieldError{
				Field: "fund_id", Message: fmt.Sprintf("fund %d does not exist", req.FundID),
			})
		}
	}

	// CASH skips the existence check so the availability stage can refuse
	// it with its dedicated message.
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		fieldErrors = append(fieldErrors, FieldError{
			Field: "ticker", Message: "ticker is required",
		})
	} else if ticker != cashTicker {
		exists, err := v.securities.Exists(ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to check security: %w", err)
		}
		if !exists {
			fieldErrors = append(fieldErrors, FieldError{
				Field: "ticker", Message: fmt.Sprintf("security %s does not exist", ticker),
			})
		}
	}

	if req.Side != SideBuy && req.Side != SideSell {
		fieldErrors = append(fieldErrors, FieldError{
			Field: "side", Message: "side must be BUY or SELL",
		})
	}

	if req.Shares < 1 {
		fieldErrors = append(fieldErrors, FieldError{
			Field: "shares", Message: "shares must be a positive integer",
		})
	}

	return fieldErrors, nil
}

// FormatFieldErrors joins field errors into one reason string for the
// trade record.
func FormatFieldErrors(fieldErrors []FieldError) string {
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fe.Message)
	}
	return strings.Join(parts, "; ")
}
