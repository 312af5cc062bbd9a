// Package funds provides the fund domain model and persistence.
package funds

import "fmt"

// Fund represents a managed fund with its cash balance.
// Cash is stored at 2 decimal places and may never go negative.
type Fund struct {
	ID        int64   `json:"fund_id"`
	Name      string  `json:"fund_name"`
	Family    string  `json:"fund_family,omitempty"`
	Cash      float64 `json:"cash"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// Validate checks fund fields before insertion
func (f *Fund) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("fund name is required")
	}
	if f.Cash < 0 {
		return fmt.Errorf("fund cash cannot be negative")
	}
	return nil
}
