// Package universe provides the issuer, security, and price domain data the
// compliance engine reads. These records are owned by the administrative
// plane; the engine treats them as immutable reference data.
package universe

import (
	"fmt"
	"strings"
)

// Issuer carries the GICS classification and country attributes rule
// filters can reference.
type Issuer struct {
	ID                       int64  `json:"issuer_id"`
	Name                     string `json:"issuer_name"`
	GICSSector               string `json:"gics_sector,omitempty"`
	GICSIndustryGrp          string `json:"gics_industry_grp,omitempty"`
	GICSIndustry             string `json:"gics_industry,omitempty"`
	GICSSubIndustry          string `json:"gics_sub_industry,omitempty"`
	CountryDomicile          string `json:"country_domicile,omitempty"`
	CountryIncorporation     string `json:"country_incorporation,omitempty"`
	CountryDomicileCode      string `json:"country_domicile_code,omitempty"`
	CountryIncorporationCode string `json:"country_incorporation_code,omitempty"`
}

// Validate checks issuer fields before insertion
func (i *Issuer) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("issuer name is required")
	}
	return nil
}

// Security is identified by its canonical uppercase ticker and owned by
// exactly one issuer. SharesOutstanding may be null.
type Security struct {
	Ticker            string `json:"ticker"`
	Name              string `json:"security_name"`
	Type              string `json:"security_type,omitempty"`
	IssuerID          int64  `json:"issuer_id"`
	SharesOutstanding *int64 `json:"shares_outstanding,omitempty"`
}

// Validate checks security fields before insertion
func (s *Security) Validate() error {
	if strings.TrimSpace(s.Ticker) == "" {
		return fmt.Errorf("ticker is required")
	}
	if s.Name == "" {
		return fmt.Errorf("security name is required")
	}
	if s.IssuerID <= 0 {
		return fmt.Errorf("issuer id is required")
	}
	return nil
}

// CanonicalTicker normalises a ticker to its canonical uppercase form
func CanonicalTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// PricePoint is one observed price for a ticker on a date. There is at most
// one price per (ticker, date); the most recent date is the current price.
type PricePoint struct {
	ID        int64   `json:"price_id"`
	Ticker    string  `json:"ticker"`
	PriceDate string  `json:"price_date"` // YYYY-MM-DD
	Price     float64 `json:"price"`      // 3 decimal places
}

// Validate checks price fields before insertion
func (p *PricePoint) Validate() error {
	if strings.TrimSpace(p.Ticker) == "" {
		return fmt.Errorf("ticker is required")
	}
	if p.PriceDate == "" {
		return fmt.Errorf("price date is required")
	}
	if p.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}
