// Package holdings provides fund position persistence and the staged-holdings
// projection that compliance evaluation runs against.
package holdings

import "fmt"

// Trade sides as persisted on the trades table. Mirrored here so the
// projector does not depend on the trading module.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Holding is the real position of a fund in one security.
// Shares is at least 1; selling to zero deletes the row.
type Holding struct {
	ID        int64  `json:"holding_id"`
	FundID    int64  `json:"fund_id"`
	Ticker    string `json:"ticker"`
	Shares    int64  `json:"shares"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// StagedHolding is one row of the transient post-trade projection.
// TradeID 0 denotes the portfolio-compliance scope.
type StagedHolding struct {
	ID      int64  `json:"staging_id"`
	FundID  int64  `json:"fund_id"`
	Ticker  string `json:"ticker"`
	TradeID int64  `json:"trade_id"`
	Shares  int64  `json:"shares"`
}

// HoldingWithValue is a holding decorated with its latest price and market
// value for the fund read model. Price and MarketValue are nil when no price
// is on record.
type HoldingWithValue struct {
	Holding
	SecurityName string   `json:"security_name"`
	Price        *float64 `json:"price,omitempty"`
	PriceDate    string   `json:"price_date,omitempty"`
	MarketValue  *float64 `json:"market_value,omitempty"`
}

// StagedJoinedRow is a staged holding joined with its security and issuer
// attributes. This is the closed column schema rule filters evaluate against.
type StagedJoinedRow struct {
	FundID            int64
	Ticker            string
	Shares            int64
	SecurityName      string
	SecurityType      string
	SharesOutstanding *int64

	IssuerName               string
	GICSSector               string
	GICSIndustryGrp          string
	GICSIndustry             string
	GICSSubIndustry          string
	CountryDomicile          string
	CountryIncorporation     string
	CountryDomicileCode      string
	CountryIncorporationCode string
}

// Columns binds the row to the qualified column names the rule predicate
// evaluator resolves. This is the entire schema rule filters may reference.
func (r *StagedJoinedRow) Columns() map[string]interface{} {
	return map[string]interface{}{
		"holdings.ticker":                    r.Ticker,
		"holdings.shares":                    r.Shares,
		"holdings.fund_id":                   r.FundID,
		"securities.ticker":                  r.Ticker,
		"securities.name":                    r.SecurityName,
		"securities.type":                    r.SecurityType,
		"securities.shares_outstanding":      sharesOutstandingValue(r.SharesOutstanding),
		"issuers.name":                       r.IssuerName,
		"issuers.gics_sector":                r.GICSSector,
		"issuers.gics_industry_grp":          r.GICSIndustryGrp,
		"issuers.gics_industry":              r.GICSIndustry,
		"issuers.gics_sub_industry":          r.GICSSubIndustry,
		"issuers.country_domicile":           r.CountryDomicile,
		"issuers.country_incorporation":      r.CountryIncorporation,
		"issuers.country_domicile_code":      r.CountryDomicileCode,
		"issuers.country_incorporation_code": r.CountryIncorporationCode,
	}
}

func sharesOutstandingValue(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Validate checks holding fields before insertion
func (h *Holding) Validate() error {
	if h.FundID <= 0 {
		return fmt.Errorf("fund id is required")
	}
	if h.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if h.Shares < 1 {
		return fmt.Errorf("shares must be at least 1")
	}
	return nil
}
