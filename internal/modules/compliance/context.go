// Package compliance evaluates rules against a staged-holdings projection.
// A Context names the staging scope being evaluated: either the post-trade
// projection of one trade, or the zero-delta portfolio projection of a fund.
package compliance

// Context identifies one compliance evaluation scope. CashDelta is the
// pending trade's effect on the fund's cash (negative for a BUY), so the
// valuation prices the post-trade portfolio against post-trade cash.
type Context struct {
	FundID    int64
	TradeID   int64 // 0 is the portfolio scope
	CashDelta float64
}

// ForTrade builds the evaluation context for a trade's staged projection.
func ForTrade(fundID, tradeID int64, cashDelta float64) Context {
	return Context{FundID: fundID, TradeID: tradeID, CashDelta: cashDelta}
}

// ForPortfolio builds the evaluation context for a fund's current portfolio.
func ForPortfolio(fundID int64) Context {
	return Context{FundID: fundID, TradeID: 0}
}

// IsPortfolio reports whether this is a portfolio-compliance scope.
func (c Context) IsPortfolio() bool {
	return c.TradeID == 0
}
