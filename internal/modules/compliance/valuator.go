package compliance

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fundguard/fundguard/internal/domain"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

// PriceSource resolves latest prices for a set of tickers.
type PriceSource interface {
	LatestPrices(tickers []string) (map[string]universe.PricePoint, error)
}

// Valuation carries the priced view of one staging scope: per-holding market
// values, the denominator bases, and the tickers that could not be priced.
type Valuation struct {
	Cash              decimal.Decimal
	TotalAssets       decimal.Decimal
	NetAssets         decimal.Decimal
	TotalAssetsExCash decimal.Decimal

	// MissingPrices lists tickers with no price on record, in scope order.
	// Rules whose outcome depends on one of these cannot be evaluated.
	MissingPrices []string

	marketValues map[string]decimal.Decimal
}

// MarketValue returns the market value of a holding in the scope. The second
// return is false when the ticker had no price.
func (v *Valuation) MarketValue(ticker string) (decimal.Decimal, bool) {
	mv, ok := v.marketValues[ticker]
	return mv, ok
}

// Base returns the denominator base for a numeric rule denominator.
func (v *Valuation) Base(denominator string) (decimal.Decimal, error) {
	switch denominator {
	case rules.DenominatorTotalAssets:
		return v.TotalAssets, nil
	case rules.DenominatorNetAssets:
		return v.NetAssets, nil
	case rules.DenominatorTotalAssetsExCash:
		return v.TotalAssetsExCash, nil
	}
	return decimal.Zero, fmt.Errorf("no valuation base for denominator %q", denominator)
}

// Valuator prices staged holdings and computes denominator bases.
type Valuator struct {
	prices PriceSource
	log    zerolog.Logger
}

// NewValuator creates a new valuator
func NewValuator(prices PriceSource, log zerolog.Logger) *Valuator {
	return &Valuator{
		prices: prices,
		log:    log.With().Str("service", "valuator").Logger(),
	}
}

// TradeValue computes the market value of a prospective trade at the latest
// price. Errors when the ticker has no price on record.
func (v *Valuator) TradeValue(ticker string, shares int64) (decimal.Decimal, error) {
	latest, err := v.prices.LatestPrices([]string{ticker})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to price %s: %w", ticker, err)
	}
	point, ok := latest[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price on record for %s", ticker)
	}
	return domain.MarketValue(shares, domain.Price(point.Price)), nil
}

// Value prices every row of a staging scope against the latest prices and
// aggregates the bases. Unpriced holdings are excluded from the sums and
// reported in MissingPrices; net assets equal total assets in this model.
func (v *Valuator) Value(rows []holdings.StagedJoinedRow, cash float64) (*Valuation, error) {
	tickers := make([]string, 0, len(rows))
	for _, row := range rows {
		tickers = append(tickers, row.Ticker)
	}

	latest, err := v.prices.LatestPrices(tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to price holdings: %w", err)
	}

	valuation := &Valuation{
		Cash:         domain.Money(cash),
		marketValues: make(map[string]decimal.Decimal, len(rows)),
	}

	holdingsTotal := decimal.Zero
	for _, row := range rows {
		point, ok := latest[row.Ticker]
		if !ok {
			valuation.MissingPrices = append(valuation.MissingPrices, row.Ticker)
			continue
		}
		mv := domain.MarketValue(row.Shares, domain.Price(point.Price))
		valuation.marketValues[row.Ticker] = mv
		holdingsTotal = holdingsTotal.Add(mv)
	}

	valuation.TotalAssets = domain.RoundCash(valuation.Cash.Add(holdingsTotal))
	valuation.NetAssets = valuation.TotalAssets
	valuation.TotalAssetsExCash = domain.RoundCash(holdingsTotal)

	if len(valuation.MissingPrices) > 0 {
		v.log.Warn().
			Strs("tickers", valuation.MissingPrices).
			Msg("Holdings without prices excluded from valuation")
	}
	return valuation, nil
}
