package holdings

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fundguard/fundguard/internal/domain"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

// PriceProvider supplies latest prices for market-value decoration
type PriceProvider interface {
	LatestPrice(ticker string) (*universe.PricePoint, error)
}

// SecurityNamer resolves tickers to display names
type SecurityNamer interface {
	GetByTicker(ticker string) (*universe.Security, error)
}

// Service decorates holdings with prices and market values for the fund
// read model.
type Service struct {
	repo       *Repository
	prices     PriceProvider
	securities SecurityNamer
	log        zerolog.Logger
}

// NewService creates a new holdings service
func NewService(repo *Repository, prices PriceProvider, securities SecurityNamer, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		prices:     prices,
		securities: securities,
		log:        log.With().Str("service", "holdings").Logger(),
	}
}

// GetFundHoldingsWithValues returns the fund's holdings with latest prices
// and market values. Holdings with no price on record carry nil price and
// market value rather than zero.
func (s *Service) GetFundHoldingsWithValues(fundID int64) ([]HoldingWithValue, error) {
	rows, err := s.repo.GetByFund(fundID)
	if err != nil {
		return nil, err
	}

	result := make([]HoldingWithValue, 0, len(rows))
	for _, h := range rows {
		hv := HoldingWithValue{Holding: h}

		if sec, err := s.securities.GetByTicker(h.Ticker); err != nil {
			return nil, err
		} else if sec != nil {
			hv.SecurityName = sec.Name
		}

		price, err := s.prices.LatestPrice(h.Ticker)
		if err != nil {
			return nil, err
		}
		if price != nil {
			p := price.Price
			hv.Price = &p
			hv.PriceDate = price.PriceDate
			mv, _ := domain.MarketValue(h.Shares, decimal.NewFromFloat(price.Price)).Float64()
			hv.MarketValue = &mv
		}

		result = append(result, hv)
	}
	return result, nil
}

// TotalMarketValue sums the market values of the fund's priced holdings.
// Tickers with no price on record are excluded from the sum and returned so
// the caller can flag them.
func (s *Service) TotalMarketValue(fundID int64) (float64, []string, error) {
	rows, err := s.GetFundHoldingsWithValues(fundID)
	if err != nil {
		return 0, nil, err
	}

	total := decimal.Zero
	var missing []string
	for _, hv := range rows {
		if hv.MarketValue == nil {
			missing = append(missing, hv.Ticker)
			continue
		}
		total = total.Add(decimal.NewFromFloat(*hv.MarketValue))
	}

	totalF, _ := domain.RoundCash(total).Float64()
	return totalF, missing, nil
}
