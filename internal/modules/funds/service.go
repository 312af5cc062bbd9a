package funds

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/domain"
)

// ErrFundNotFound is returned when a fund id resolves to nothing.
var ErrFundNotFound = errors.New("fund not found")

// HoldingsValuer prices a fund's book. Tickers with no price on record come
// back in the second return.
type HoldingsValuer interface {
	TotalMarketValue(fundID int64) (float64, []string, error)
}

// Summary is the fund read model: cash plus the valuation bases derived
// from the current book. Net assets equal total assets in this model.
type Summary struct {
	Fund              *Fund    `json:"fund"`
	HoldingsValue     float64  `json:"holdings_value"`
	TotalAssets       float64  `json:"total_assets"`
	NetAssets         float64  `json:"net_assets"`
	TotalAssetsExCash float64  `json:"total_assets_ex_cash"`
	UnpricedTickers   []string `json:"unpriced_tickers,omitempty"`
}

// Service wraps the repository with the valuation read model.
type Service struct {
	repo     *Repository
	holdings HoldingsValuer
	log      zerolog.Logger
}

// NewService creates a new fund service
func NewService(repo *Repository, holdings HoldingsValuer, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		holdings: holdings,
		log:      log.With().Str("service", "funds").Logger(),
	}
}

// Create inserts a new fund
func (s *Service) Create(fund Fund) (*Fund, error) {
	return s.repo.Create(fund)
}

// Get retrieves a fund by id
func (s *Service) Get(id int64) (*Fund, error) {
	fund, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, fmt.Errorf("%w: %d", ErrFundNotFound, id)
	}
	return fund, nil
}

// GetAll retrieves all funds
func (s *Service) GetAll() ([]Fund, error) {
	return s.repo.GetAll()
}

// UpdateCash sets the fund's cash balance
func (s *Service) UpdateCash(id int64, cash float64) (*Fund, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCash(id, cash); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Summary values the fund's book at the latest prices and derives the
// asset bases from it.
func (s *Service) Summary(id int64) (*Summary, error) {
	fund, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	holdingsValue, unpriced, err := s.holdings.TotalMarketValue(id)
	if err != nil {
		return nil, err
	}

	total, _ := domain.RoundCash(domain.Money(fund.Cash).Add(domain.Money(holdingsValue))).Float64()
	return &Summary{
		Fund:              fund,
		HoldingsValue:     holdingsValue,
		TotalAssets:       total,
		NetAssets:         total,
		TotalAssetsExCash: holdingsValue,
		UnpricedTickers:   unpriced,
	}, nil
}
