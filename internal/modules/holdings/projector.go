package holdings

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Projector produces the post-trade holdings projection for a compliance
// run. It always starts from a drained scope, copies the fund's current
// holdings, then applies the trade delta.
type Projector struct {
	staging *StagingRepository
	log     zerolog.Logger
}

// NewProjector creates a new staging projector
func NewProjector(staging *StagingRepository, log zerolog.Logger) *Projector {
	return &Projector{
		staging: staging,
		log:     log.With().Str("service", "staging_projector").Logger(),
	}
}

// StageTrade builds the staged projection for a pending trade.
//
// BUY adds the trade's shares to the staged row (inserting one if the fund
// holds no position). SELL decrements, deleting the staged row when the
// result would be zero or below. A SELL against a ticker with no staged row
// fails; share availability is checked before staging, so hitting that
// branch means the caller skipped the availability check.
func (p *Projector) StageTrade(fundID, tradeID int64, ticker, side string, shares int64) error {
	if tradeID == 0 {
		return fmt.Errorf("trade id 0 is reserved for portfolio compliance")
	}

	if err := p.staging.Drain(fundID, tradeID); err != nil {
		return err
	}
	if err := p.staging.CopyFromHoldings(fundID, tradeID); err != nil {
		return err
	}

	ticker = canonical(ticker)
	staged, err := p.staging.Get(fundID, ticker, tradeID)
	if err != nil {
		return err
	}

	switch side {
	case SideBuy:
		newShares := shares
		if staged != nil {
			newShares += staged.Shares
		}
		if err := p.staging.SetShares(fundID, ticker, tradeID, newShares); err != nil {
			return err
		}

	case SideSell:
		if staged == nil {
			return fmt.Errorf("cannot stage sell: fund %d has no staged position in %s", fundID, ticker)
		}
		remaining := staged.Shares - shares
		if remaining <= 0 {
			if err := p.staging.Delete(fundID, ticker, tradeID); err != nil {
				return err
			}
		} else {
			if err := p.staging.SetShares(fundID, ticker, tradeID, remaining); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unknown trade side %q", side)
	}

	p.log.Debug().
		Int64("fund_id", fundID).
		Int64("trade_id", tradeID).
		Str("ticker", ticker).
		Str("side", side).
		Int64("shares", shares).
		Msg("Trade staged")
	return nil
}

// StagePortfolio builds the zero-delta projection used by portfolio
// compliance: a pure copy of current holdings into the trade-id-0 scope.
func (p *Projector) StagePortfolio(fundID int64) error {
	if err := p.staging.Drain(fundID, 0); err != nil {
		return err
	}
	if err := p.staging.CopyFromHoldings(fundID, 0); err != nil {
		return err
	}

	p.log.Debug().Int64("fund_id", fundID).Msg("Portfolio staged")
	return nil
}
