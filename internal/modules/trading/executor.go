package trading

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/database"
	"github.com/fundguard/fundguard/internal/domain"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
)

// Writer commits a compliant trade: the staged projection replaces the real
// holdings, cash moves by the snapshotted total value, the staging scope
// drains, and the trade lands in PROCESSED. All of it in one transaction, so
// a crash mid-commit leaves the book untouched.
type Writer struct {
	db       *sql.DB
	trades   *Repository
	holdings *holdings.Repository
	staging  *holdings.StagingRepository
	funds    *funds.Repository
	log      zerolog.Logger
}

// NewWriter creates a new trade writer
func NewWriter(
	db *sql.DB,
	trades *Repository,
	holdingRepo *holdings.Repository,
	staging *holdings.StagingRepository,
	fundRepo *funds.Repository,
	log zerolog.Logger,
) *Writer {
	return &Writer{
		db:       db,
		trades:   trades,
		holdings: holdingRepo,
		staging:  staging,
		funds:    fundRepo,
		log:      log.With().Str("service", "trade_writer").Logger(),
	}
}

// Commit applies the trade's staged scope to the fund's real book. The caller
// must hold the fund lock. The trade must be priced and its scope staged.
func (w *Writer) Commit(trade *Trade) error {
	if trade.TotalValue == nil {
		return fmt.Errorf("cannot commit trade %d: not priced", trade.ID)
	}

	fund, err := w.funds.GetByID(trade.FundID)
	if err != nil {
		return err
	}
	if fund == nil {
		return fmt.Errorf("cannot commit trade %d: fund %d not found", trade.ID, trade.FundID)
	}

	staged, err := w.staging.GetScope(trade.FundID, trade.ID)
	if err != nil {
		return err
	}
	current, err := w.holdings.GetByFund(trade.FundID)
	if err != nil {
		return err
	}

	cash := domain.Money(fund.Cash)
	total := domain.Money(*trade.TotalValue)
	if trade.Side == SideBuy {
		cash = cash.Sub(total)
	} else {
		cash = cash.Add(total)
	}
	newCash, _ := domain.RoundCash(cash).Float64()
	if newCash < 0 {
		return fmt.Errorf("cannot commit trade %d: fund %d cash would go negative", trade.ID, trade.FundID)
	}

	stagedTickers := make(map[string]bool, len(staged))
	for _, row := range staged {
		stagedTickers[row.Ticker] = true
	}

	err = database.WithTransaction(w.db, func(tx *sql.Tx) error {
		for _, row := range staged {
			if err := w.holdings.UpsertTx(tx, row.FundID, row.Ticker, row.Shares); err != nil {
				return err
			}
		}
		// A position sold to zero has no staged row; remove it from the book.
		for _, holding := range current {
			if !stagedTickers[holding.Ticker] {
				if err := w.holdings.DeleteTx(tx, holding.FundID, holding.Ticker); err != nil {
					return err
				}
			}
		}
		if err := w.funds.UpdateCashTx(tx, trade.FundID, newCash); err != nil {
			return err
		}
		if err := w.staging.DrainTx(tx, trade.FundID, trade.ID); err != nil {
			return err
		}
		return w.trades.SetStatusTx(tx, trade.ID, StatusProcessed, "")
	})
	if err != nil {
		return fmt.Errorf("failed to commit trade %d: %w", trade.ID, err)
	}

	w.log.Info().
		Int64("trade_id", trade.ID).
		Int64("fund_id", trade.FundID).
		Str("ticker", trade.Ticker).
		Str("side", trade.Side).
		Float64("total_value", *trade.TotalValue).
		Float64("cash", newCash).
		Msg("Trade committed")
	return nil
}
