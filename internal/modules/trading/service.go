package trading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/domain"
	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/compliance"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

var (
	// ErrTradeNotFound is returned when the trade id resolves to nothing.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrInvalidTransition is returned when an operation is not legal from
	// the trade's current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownAlert is returned when an override names an alert that is
	// not a pending alert of the trade.
	ErrUnknownAlert = errors.New("alert is not pending for this trade")
)

// PriceSource supplies the latest close for a ticker.
type PriceSource interface {
	LatestPrice(ticker string) (*universe.PricePoint, error)
}

// ComplianceRunner evaluates a staged scope and persists its alerts.
type ComplianceRunner interface {
	Run(ctx compliance.Context) (*compliance.Report, error)
	PersistAlerts(ctx compliance.Context, report *compliance.Report) error
}

// AlertResolver resolves the alerts gating a trade.
type AlertResolver interface {
	PendingForTrade(tradeID int64) ([]alerts.Alert, error)
	Override(id int64, reason string) (*alerts.Alert, error)
	CancelForTrade(tradeID int64) ([]int64, error)
}

// SubmitResult is the full outcome of a submission. FieldErrors set means the
// order never became a trade; otherwise Trade carries the final status and
// Report the compliance verdicts, when the trade got that far.
type SubmitResult struct {
	Trade       *Trade             `json:"trade,omitempty"`
	FieldErrors []FieldError       `json:"field_errors,omitempty"`
	Report      *compliance.Report `json:"compliance,omitempty"`
}

// OverrideResult reports how far an override pushed the trade.
type OverrideResult struct {
	Trade         *Trade  `json:"trade"`
	OverriddenIDs []int64 `json:"overridden_alert_ids,omitempty"`
	PendingIDs    []int64 `json:"pending_alert_ids,omitempty"`
	Committed     bool    `json:"committed"`
}

// Service drives the trade lifecycle end to end.
type Service struct {
	repo         *Repository
	validator    *Validator
	funds        *funds.Repository
	holdings     *holdings.Repository
	staging      *holdings.StagingRepository
	projector    *holdings.Projector
	prices       PriceSource
	compliance   ComplianceRunner
	alerts       AlertResolver
	writer       *Writer
	locks        *fundLocks
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new trading service
func NewService(
	repo *Repository,
	validator *Validator,
	fundRepo *funds.Repository,
	holdingRepo *holdings.Repository,
	staging *holdings.StagingRepository,
	projector *holdings.Projector,
	prices PriceSource,
	complianceRunner ComplianceRunner,
	alertResolver AlertResolver,
	writer *Writer,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		validator:    validator,
		funds:        fundRepo,
		holdings:     holdingRepo,
		staging:      staging,
		projector:    projector,
		prices:       prices,
		compliance:   complianceRunner,
		alerts:       alertResolver,
		writer:       writer,
		locks:        newFundLocks(),
		eventManager: eventManager,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// Submit runs an order through validation, pricing, availability and
// compliance, committing it when every rule passes. The returned result
// carries the trade in whatever status it ended up in.
func (s *Service) Submit(req SubmitRequest) (*SubmitResult, error) {
	fieldErrors, err := s.validator.Validate(req)
	if err != nil {
		return nil, err
	}
	if len(fieldErrors) > 0 {
		return &SubmitResult{FieldErrors: fieldErrors}, nil
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	trade, err := s.repo.Create(req.FundID, ticker, req.Side, req.Shares)
	if err != nil {
		return nil, err
	}
	if s.eventManager != nil {
		s.eventManager.EmitTyped("trading", &events.TradeSubmittedData{
			TradeID: trade.ID,
			FundID:  trade.FundID,
			Ticker:  trade.Ticker,
			Side:    trade.Side,
			Shares:  trade.Shares,
		})
	}
	if err := s.setStatus(trade, StatusValidating, ""); err != nil {
		return nil, err
	}

	// Pricing. No price on record means the trade cannot be valued at all.
	point, err := s.prices.LatestPrice(trade.Ticker)
	if err != nil {
		return nil, err
	}
	if point == nil && trade.Ticker != cashTicker {
		if err := s.setStatus(trade, StatusInvalid, fmt.Sprintf("no price on record for %s", trade.Ticker)); err != nil {
			return nil, err
		}
		return &SubmitResult{Trade: trade}, nil
	}

	price := domain.Price(0)
	total := domain.Money(0)
	if point != nil {
		price = domain.Price(point.Price)
		total = domain.MarketValue(trade.Shares, price)
		priceF, _ := price.Float64()
		totalF, _ := total.Float64()
		if err := s.repo.SetPricing(trade.ID, priceF, totalF); err != nil {
			return nil, err
		}
		trade.Price = &priceF
		trade.TotalValue = &totalF
	}

	// The fund lock covers availability through commit so two orders cannot
	// both pass the check against the same cash or shares.
	unlock := s.locks.Lock(trade.FundID)
	defer unlock()

	fund, err := s.funds.GetByID(trade.FundID)
	if err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, fmt.Errorf("fund %d not found", trade.FundID)
	}
	holding, err := s.holdings.Get(trade.FundID, trade.Ticker)
	if err != nil {
		return nil, err
	}

	if reason := availabilityReason(trade.Side, trade.Ticker, trade.Shares, price, total, domain.Money(fund.Cash), holding); reason != "" {
		if err := s.setStatus(trade, StatusInvalid, reason); err != nil {
			return nil, err
		}
		return &SubmitResult{Trade: trade}, nil
	}

	if err := s.setStatus(trade, StatusCompliance, ""); err != nil {
		return nil, err
	}
	if err := s.projector.StageTrade(trade.FundID, trade.ID, trade.Ticker, trade.Side, trade.Shares); err != nil {
		return nil, err
	}

	// The denominator is valued against post-trade cash.
	cashDelta, _ := total.Float64()
	if trade.Side == SideBuy {
		cashDelta = -cashDelta
	}
	ctx := compliance.ForTrade(trade.FundID, trade.ID, cashDelta)
	report, err := s.compliance.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.compliance.PersistAlerts(ctx, report); err != nil {
		return nil, err
	}

	switch {
	case report.HasAlerts():
		// Staging stays: the override path commits from this exact scope.
		reason := fmt.Sprintf("%d compliance alert(s) pending", len(report.AlertIDs))
		if err := s.setStatus(trade, StatusAlert, reason); err != nil {
			return nil, err
		}

	case len(report.EvaluationErrors()) > 0:
		// No verdict: park the trade for the operator, keep the scope.
		reason := strings.Join(report.EvaluationErrors(), "; ")
		if err := s.setStatus(trade, StatusCompliance, reason); err != nil {
			return nil, err
		}

	default:
		if err := s.writer.Commit(trade); err != nil {
			return nil, err
		}
		s.emitProcessed(trade)
	}

	trade, err = s.repo.GetByID(trade.ID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Trade: trade, Report: report}, nil
}

// Get retrieves a trade by id.
func (s *Service) Get(id int64) (*Trade, error) {
	trade, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %d", ErrTradeNotFound, id)
	}
	return trade, nil
}

// GetByFund retrieves a fund's trades, newest first.
func (s *Service) GetByFund(fundID int64) ([]Trade, error) {
	return s.repo.GetByFund(fundID)
}

// Override resolves pending alerts of an ALERT trade, each with its own
// reason. Full coverage commits the trade from its kept staging scope;
// partial coverage leaves it in ALERT and reports what is still pending.
func (s *Service) Override(tradeID int64, reasons map[int64]string) (*OverrideResult, error) {
	trade, err := s.Get(tradeID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trade.FundID)
	defer unlock()

	// Re-read under the lock; a concurrent cancel may have won.
	trade, err = s.Get(tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != StatusAlert {
		return nil, fmt.Errorf("%w: trade %d is %s", ErrInvalidTransition, tradeID, trade.Status)
	}

	pending, err := s.alerts.PendingForTrade(tradeID)
	if err != nil {
		return nil, err
	}
	pendingSet := make(map[int64]bool, len(pending))
	for _, alert := range pending {
		pendingSet[alert.ID] = true
	}
	for id := range reasons {
		if !pendingSet[id] {
			return nil, fmt.Errorf("%w: alert %d, trade %d", ErrUnknownAlert, id, tradeID)
		}
	}

	result := &OverrideResult{}
	for _, alert := range pending {
		reason, ok := reasons[alert.ID]
		if !ok {
			result.PendingIDs = append(result.PendingIDs, alert.ID)
			continue
		}
		if _, err := s.alerts.Override(alert.ID, reason); err != nil {
			return nil, err
		}
		result.OverriddenIDs = append(result.OverriddenIDs, alert.ID)
	}

	if len(result.PendingIDs) > 0 {
		result.Trade = trade
		s.log.Info().
			Int64("trade_id", tradeID).
			Ints64("pending_alert_ids", result.PendingIDs).
			Msg("Trade override partial, still gated")
		return result, nil
	}

	if err := s.setStatus(trade, StatusCompliance, ""); err != nil {
		return nil, err
	}
	if err := s.writer.Commit(trade); err != nil {
		return nil, err
	}
	s.emitProcessed(trade)

	trade, err = s.Get(tradeID)
	if err != nil {
		return nil, err
	}
	result.Trade = trade
	result.Committed = true
	return result, nil
}

// Cancel abandons a gated trade: its pending alerts move to cancelled, its
// staging scope drains, and the trade lands in CANCELLED. The fund's book
// never changes.
func (s *Service) Cancel(tradeID int64) (*Trade, error) {
	trade, err := s.Get(tradeID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trade.FundID)
	defer unlock()

	trade, err = s.Get(tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != StatusAlert && trade.Status != StatusCompliance {
		return nil, fmt.Errorf("%w: trade %d is %s", ErrInvalidTransition, tradeID, trade.Status)
	}

	cancelled, err := s.alerts.CancelForTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if err := s.staging.Drain(trade.FundID, tradeID); err != nil {
		return nil, err
	}
	if err := s.setStatus(trade, StatusCancelled, "cancelled by operator"); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("trade_id", tradeID).
		Ints64("cancelled_alert_ids", cancelled).
		Msg("Trade cancelled")
	return s.Get(tradeID)
}

func (s *Service) setStatus(trade *Trade, status, reason string) error {
	if err := s.repo.SetStatus(trade.ID, status, reason); err != nil {
		return err
	}
	old := trade.Status
	trade.Status = status
	trade.Reason = reason
	if s.eventManager != nil {
		s.eventManager.EmitTyped("trading", &events.TradeStatusChangedData{
			TradeID:   trade.ID,
			FundID:    trade.FundID,
			OldStatus: old,
			NewStatus: status,
			Reason:    reason,
		})
	}
	return nil
}

func (s *Service) emitProcessed(trade *Trade) {
	if s.eventManager == nil {
		return
	}
	var price, total float64
	if trade.Price != nil {
		price = *trade.Price
	}
	if trade.TotalValue != nil {
		total = *trade.TotalValue
	}
	s.eventManager.EmitTyped("trading", &events.TradeProcessedData{
		TradeID:    trade.ID,
		FundID:     trade.FundID,
		Ticker:     trade.Ticker,
		Side:       trade.Side,
		Shares:     trade.Shares,
		Price:      price,
		TotalValue: total,
	})
}
