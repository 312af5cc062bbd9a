package compliance

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/rules/ruleexpr"
)

// ErrFundNotFound is returned when a compliance run names an unknown fund.
var ErrFundNotFound = errors.New("fund not found")

// FundReader resolves the fund under evaluation.
type FundReader interface {
	GetByID(id int64) (*funds.Fund, error)
}

// RuleSource supplies the active rules attached to a fund.
type RuleSource interface {
	GetActiveForFund(fundID int64, onTrade bool) ([]rules.Rule, error)
}

// AlertSink persists alerts raised by a compliance run.
type AlertSink interface {
	Create(alert alerts.Alert) (*alerts.Alert, error)
}

// Report is the outcome of one compliance run: one result per rule, in
// rule-id order, plus the ids of any alerts persisted for this run.
type Report struct {
	FundID   int64        `json:"fund_id"`
	TradeID  int64        `json:"trade_id,omitempty"`
	Results  []RuleResult `json:"results"`
	AlertIDs []int64      `json:"alert_ids,omitempty"`
}

// HasAlerts reports whether any rule fired.
func (r *Report) HasAlerts() bool {
	for _, result := range r.Results {
		if result.Alerted {
			return true
		}
	}
	return false
}

// EvaluationErrors collects the per-rule reasons the engine could not reach
// a verdict. Non-empty means the scope needs operator attention before the
// run can be trusted.
func (r *Report) EvaluationErrors() []string {
	var reasons []string
	for _, result := range r.Results {
		if result.ErrorReason != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", result.RuleName, result.ErrorReason))
		}
	}
	return reasons
}

// HypotheticalTrade is a what-if delta for rule dry-runs.
type HypotheticalTrade struct {
	Ticker string `json:"ticker"`
	Side   string `json:"side"`
	Shares int64  `json:"shares"`
}

// Service drives compliance runs over staged scopes.
type Service struct {
	funds        FundReader
	ruleSource   RuleSource
	staging      *holdings.StagingRepository
	projector    *holdings.Projector
	valuator     *Valuator
	engine       *Engine
	alertSink    AlertSink
	eventManager *events.Manager
	log          zerolog.Logger

	// dryRunScope hands out unique negative staging scopes so concurrent
	// dry-runs on the same fund do not collide.
	dryRunScope int64
}

// NewService creates a new compliance service
func NewService(
	fundReader FundReader,
	ruleSource RuleSource,
	staging *holdings.StagingRepository,
	projector *holdings.Projector,
	valuator *Valuator,
	engine *Engine,
	alertSink AlertSink,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		funds:        fundReader,
		ruleSource:   ruleSource,
		staging:      staging,
		projector:    projector,
		valuator:     valuator,
		engine:       engine,
		alertSink:    alertSink,
		eventManager: eventManager,
		log:          log.With().Str("service", "compliance").Logger(),
	}
}

// Run evaluates the active rules of the scope's fund against its staged
// holdings. The scope must already be staged; nothing is persisted here.
func (s *Service) Run(ctx Context) (*Report, error) {
	fund, err := s.funds.GetByID(ctx.FundID)
	if err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, fmt.Errorf("%w: %d", ErrFundNotFound, ctx.FundID)
	}

	ruleList, err := s.ruleSource.GetActiveForFund(ctx.FundID, !ctx.IsPortfolio())
	if err != nil {
		return nil, err
	}

	report := &Report{FundID: ctx.FundID, TradeID: ctx.TradeID}
	if len(ruleList) == 0 {
		return report, nil
	}

	rows, err := s.staging.GetJoinedScope(ctx.FundID, ctx.TradeID)
	if err != nil {
		return nil, err
	}

	valuation, err := s.valuator.Value(rows, fund.Cash+ctx.CashDelta)
	if err != nil {
		return nil, err
	}

	report.Results = s.engine.EvaluateAll(ruleList, rows, valuation)

	if s.eventManager != nil {
		alertCount := 0
		for _, result := range report.Results {
			if result.Alerted {
				alertCount++
			}
		}
		s.eventManager.EmitTyped("compliance", &events.ComplianceCompletedData{
			FundID:     ctx.FundID,
			TradeID:    ctx.TradeID,
			RulesRun:   len(report.Results),
			AlertCount: alertCount,
			ErrorCount: len(report.EvaluationErrors()),
		})
	}
	return report, nil
}

// PersistAlerts records one alert per fired rule in the report and fills in
// the report's alert ids. Portfolio-scope alerts carry no trade reference.
func (s *Service) PersistAlerts(ctx Context, report *Report) error {
	var tradeRef *int64
	if !ctx.IsPortfolio() {
		tradeID := ctx.TradeID
		tradeRef = &tradeID
	}

	for _, result := range report.Results {
		if !result.Alerted {
			continue
		}

		triggering, err := json.Marshal(result.TriggeringHoldings)
		if err != nil {
			return fmt.Errorf("failed to serialise triggering holdings for rule %d: %w", result.RuleID, err)
		}

		alert, err := s.alertSink.Create(alerts.Alert{
			RuleID:             result.RuleID,
			FundID:             ctx.FundID,
			TradeID:            tradeRef,
			CalculatedPercent:  result.CalculatedPercent,
			TriggeringHoldings: string(triggering),
		})
		if err != nil {
			return err
		}
		report.AlertIDs = append(report.AlertIDs, alert.ID)
	}
	return nil
}

// RunPortfolio stages the fund's current holdings, evaluates its portfolio
// rules, persists any alerts, and drains the scope.
func (s *Service) RunPortfolio(fundID int64) (*Report, error) {
	ctx := ForPortfolio(fundID)

	if err := s.projector.StagePortfolio(fundID); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.staging.Drain(ctx.FundID, ctx.TradeID); err != nil {
			s.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to drain portfolio scope")
		}
	}()

	report, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.PersistAlerts(ctx, report); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("fund_id", fundID).
		Int("rules_run", len(report.Results)).
		Int("alerts", len(report.AlertIDs)).
		Msg("Portfolio compliance completed")
	return report, nil
}

// DryRun evaluates a single rule against a fund without persisting anything,
// optionally with a hypothetical trade applied to the projection. The rule
// need not be saved.
func (s *Service) DryRun(fundID int64, rule rules.Rule, hypothetical *HypotheticalTrade) (*RuleResult, error) {
	fund, err := s.funds.GetByID(fundID)
	if err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, fmt.Errorf("%w: %d", ErrFundNotFound, fundID)
	}

	if err := ruleexpr.Validate(rule.RuleLogic); err != nil {
		return nil, fmt.Errorf("invalid rule_logic: %w", err)
	}

	scopeID := atomic.AddInt64(&s.dryRunScope, -1)
	defer func() {
		if err := s.staging.Drain(fundID, scopeID); err != nil {
			s.log.Error().Err(err).Int64("fund_id", fundID).Msg("Failed to drain dry-run scope")
		}
	}()

	cash := fund.Cash
	if hypothetical != nil {
		value, err := s.valuator.TradeValue(hypothetical.Ticker, hypothetical.Shares)
		if err != nil {
			return nil, err
		}
		tradeValue, _ := value.Float64()
		if hypothetical.Side == holdings.SideBuy {
			cash -= tradeValue
		} else {
			cash += tradeValue
		}

		err = s.projector.StageTrade(fundID, scopeID, hypothetical.Ticker, hypothetical.Side, hypothetical.Shares)
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.staging.Drain(fundID, scopeID); err != nil {
			return nil, err
		}
		if err := s.staging.CopyFromHoldings(fundID, scopeID); err != nil {
			return nil, err
		}
	}

	rows, err := s.staging.GetJoinedScope(fundID, scopeID)
	if err != nil {
		return nil, err
	}
	valuation, err := s.valuator.Value(rows, cash)
	if err != nil {
		return nil, err
	}

	result := s.engine.Evaluate(rule, rows, valuation)
	return &result, nil
}
