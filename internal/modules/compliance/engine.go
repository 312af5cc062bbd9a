package compliance

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fundguard/fundguard/internal/domain"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/rules/ruleexpr"
)

// TriggeringHolding is one holding that contributed to a rule firing.
// Percentage is set only for for-each rules.
type TriggeringHolding struct {
	Ticker      string   `json:"ticker"`
	Shares      int64    `json:"shares"`
	MarketValue *float64 `json:"market_value,omitempty"`
	Percentage  *float64 `json:"percentage,omitempty"`
}

// RuleResult is the outcome of evaluating one rule against one scope.
// ErrorReason is set when the engine could not reach a verdict; the caller
// must not treat such a rule as passed.
type RuleResult struct {
	RuleID             int64               `json:"rule_id"`
	RuleName           string              `json:"rule_name"`
	Alerted            bool                `json:"alerted"`
	CalculatedPercent  *float64            `json:"calculated_percent,omitempty"`
	TriggeringHoldings []TriggeringHolding `json:"triggering_holdings,omitempty"`
	ErrorReason        string              `json:"error_reason,omitempty"`
}

// Engine evaluates rules against a priced staging scope.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new rule engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("service", "rule_engine").Logger(),
	}
}

// EvaluateAll evaluates rules in ascending rule-id order (the order the
// repository returns them) and reports one result per rule.
func (e *Engine) EvaluateAll(ruleList []rules.Rule, rows []holdings.StagedJoinedRow, valuation *Valuation) []RuleResult {
	results := make([]RuleResult, 0, len(ruleList))
	for _, rule := range ruleList {
		results = append(results, e.Evaluate(rule, rows, valuation))
	}
	return results
}

// Evaluate runs one rule against the scope's staged rows.
func (e *Engine) Evaluate(rule rules.Rule, rows []holdings.StagedJoinedRow, valuation *Valuation) RuleResult {
	result := RuleResult{RuleID: rule.ID, RuleName: rule.Name}

	expr, err := ruleexpr.Parse(rule.RuleLogic)
	if err != nil {
		result.ErrorReason = fmt.Sprintf("rule logic does not parse: %v", err)
		return result
	}

	matched, err := filterRows(expr, rows)
	if err != nil {
		result.ErrorReason = fmt.Sprintf("rule logic failed against holdings: %v", err)
		return result
	}

	switch {
	case rule.IsProhibit():
		e.evaluateProhibit(&result, matched, valuation)
	case rule.IsForEach():
		e.evaluateForEach(&result, rule, matched)
	default:
		e.evaluateExposure(&result, rule, matched, valuation)
	}

	e.log.Debug().
		Int64("rule_id", rule.ID).
		Bool("alerted", result.Alerted).
		Str("error", result.ErrorReason).
		Msg("Rule evaluated")
	return result
}

// evaluateProhibit alerts on any matching holding. No percentage applies.
func (e *Engine) evaluateProhibit(result *RuleResult, matched []holdings.StagedJoinedRow, valuation *Valuation) {
	if len(matched) == 0 {
		return
	}
	result.Alerted = true
	for _, row := range matched {
		result.TriggeringHoldings = append(result.TriggeringHoldings, triggering(row, valuation, nil))
	}
}

// evaluateForEach compares each matching holding's share of its security's
// float against the threshold. Matches with null or zero shares outstanding
// cannot be assessed and are reported as an evaluation error; the remaining
// matches are still evaluated.
func (e *Engine) evaluateForEach(result *RuleResult, rule rules.Rule, matched []holdings.StagedJoinedRow) {
	var badTickers []string
	for _, row := range matched {
		if row.SharesOutstanding == nil || *row.SharesOutstanding == 0 {
			badTickers = append(badTickers, row.Ticker)
			continue
		}

		percent := domain.Percent(
			decimal.NewFromInt(row.Shares),
			decimal.NewFromInt(*row.SharesOutstanding),
		)
		if !thresholdHit(rule, percent) {
			continue
		}

		result.Alerted = true
		pf, _ := percent.Float64()
		result.TriggeringHoldings = append(result.TriggeringHoldings, TriggeringHolding{
			Ticker:     row.Ticker,
			Shares:     row.Shares,
			Percentage: &pf,
		})
	}

	if len(badTickers) > 0 {
		result.ErrorReason = fmt.Sprintf(
			"shares outstanding unavailable for %s", strings.Join(badTickers, ", "))
	}
}

// evaluateExposure sums the matching holdings' market values against the
// rule's denominator base. Any unpriced holding in the scope makes the base
// unreliable, so the rule is an evaluation error rather than a verdict.
func (e *Engine) evaluateExposure(result *RuleResult, rule rules.Rule, matched []holdings.StagedJoinedRow, valuation *Valuation) {
	if len(valuation.MissingPrices) > 0 {
		result.ErrorReason = fmt.Sprintf(
			"no price on record for %s", strings.Join(valuation.MissingPrices, ", "))
		return
	}

	base, err := valuation.Base(rule.Denominator)
	if err != nil {
		result.ErrorReason = err.Error()
		return
	}
	if base.IsZero() {
		result.ErrorReason = fmt.Sprintf("%s denominator is zero", rule.Denominator)
		return
	}

	numerator := decimal.Zero
	for _, row := range matched {
		mv, ok := valuation.MarketValue(row.Ticker)
		if !ok {
			result.ErrorReason = fmt.Sprintf("no price on record for %s", row.Ticker)
			return
		}
		numerator = numerator.Add(mv)
	}

	percent := domain.Percent(numerator, base)
	pf, _ := percent.Float64()
	result.CalculatedPercent = &pf

	if rule.AlertPercent == nil || !thresholdHit(rule, percent) {
		return
	}

	result.Alerted = true
	for _, row := range matched {
		result.TriggeringHoldings = append(result.TriggeringHoldings, triggering(row, valuation, nil))
	}
}

// thresholdHit applies the inclusive threshold comparison in the rule's
// direction.
func thresholdHit(rule rules.Rule, percent decimal.Decimal) bool {
	if rule.AlertPercent == nil {
		return false
	}
	threshold := decimal.NewFromFloat(*rule.AlertPercent)
	if rule.AlertIf == rules.AlertIfBelow {
		return percent.LessThanOrEqual(threshold)
	}
	return percent.GreaterThanOrEqual(threshold)
}

func filterRows(expr ruleexpr.Expr, rows []holdings.StagedJoinedRow) ([]holdings.StagedJoinedRow, error) {
	var matched []holdings.StagedJoinedRow
	for i := range rows {
		ok, err := ruleexpr.Evaluate(expr, rows[i].Columns())
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rows[i])
		}
	}
	return matched, nil
}

func triggering(row holdings.StagedJoinedRow, valuation *Valuation, percentage *float64) TriggeringHolding {
	th := TriggeringHolding{
		Ticker:     row.Ticker,
		Shares:     row.Shares,
		Percentage: percentage,
	}
	if mv, ok := valuation.MarketValue(row.Ticker); ok {
		f, _ := mv.Float64()
		th.MarketValue = &f
	}
	return th
}
