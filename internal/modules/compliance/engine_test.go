package compliance

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

type fakePriceSource struct {
	prices map[string]float64
}

func (f *fakePriceSource) LatestPrices(tickers []string) (map[string]universe.PricePoint, error) {
	result := make(map[string]universe.PricePoint)
	for _, ticker := range tickers {
		if price, ok := f.prices[ticker]; ok {
			result[ticker] = universe.PricePoint{Ticker: ticker, Price: price, PriceDate: "2025-01-02"}
		}
	}
	return result, nil
}

func itRow(ticker string, shares int64, sharesOut *int64) holdings.StagedJoinedRow {
	return holdings.StagedJoinedRow{
		FundID:                   1,
		Ticker:                   ticker,
		Shares:                   shares,
		SecurityName:             ticker + " Inc",
		SecurityType:             "equity",
		SharesOutstanding:        sharesOut,
		IssuerName:               ticker + " Inc",
		GICSSector:               "Information Technology",
		CountryDomicileCode:      "US",
		CountryIncorporationCode: "US",
	}
}

func valueRows(t *testing.T, rows []holdings.StagedJoinedRow, cash float64, prices map[string]float64) *Valuation {
	t.Helper()
	valuator := NewValuator(&fakePriceSource{prices: prices}, testLogger())
	valuation, err := valuator.Value(rows, cash)
	require.NoError(t, err)
	return valuation
}

func exposureRule(threshold float64) rules.Rule {
	return rules.Rule{
		ID:           1,
		Name:         "IT sector cap",
		RuleLogic:    "issuers.gics_sector = 'Information Technology'",
		Denominator:  rules.DenominatorTotalAssets,
		AlertIf:      rules.AlertIfAbove,
		AlertPercent: &threshold,
	}
}

// Post-trade projection of BUY AAPL 100 against MSFT 500@300, AAPL 1000@150,
// cash 100k: post-trade cash 85k, IT exposure 315k of 400k total.
func TestEngineSectorCapAlert(t *testing.T) {
	rows := []holdings.StagedJoinedRow{
		itRow("AAPL", 1100, nil),
		itRow("MSFT", 500, nil),
	}
	valuation := valueRows(t, rows, 85000, map[string]float64{"AAPL": 150, "MSFT": 300})

	result := NewEngine(testLogger()).Evaluate(exposureRule(30), rows, valuation)

	assert.True(t, result.Alerted)
	assert.Empty(t, result.ErrorReason)
	require.NotNil(t, result.CalculatedPercent)
	assert.Equal(t, 78.75, *result.CalculatedPercent)
	require.Len(t, result.TriggeringHoldings, 2)
	assert.Equal(t, "AAPL", result.TriggeringHoldings[0].Ticker)
	assert.Equal(t, "MSFT", result.TriggeringHoldings[1].Ticker)
}

func TestEngineExposurePass(t *testing.T) {
	rows := []holdings.StagedJoinedRow{itRow("AAPL", 10, nil)}
	valuation := valueRows(t, rows, 98500, map[string]float64{"AAPL": 150})

	// 1500 of 100000 = 1.5%, threshold 30%
	result := NewEngine(testLogger()).Evaluate(exposureRule(30), rows, valuation)

	assert.False(t, result.Alerted)
	require.NotNil(t, result.CalculatedPercent)
	assert.Equal(t, 1.5, *result.CalculatedPercent)
	assert.Empty(t, result.TriggeringHoldings)
}

func TestEngineInclusiveThresholds(t *testing.T) {
	// 25000 of 100000 = exactly 25%
	rows := []holdings.StagedJoinedRow{itRow("AAPL", 250, nil)}
	valuation := valueRows(t, rows, 75000, map[string]float64{"AAPL": 100})
	engine := NewEngine(testLogger())

	above := exposureRule(25)
	result := engine.Evaluate(above, rows, valuation)
	assert.True(t, result.Alerted, "above fires on equality")

	below := exposureRule(25)
	below.AlertIf = rules.AlertIfBelow
	result = engine.Evaluate(below, rows, valuation)
	assert.True(t, result.Alerted, "below fires on equality")
}

func TestEngineZeroDenominator(t *testing.T) {
	valuation := valueRows(t, nil, 0, nil)

	result := NewEngine(testLogger()).Evaluate(exposureRule(30), nil, valuation)

	assert.False(t, result.Alerted)
	assert.Contains(t, result.ErrorReason, "denominator is zero")
}

func TestEngineMissingPriceIsEvaluationError(t *testing.T) {
	rows := []holdings.StagedJoinedRow{
		itRow("AAPL", 100, nil),
		itRow("ZZZZ", 50, nil),
	}
	valuation := valueRows(t, rows, 10000, map[string]float64{"AAPL": 150})

	result := NewEngine(testLogger()).Evaluate(exposureRule(30), rows, valuation)

	assert.False(t, result.Alerted)
	assert.Contains(t, result.ErrorReason, "ZZZZ")
}

func TestEngineProhibit(t *testing.T) {
	engine := NewEngine(testLogger())

	rule := rules.Rule{
		ID:          2,
		Name:        "Sanctioned countries",
		RuleLogic:   "issuers.country_incorporation_code IN ('PRK', 'MMR', 'TKM')",
		Denominator: rules.DenominatorProhibit,
	}

	usRows := []holdings.StagedJoinedRow{itRow("AAPL", 100, nil)}
	valuation := valueRows(t, usRows, 10000, map[string]float64{"AAPL": 150})
	result := engine.Evaluate(rule, usRows, valuation)
	assert.False(t, result.Alerted)
	assert.Empty(t, result.ErrorReason)

	banned := itRow("BANN", 10, nil)
	banned.CountryIncorporationCode = "PRK"
	mixed := append(usRows, banned)
	valuation = valueRows(t, mixed, 10000, map[string]float64{"AAPL": 150, "BANN": 5})
	result = engine.Evaluate(rule, mixed, valuation)
	assert.True(t, result.Alerted)
	assert.Nil(t, result.CalculatedPercent)
	require.Len(t, result.TriggeringHoldings, 1)
	assert.Equal(t, "BANN", result.TriggeringHoldings[0].Ticker)
}

func TestEngineForEachOwnershipLimit(t *testing.T) {
	sharesOut := int64(2500000000)
	rows := []holdings.StagedJoinedRow{itRow("NVDA", 200000000, &sharesOut)}
	valuation := valueRows(t, rows, 0, map[string]float64{"NVDA": 100})

	threshold := 5.0
	rule := rules.Rule{
		ID:           3,
		Name:         "Ownership limit",
		RuleLogic:    "",
		Denominator:  rules.DenominatorSharesOutstanding,
		AlertIf:      rules.AlertIfAbove,
		AlertPercent: &threshold,
	}

	result := NewEngine(testLogger()).Evaluate(rule, rows, valuation)

	assert.True(t, result.Alerted)
	assert.Nil(t, result.CalculatedPercent)
	require.Len(t, result.TriggeringHoldings, 1)
	assert.Equal(t, "NVDA", result.TriggeringHoldings[0].Ticker)
	require.NotNil(t, result.TriggeringHoldings[0].Percentage)
	assert.Equal(t, 8.0, *result.TriggeringHoldings[0].Percentage)
}

func TestEngineForEachNullSharesOutstanding(t *testing.T) {
	sharesOut := int64(1000)
	rows := []holdings.StagedJoinedRow{
		itRow("GOOD", 100, &sharesOut), // 10%, triggers
		itRow("NULL", 50, nil),
	}
	valuation := valueRows(t, rows, 0, map[string]float64{"GOOD": 10, "NULL": 10})

	threshold := 5.0
	rule := rules.Rule{
		ID:           4,
		Name:         "Ownership limit",
		Denominator:  rules.DenominatorSharesOutstanding,
		AlertIf:      rules.AlertIfAbove,
		AlertPercent: &threshold,
	}

	result := NewEngine(testLogger()).Evaluate(rule, rows, valuation)

	assert.Contains(t, result.ErrorReason, "NULL", "null float reported, not silently passed")
	assert.True(t, result.Alerted, "assessable match still triggers")
	require.Len(t, result.TriggeringHoldings, 1)
	assert.Equal(t, "GOOD", result.TriggeringHoldings[0].Ticker)
}

func TestEngineForEachFilterFirst(t *testing.T) {
	sharesOut := int64(1000)
	energy := itRow("ENGY", 100, &sharesOut) // 10%, but filtered out
	energy.GICSSector = "Energy"
	rows := []holdings.StagedJoinedRow{
		energy,
		itRow("TECH", 10, &sharesOut), // 1%, matches filter, under threshold
	}
	valuation := valueRows(t, rows, 0, map[string]float64{"ENGY": 10, "TECH": 10})

	threshold := 5.0
	rule := rules.Rule{
		ID:           5,
		Name:         "IT ownership limit",
		RuleLogic:    "issuers.gics_sector = 'Information Technology'",
		Denominator:  rules.DenominatorSharesOutstanding,
		AlertIf:      rules.AlertIfAbove,
		AlertPercent: &threshold,
	}

	result := NewEngine(testLogger()).Evaluate(rule, rows, valuation)

	assert.False(t, result.Alerted, "filtered-out holding must not trigger")
	assert.Empty(t, result.ErrorReason)
}

func TestEngineEmptyFilterMatchesAll(t *testing.T) {
	rows := []holdings.StagedJoinedRow{
		itRow("AAPL", 100, nil),
		itRow("MSFT", 100, nil),
	}
	valuation := valueRows(t, rows, 0, map[string]float64{"AAPL": 100, "MSFT": 100})

	rule := exposureRule(50)
	rule.RuleLogic = ""
	result := NewEngine(testLogger()).Evaluate(rule, rows, valuation)

	assert.True(t, result.Alerted)
	require.NotNil(t, result.CalculatedPercent)
	assert.Equal(t, 100.0, *result.CalculatedPercent)
}

func TestEngineBadRuleLogic(t *testing.T) {
	rows := []holdings.StagedJoinedRow{itRow("AAPL", 100, nil)}
	valuation := valueRows(t, rows, 1000, map[string]float64{"AAPL": 100})

	rule := exposureRule(50)
	rule.RuleLogic = "nonexistent_column = 5"
	result := NewEngine(testLogger()).Evaluate(rule, rows, valuation)

	assert.False(t, result.Alerted)
	assert.NotEmpty(t, result.ErrorReason)
}

func TestValuatorBases(t *testing.T) {
	rows := []holdings.StagedJoinedRow{
		itRow("AAPL", 1000, nil),
		itRow("MSFT", 500, nil),
	}
	valuation := valueRows(t, rows, 100000, map[string]float64{"AAPL": 150, "MSFT": 300})

	assert.True(t, valuation.TotalAssets.Equal(decimal.NewFromInt(400000)))
	assert.True(t, valuation.NetAssets.Equal(decimal.NewFromInt(400000)))
	assert.True(t, valuation.TotalAssetsExCash.Equal(decimal.NewFromInt(300000)))
	assert.Empty(t, valuation.MissingPrices)

	mv, ok := valuation.MarketValue("AAPL")
	require.True(t, ok)
	assert.True(t, mv.Equal(decimal.NewFromInt(150000)))
}

func TestValuatorFlagsMissingPrices(t *testing.T) {
	rows := []holdings.StagedJoinedRow{
		itRow("AAPL", 100, nil),
		itRow("ZZZZ", 10, nil),
	}
	valuation := valueRows(t, rows, 1000, map[string]float64{"AAPL": 150})

	assert.Equal(t, []string{"ZZZZ"}, valuation.MissingPrices)
	assert.True(t, valuation.TotalAssets.Equal(decimal.NewFromInt(16000)), "unpriced holding excluded from sum")

	_, ok := valuation.MarketValue("ZZZZ")
	assert.False(t, ok)
}
