package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/universe"
	testdb "github.com/fundguard/fundguard/internal/testing"
)

type complianceFixture struct {
	service *Service
	rules   *rules.Repository
	alerts  *alerts.Repository
	staging *holdings.StagingRepository
	fundID  int64
}

func newComplianceFixture(t *testing.T) (*complianceFixture, func()) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	conn := db.Conn()
	log := testLogger()

	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)

	fundRepo := funds.NewRepository(conn, log)
	ruleRepo := rules.NewRepository(conn, log)
	alertRepo := alerts.NewRepository(conn, log)
	staging := holdings.NewStagingRepository(conn, log)
	projector := holdings.NewProjector(staging, log)
	priceRepo := universe.NewPriceRepository(conn, log)
	valuator := NewValuator(priceRepo, log)
	engine := NewEngine(log)
	alertService := alerts.NewService(alertRepo, manager, log)

	service := NewService(fundRepo, ruleRepo, staging, projector, valuator, engine, alertService, manager, log)

	fundID := testdb.SeedFund(t, conn, "Alpha Fund", 100000)
	testdb.SeedEquity(t, conn, "AAPL", "Apple Inc", "Information Technology", "US", nil, 150)
	testdb.SeedEquity(t, conn, "MSFT", "Microsoft Corp", "Information Technology", "US", nil, 300)
	testdb.SeedHolding(t, conn, fundID, "AAPL", 1000)
	testdb.SeedHolding(t, conn, fundID, "MSFT", 500)

	return &complianceFixture{
		service: service,
		rules:   ruleRepo,
		alerts:  alertRepo,
		staging: staging,
		fundID:  fundID,
	}, cleanup
}

func attachExposureRule(t *testing.T, f *complianceFixture, threshold float64) *rules.Rule {
	t.Helper()
	rule, err := f.rules.Create(rules.Rule{
		Name:                "IT sector cap",
		EvaluateOnTrade:     true,
		EvaluateOnPortfolio: true,
		RuleLogic:           "issuers.gics_sector = 'Information Technology'",
		Denominator:         rules.DenominatorTotalAssets,
		AlertIf:             rules.AlertIfAbove,
		AlertPercent:        &threshold,
		IsActive:            true,
	})
	require.NoError(t, err)
	_, err = f.rules.Attach(rule.ID, f.fundID)
	require.NoError(t, err)
	return rule
}

func TestRunPortfolioPersistsAlertsAndDrains(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()
	attachExposureRule(t, f, 30)

	report, err := f.service.RunPortfolio(f.fundID)
	require.NoError(t, err)

	// IT exposure 300000 of 400000 = 75%
	assert.True(t, report.HasAlerts())
	require.Len(t, report.Results, 1)
	require.NotNil(t, report.Results[0].CalculatedPercent)
	assert.Equal(t, 75.0, *report.Results[0].CalculatedPercent)
	require.Len(t, report.AlertIDs, 1)

	alert, err := f.alerts.GetByID(report.AlertIDs[0])
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Nil(t, alert.TradeID, "portfolio alerts carry no trade reference")
	assert.Equal(t, alerts.StatusPending, alert.Status)
	require.NotNil(t, alert.CalculatedPercent)
	assert.Equal(t, 75.0, *alert.CalculatedPercent)

	var triggering []TriggeringHolding
	require.NoError(t, alert.DecodeTriggeringHoldings(&triggering))
	assert.Len(t, triggering, 2)

	scope, err := f.staging.GetScope(f.fundID, 0)
	require.NoError(t, err)
	assert.Empty(t, scope, "portfolio scope drained after run")
}

func TestRunPortfolioNoRules(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()

	report, err := f.service.RunPortfolio(f.fundID)
	require.NoError(t, err)

	assert.False(t, report.HasAlerts())
	assert.Empty(t, report.Results)
	assert.Empty(t, report.AlertIDs)
}

func TestRunPortfolioUnknownFund(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()

	_, err := f.service.RunPortfolio(9999)
	assert.ErrorIs(t, err, ErrFundNotFound)
}

func TestRunTradeScopeUsesPostTradeCash(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()
	attachExposureRule(t, f, 30)

	// BUY AAPL 100 @ 150: staged AAPL 1100, cash delta -15000
	projector := holdings.NewProjector(f.staging, testLogger())
	require.NoError(t, projector.StageTrade(f.fundID, 42, "AAPL", holdings.SideBuy, 100))

	report, err := f.service.Run(ForTrade(f.fundID, 42, -15000))
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	result := report.Results[0]
	assert.True(t, result.Alerted)
	require.NotNil(t, result.CalculatedPercent)
	assert.Equal(t, 78.75, *result.CalculatedPercent)
	require.Len(t, result.TriggeringHoldings, 2)

	require.NoError(t, f.staging.Drain(f.fundID, 42))
}

func TestDryRunDoesNotPersist(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()

	threshold := 30.0
	rule := rules.Rule{
		Name:         "IT sector cap",
		RuleLogic:    "issuers.gics_sector = 'Information Technology'",
		Denominator:  rules.DenominatorTotalAssets,
		AlertIf:      rules.AlertIfAbove,
		AlertPercent: &threshold,
	}

	result, err := f.service.DryRun(f.fundID, rule, nil)
	require.NoError(t, err)
	assert.True(t, result.Alerted)
	require.NotNil(t, result.CalculatedPercent)
	assert.Equal(t, 75.0, *result.CalculatedPercent)

	list, err := f.alerts.List(alerts.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list, "dry-run persists nothing")
}

func TestDryRunWithHypotheticalTrade(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()

	threshold := 30.0
	rule := rules.Rule{
		Name:         "IT sector cap",
		RuleLogic:    "issuers.gics_sector = 'Information Technology'",
		Denominator:  rules.DenominatorTotalAssets,
		AlertIf:      rules.AlertIfAbove,
		AlertPercent: &threshold,
	}

	result, err := f.service.DryRun(f.fundID, rule, &HypotheticalTrade{
		Ticker: "AAPL", Side: holdings.SideBuy, Shares: 100,
	})
	require.NoError(t, err)
	assert.True(t, result.Alerted)
	require.NotNil(t, result.CalculatedPercent)
	assert.Equal(t, 78.75, *result.CalculatedPercent)
}

func TestDryRunRejectsBadLogic(t *testing.T) {
	f, cleanup := newComplianceFixture(t)
	defer cleanup()

	_, err := f.service.DryRun(f.fundID, rules.Rule{
		Name:        "Broken",
		RuleLogic:   "ticker = 'A'; DROP TABLE rules",
		Denominator: rules.DenominatorProhibit,
	}, nil)
	assert.Error(t, err)
}
