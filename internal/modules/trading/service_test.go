package trading

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/compliance"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/universe"
	testdb "github.com/fundguard/fundguard/internal/testing"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

type tradingFixture struct {
	service   *Service
	trades    *Repository
	alertRepo *alerts.Repository
	holdings  *holdings.Repository
	staging   *holdings.StagingRepository
	funds     *funds.Repository
	rules     *rules.Repository
	conn      *sql.DB
	fundID    int64
}

func newTradingFixture(t *testing.T) (*tradingFixture, func()) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	conn := db.Conn()
	log := testLogger()

	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)

	fundRepo := funds.NewRepository(conn, log)
	ruleRepo := rules.NewRepository(conn, log)
	alertRepo := alerts.NewRepository(conn, log)
	holdingRepo := holdings.NewRepository(conn, log)
	staging := holdings.NewStagingRepository(conn, log)
	projector := holdings.NewProjector(staging, log)
	priceRepo := universe.NewPriceRepository(conn, log)
	securityRepo := universe.NewSecurityRepository(conn, log)

	valuator := compliance.NewValuator(priceRepo, log)
	engine := compliance.NewEngine(log)
	alertService := alerts.NewService(alertRepo, manager, log)
	complianceService := compliance.NewService(
		fundRepo, ruleRepo, staging, projector, valuator, engine, alertService, manager, log)

	tradeRepo := NewRepository(conn, log)
	validator := NewValidator(fundRepo, securityRepo)
	writer := NewWriter(conn, tradeRepo, holdingRepo, staging, fundRepo, log)
	service := NewService(tradeRepo, validator, fundRepo, holdingRepo, staging, projector,
		priceRepo, complianceService, alertService, writer, manager, log)

	fundID := testdb.SeedFund(t, conn, "Alpha Fund", 100000)
	testdb.SeedEquity(t, conn, "AAPL", "Apple Inc", "Information Technology", "US", nil, 150)
	testdb.SeedEquity(t, conn, "MSFT", "Microsoft Corp", "Information Technology", "US", nil, 300)
	testdb.SeedEquity(t, conn, "KO", "Coca-Cola Co", "Consumer Staples", "US", nil, 60)
	testdb.SeedHolding(t, conn, fundID, "AAPL", 1000)
	testdb.SeedHolding(t, conn, fundID, "MSFT", 500)

	return &tradingFixture{
		service:   service,
		trades:    tradeRepo,
		alertRepo: alertRepo,
		holdings:  holdingRepo,
		staging:   staging,
		funds:     fundRepo,
		rules:     ruleRepo,
		conn:      conn,
		fundID:    fundID,
	}, cleanup
}

func attachRule(t *testing.T, f *tradingFixture, rule rules.Rule) *rules.Rule {
	t.Helper()
	created, err := f.rules.Create(rule)
	require.NoError(t, err)
	_, err = f.rules.Attach(created.ID, f.fundID)
	require.NoError(t, err)
	return created
}

func itExposureRule(threshold float64) rules.Rule {
	return rules.Rule{
		Name:            "IT sector cap",
		AlertMessage:    "IT exposure breaches the cap",
		EvaluateOnTrade: true,
		RuleLogic:       "issuers.gics_sector = 'Information Technology'",
		Denominator:     rules.DenominatorTotalAssets,
		AlertIf:         rules.AlertIfAbove,
		AlertPercent:    &threshold,
		IsActive:        true,
	}
}

func (f *tradingFixture) fundCash(t *testing.T) float64 {
	t.Helper()
	fund, err := f.funds.GetByID(f.fundID)
	require.NoError(t, err)
	require.NotNil(t, fund)
	return fund.Cash
}

func TestSubmitValidationErrors(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	result, err := f.service.Submit(SubmitRequest{FundID: 0, Ticker: "", Side: "HOLD", Shares: 0})
	require.NoError(t, err)

	assert.Nil(t, result.Trade)
	require.Len(t, result.FieldErrors, 4)
	fields := make([]string, 0, len(result.FieldErrors))
	for _, fe := range result.FieldErrors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"fund_id", "ticker", "side", "shares"}, fields)
}

func TestSubmitUnknownSecurity(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "zzzz", Side: SideBuy, Shares: 10})
	require.NoError(t, err)

	require.Len(t, result.FieldErrors, 1)
	assert.Equal(t, "ticker", result.FieldErrors[0].Field)
	assert.Contains(t, result.FieldErrors[0].Message, "ZZZZ")
}

func TestSubmitNoPriceOnRecord(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	issuerID := testdb.SeedIssuer(t, f.conn, "Newco Inc", "Industrials", "US")
	testdb.SeedSecurity(t, f.conn, "NEWX", "Newco Inc", issuerID, nil)

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "NEWX", Side: SideBuy, Shares: 10})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusInvalid, result.Trade.Status)
	assert.Equal(t, "no price on record for NEWX", result.Trade.Reason)
}

func TestSubmitCashRefused(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "CASH", Side: SideBuy, Shares: 10})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Empty(t, result.FieldErrors)
	assert.Equal(t, StatusInvalid, result.Trade.Status)
	assert.Equal(t, "Trading cash is not allowed", result.Trade.Reason)
}

func TestSubmitInsufficientCash(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	fundID := testdb.SeedFund(t, f.conn, "Beta Fund", 40000)

	// 300 shares at $150 = $45,000 against $40,000 cash.
	result, err := f.service.Submit(SubmitRequest{FundID: fundID, Ticker: "AAPL", Side: SideBuy, Shares: 300})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusInvalid, result.Trade.Status)
	assert.Contains(t, result.Trade.Reason, "($5,000 shortfall)")
	assert.Contains(t, result.Trade.Reason, "266 shares or fewer")

	scope, err := f.staging.GetScope(fundID, result.Trade.ID)
	require.NoError(t, err)
	assert.Empty(t, scope, "nothing staged for an unaffordable trade")

	fund, err := f.funds.GetByID(fundID)
	require.NoError(t, err)
	assert.Equal(t, 40000.0, fund.Cash)
}

func TestSubmitSellMoreThanHeld(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "MSFT", Side: SideSell, Shares: 600})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusInvalid, result.Trade.Status)
	assert.Contains(t, result.Trade.Reason, "fund holds 500 shares of MSFT")
}

func TestSubmitSellNotHeld(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "KO", Side: SideSell, Shares: 10})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusInvalid, result.Trade.Status)
	assert.Equal(t, "Cannot sell KO: the fund does not hold this security", result.Trade.Reason)
}

func TestSubmitCleanTradeCommits(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	attachRule(t, f, rules.Rule{
		Name:            "No Tesla",
		EvaluateOnTrade: true,
		RuleLogic:       "holdings.ticker = 'TSLA'",
		Denominator:     rules.DenominatorProhibit,
		IsActive:        true,
	})

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusProcessed, result.Trade.Status)
	require.NotNil(t, result.Trade.Price)
	assert.Equal(t, 150.0, *result.Trade.Price)
	require.NotNil(t, result.Trade.TotalValue)
	assert.Equal(t, 15000.0, *result.Trade.TotalValue)
	require.NotNil(t, result.Report)
	require.Len(t, result.Report.Results, 1)
	assert.False(t, result.Report.Results[0].Alerted)

	assert.Equal(t, 85000.0, f.fundCash(t))
	holding, err := f.holdings.Get(f.fundID, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.Equal(t, int64(1100), holding.Shares)

	scope, err := f.staging.GetScope(f.fundID, result.Trade.ID)
	require.NoError(t, err)
	assert.Empty(t, scope, "scope drained on commit")
}

func TestSubmitSellToZeroRemovesHolding(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "MSFT", Side: SideSell, Shares: 500})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusProcessed, result.Trade.Status)
	assert.Equal(t, 250000.0, f.fundCash(t))

	holding, err := f.holdings.Get(f.fundID, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, holding, "position sold to zero leaves the book")
}

func TestSubmitAlertThenOverrideCommits(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	attachRule(t, f, itExposureRule(50))

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusAlert, result.Trade.Status)
	require.NotNil(t, result.Report)
	require.Len(t, result.Report.Results, 1)
	require.NotNil(t, result.Report.Results[0].CalculatedPercent)
	// Post-trade: cash 85,000, AAPL 165,000, MSFT 150,000 of 400,000.
	assert.Equal(t, 78.75, *result.Report.Results[0].CalculatedPercent)
	require.Len(t, result.Report.AlertIDs, 1)

	// Gated: the book is untouched and the scope is kept for the commit.
	assert.Equal(t, 100000.0, f.fundCash(t))
	holding, err := f.holdings.Get(f.fundID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), holding.Shares)
	scope, err := f.staging.GetScope(f.fundID, result.Trade.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, scope)

	overrideResult, err := f.service.Override(result.Trade.ID, map[int64]string{
		result.Report.AlertIDs[0]: "approved by CIO",
	})
	require.NoError(t, err)

	assert.True(t, overrideResult.Committed)
	assert.Equal(t, StatusProcessed, overrideResult.Trade.Status)
	assert.Equal(t, 85000.0, f.fundCash(t))
	holding, err = f.holdings.Get(f.fundID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), holding.Shares)

	alert, err := f.alertRepo.GetByID(result.Report.AlertIDs[0])
	require.NoError(t, err)
	assert.Equal(t, alerts.StatusOverridden, alert.Status)
	assert.Equal(t, "approved by CIO", alert.OverrideReason)

	scope, err = f.staging.GetScope(f.fundID, result.Trade.ID)
	require.NoError(t, err)
	assert.Empty(t, scope, "scope drained on commit")
}

func TestOverridePartialCoverageKeepsAlert(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	attachRule(t, f, itExposureRule(50))
	second := itExposureRule(10)
	second.Name = "IT sector hard cap"
	attachRule(t, f, second)

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100})
	require.NoError(t, err)
	require.NotNil(t, result.Trade)
	require.Equal(t, StatusAlert, result.Trade.Status)
	require.Len(t, result.Report.AlertIDs, 2)

	overrideResult, err := f.service.Override(result.Trade.ID, map[int64]string{
		result.Report.AlertIDs[0]: "first breach accepted",
	})
	require.NoError(t, err)

	assert.False(t, overrideResult.Committed)
	assert.Equal(t, StatusAlert, overrideResult.Trade.Status)
	assert.Equal(t, []int64{result.Report.AlertIDs[1]}, overrideResult.PendingIDs)
	assert.Equal(t, 100000.0, f.fundCash(t), "partial override must not move money")

	overrideResult, err = f.service.Override(result.Trade.ID, map[int64]string{
		result.Report.AlertIDs[1]: "second breach accepted",
	})
	require.NoError(t, err)

	assert.True(t, overrideResult.Committed)
	assert.Equal(t, StatusProcessed, overrideResult.Trade.Status)
	assert.Equal(t, 85000.0, f.fundCash(t))
}

func TestOverrideRejectsUnknownAlert(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	attachRule(t, f, itExposureRule(50))

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100})
	require.NoError(t, err)
	require.Equal(t, StatusAlert, result.Trade.Status)

	_, err = f.service.Override(result.Trade.ID, map[int64]string{99999: "no such alert"})
	assert.ErrorIs(t, err, ErrUnknownAlert)
}

func TestOverrideConflictsOnTerminalTrade(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	attachRule(t, f, itExposureRule(50))

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100})
	require.NoError(t, err)
	_, err = f.service.Override(result.Trade.ID, map[int64]string{
		result.Report.AlertIDs[0]: "approved",
	})
	require.NoError(t, err)

	_, err = f.service.Override(result.Trade.ID, map[int64]string{
		result.Report.AlertIDs[0]: "again",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelGatedTrade(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	attachRule(t, f, itExposureRule(50))

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100})
	require.NoError(t, err)
	require.Equal(t, StatusAlert, result.Trade.Status)

	trade, err := f.service.Cancel(result.Trade.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, trade.Status)
	assert.Equal(t, 100000.0, f.fundCash(t), "cancel must not move money")
	holding, err := f.holdings.Get(f.fundID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), holding.Shares)

	alert, err := f.alertRepo.GetByID(result.Report.AlertIDs[0])
	require.NoError(t, err)
	assert.Equal(t, alerts.StatusCancelled, alert.Status)

	scope, err := f.staging.GetScope(f.fundID, result.Trade.ID)
	require.NoError(t, err)
	assert.Empty(t, scope, "scope drained on cancel")

	_, err = f.service.Cancel(result.Trade.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEvaluationErrorParksTrade(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	// NVDA has no shares outstanding on record, so the ownership rule
	// cannot reach a verdict for it.
	testdb.SeedEquity(t, f.conn, "NVDA", "NVIDIA Corp", "Information Technology", "US", nil, 100)
	threshold := 5.0
	attachRule(t, f, rules.Rule{
		Name:            "Ownership cap",
		EvaluateOnTrade: true,
		RuleLogic:       "holdings.ticker = 'NVDA'",
		Denominator:     rules.DenominatorSharesOutstanding,
		AlertIf:         rules.AlertIfAbove,
		AlertPercent:    &threshold,
		IsActive:        true,
	})

	result, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "NVDA", Side: SideBuy, Shares: 100})
	require.NoError(t, err)

	require.NotNil(t, result.Trade)
	assert.Equal(t, StatusCompliance, result.Trade.Status)
	assert.Contains(t, result.Trade.Reason, "shares outstanding unavailable for NVDA")

	scope, err := f.staging.GetScope(f.fundID, result.Trade.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, scope, "parked trade keeps its scope")
}

func TestConcurrentBuysCannotDoubleSpend(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()
	fundID := testdb.SeedFund(t, f.conn, "Gamma Fund", 20000)

	// Two $15,000 buys against $20,000: only one can settle.
	results := make(chan *SubmitResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.service.Submit(SubmitRequest{
				FundID: fundID, Ticker: "AAPL", Side: SideBuy, Shares: 100,
			})
			assert.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	processed, invalid := 0, 0
	for result := range results {
		require.NotNil(t, result.Trade)
		switch result.Trade.Status {
		case StatusProcessed:
			processed++
		case StatusInvalid:
			invalid++
			assert.Contains(t, result.Trade.Reason, "Insufficient cash")
		}
	}
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, invalid)

	fund, err := f.funds.GetByID(fundID)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, fund.Cash)
	holding, err := f.holdings.Get(fundID, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.Equal(t, int64(100), holding.Shares)
}

func TestGetByFundNewestFirst(t *testing.T) {
	f, cleanup := newTradingFixture(t)
	defer cleanup()

	first, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "AAPL", Side: SideBuy, Shares: 10})
	require.NoError(t, err)
	second, err := f.service.Submit(SubmitRequest{FundID: f.fundID, Ticker: "MSFT", Side: SideSell, Shares: 100})
	require.NoError(t, err)

	list, err := f.service.GetByFund(f.fundID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Trade.ID, list[0].ID)
	assert.Equal(t, first.Trade.ID, list[1].ID)
}
