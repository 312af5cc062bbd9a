package holdings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundguard/fundguard/internal/modules/universe"
	testdb "github.com/fundguard/fundguard/internal/testing"
)

func newServiceFixture(t *testing.T) (*Service, int64, func()) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	conn := db.Conn()
	log := testLogger()

	repo := NewRepository(conn, log)
	prices := universe.NewPriceRepository(conn, log)
	securities := universe.NewSecurityRepository(conn, log)
	service := NewService(repo, prices, securities, log)

	fundID := testdb.SeedFund(t, conn, "Alpha Fund", 100000)
	testdb.SeedEquity(t, conn, "AAPL", "Apple Inc", "Information Technology", "US", nil, 150)
	testdb.SeedEquity(t, conn, "MSFT", "Microsoft Corp", "Information Technology", "US", nil, 300)
	testdb.SeedHolding(t, conn, fundID, "AAPL", 1000)
	testdb.SeedHolding(t, conn, fundID, "MSFT", 500)

	return service, fundID, cleanup
}

func TestGetFundHoldingsWithValues(t *testing.T) {
	service, fundID, cleanup := newServiceFixture(t)
	defer cleanup()

	rows, err := service.GetFundHoldingsWithValues(fundID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byTicker := map[string]HoldingWithValue{}
	for _, hv := range rows {
		byTicker[hv.Ticker] = hv
	}

	aapl := byTicker["AAPL"]
	assert.Equal(t, "Apple Inc", aapl.SecurityName)
	require.NotNil(t, aapl.Price)
	assert.InDelta(t, 150, *aapl.Price, 0.001)
	require.NotNil(t, aapl.MarketValue)
	assert.InDelta(t, 150000, *aapl.MarketValue, 0.01)
}

func TestTotalMarketValueSkipsUnpricedTickers(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	conn := db.Conn()
	log := testLogger()

	repo := NewRepository(conn, log)
	prices := universe.NewPriceRepository(conn, log)
	securities := universe.NewSecurityRepository(conn, log)
	service := NewService(repo, prices, securities, log)

	fundID := testdb.SeedFund(t, conn, "Beta Fund", 50000)
	testdb.SeedEquity(t, conn, "AAPL", "Apple Inc", "Information Technology", "US", nil, 150)
	issuerID := testdb.SeedIssuer(t, conn, "NewCo Inc", "Industrials", "US")
	testdb.SeedSecurity(t, conn, "NEWX", "NewCo Inc", issuerID, nil)
	testdb.SeedHolding(t, conn, fundID, "AAPL", 100)
	testdb.SeedHolding(t, conn, fundID, "NEWX", 50)

	total, missing, err := service.TotalMarketValue(fundID)
	require.NoError(t, err)
	assert.InDelta(t, 15000, total, 0.01)
	assert.Equal(t, []string{"NEWX"}, missing)
}
