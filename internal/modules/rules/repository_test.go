package rules

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/fundguard/fundguard/internal/testing"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func pctPtr(v float64) *float64 {
	return &v
}

func sampleRule() Rule {
	return Rule{
		Name:                "Sector concentration",
		AlertMessage:        "Sector exposure over limit",
		EvaluateOnTrade:     true,
		EvaluateOnPortfolio: true,
		RuleLogic:           "issuers.gics_sector = 'Energy'",
		Denominator:         DenominatorTotalAssets,
		AlertIf:             AlertIfAbove,
		AlertPercent:        pctPtr(25),
		IsActive:            true,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	created, err := repo.Create(sampleRule())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Sector concentration", created.Name)
	assert.Equal(t, DenominatorTotalAssets, created.Denominator)
	assert.Equal(t, AlertIfAbove, created.AlertIf)
	require.NotNil(t, created.AlertPercent)
	assert.Equal(t, 25.0, *created.AlertPercent)
	assert.True(t, created.EvaluateOnTrade)
	assert.True(t, created.IsActive)

	fetched, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, created.ID, fetched.ID)

	missing, err := repo.GetByID(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryCreateDefaultsLogic(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	rule := sampleRule()
	rule.RuleLogic = ""
	created, err := repo.Create(rule)
	require.NoError(t, err)
	assert.Equal(t, "1=1", created.RuleLogic)
}

func TestRepositoryProhibitRule(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	created, err := repo.Create(Rule{
		Name:                "No tobacco",
		EvaluateOnTrade:     true,
		EvaluateOnPortfolio: true,
		RuleLogic:           "issuers.gics_industry = 'Tobacco'",
		Denominator:         DenominatorProhibit,
		IsActive:            true,
	})
	require.NoError(t, err)
	assert.True(t, created.IsProhibit())
	assert.Empty(t, created.AlertIf)
	assert.Nil(t, created.AlertPercent)
}

func TestRepositoryUpdate(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	created, err := repo.Create(sampleRule())
	require.NoError(t, err)

	modified := *created
	modified.Name = "Sector concentration v2"
	modified.AlertPercent = pctPtr(30)
	updated, err := repo.Update(created.ID, modified)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Sector concentration v2", updated.Name)
	assert.Equal(t, 30.0, *updated.AlertPercent)

	gone, err := repo.Update(9999, modified)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRepositoryAttachments(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	_, err := db.Conn().Exec(`INSERT INTO funds (fund_name, cash) VALUES ('Alpha Fund', 100000)`)
	require.NoError(t, err)

	rule, err := repo.Create(sampleRule())
	require.NoError(t, err)

	attachment, err := repo.Attach(rule.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, attachment)
	assert.Equal(t, rule.ID, attachment.RuleID)
	assert.Equal(t, int64(1), attachment.FundID)
	assert.True(t, attachment.IsActive)

	attached, err := repo.IsAttached(rule.ID, 1)
	require.NoError(t, err)
	assert.True(t, attached)

	// Double attach violates the unique constraint
	_, err = repo.Attach(rule.ID, 1)
	assert.Error(t, err)

	list, err := repo.GetAttachmentsForRule(rule.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Detach(rule.ID, 1))
	attached, err = repo.IsAttached(rule.ID, 1)
	require.NoError(t, err)
	assert.False(t, attached)

	// Detach is idempotent
	assert.NoError(t, repo.Detach(rule.ID, 1))
}

func TestRepositoryGetActiveForFund(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	_, err := db.Conn().Exec(`INSERT INTO funds (fund_name, cash) VALUES ('Alpha Fund', 100000)`)
	require.NoError(t, err)

	tradeOnly := sampleRule()
	tradeOnly.Name = "Trade only"
	tradeOnly.EvaluateOnPortfolio = false
	r1, err := repo.Create(tradeOnly)
	require.NoError(t, err)

	portfolioOnly := sampleRule()
	portfolioOnly.Name = "Portfolio only"
	portfolioOnly.EvaluateOnTrade = false
	r2, err := repo.Create(portfolioOnly)
	require.NoError(t, err)

	inactive := sampleRule()
	inactive.Name = "Inactive"
	inactive.IsActive = false
	r3, err := repo.Create(inactive)
	require.NoError(t, err)

	unattached := sampleRule()
	unattached.Name = "Unattached"
	_, err = repo.Create(unattached)
	require.NoError(t, err)

	for _, id := range []int64{r1.ID, r2.ID, r3.ID} {
		_, err := repo.Attach(id, 1)
		require.NoError(t, err)
	}

	tradeRules, err := repo.GetActiveForFund(1, true)
	require.NoError(t, err)
	require.Len(t, tradeRules, 1)
	assert.Equal(t, "Trade only", tradeRules[0].Name)

	portfolioRules, err := repo.GetActiveForFund(1, false)
	require.NoError(t, err)
	require.Len(t, portfolioRules, 1)
	assert.Equal(t, "Portfolio only", portfolioRules[0].Name)
}

func TestRepositoryDeleteCascadesAttachments(t *testing.T) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	defer cleanup()
	repo := NewRepository(db.Conn(), testLogger())

	_, err := db.Conn().Exec(`INSERT INTO funds (fund_name, cash) VALUES ('Alpha Fund', 100000)`)
	require.NoError(t, err)

	rule, err := repo.Create(sampleRule())
	require.NoError(t, err)
	_, err = repo.Attach(rule.ID, 1)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(rule.ID))

	attached, err := repo.IsAttached(rule.ID, 1)
	require.NoError(t, err)
	assert.False(t, attached)

	assert.Error(t, repo.Delete(rule.ID))
}
