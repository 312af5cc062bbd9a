package alerts

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundguard/fundguard/internal/events"
	testdb "github.com/fundguard/fundguard/internal/testing"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newAlertFixture(t *testing.T) (*Service, *Repository, int64, func()) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	conn := db.Conn()
	log := testLogger()

	fundID := testdb.SeedFund(t, conn, "Alpha Fund", 100000)
	_, err := conn.Exec(`
		INSERT INTO rules (rule_name, rule_logic, denominator) VALUES ('Test rule', '1=1', 'prohibit')`)
	require.NoError(t, err)

	repo := NewRepository(conn, log)
	manager := events.NewManager(events.NewBus(log), log)
	return NewService(repo, manager, log), repo, fundID, cleanup
}

func pendingAlert(t *testing.T, svc *Service, fundID int64, tradeID *int64) *Alert {
	t.Helper()
	alert, err := svc.Create(Alert{
		RuleID:             1,
		FundID:             fundID,
		TradeID:            tradeID,
		TriggeringHoldings: `[{"ticker":"AAPL","shares":100}]`,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, alert.Status)
	return alert
}

func TestOverridePendingAlert(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()
	alert := pendingAlert(t, svc, fundID, nil)

	overridden, err := svc.Override(alert.ID, "risk-approved")
	require.NoError(t, err)
	assert.Equal(t, StatusOverridden, overridden.Status)
	assert.Equal(t, "risk-approved", overridden.OverrideReason)
}

func TestOverrideRequiresReason(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()
	alert := pendingAlert(t, svc, fundID, nil)

	_, err := svc.Override(alert.ID, "")
	assert.ErrorIs(t, err, ErrEmptyReason)
}

func TestOverrideTwiceConflictsAndKeepsFirstReason(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()
	alert := pendingAlert(t, svc, fundID, nil)

	_, err := svc.Override(alert.ID, "first reason")
	require.NoError(t, err)

	_, err = svc.Override(alert.ID, "second reason")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	current, err := svc.Get(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "first reason", current.OverrideReason)
}

func TestCancelIsIdempotent(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()
	alert := pendingAlert(t, svc, fundID, nil)

	cancelled, err := svc.Cancel(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	again, err := svc.Cancel(alert.ID)
	require.NoError(t, err, "cancelling a cancelled alert is a no-op success")
	assert.Equal(t, StatusCancelled, again.Status)
}

func TestCancelForTrade(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()

	tradeID := int64(7)
	first := pendingAlert(t, svc, fundID, &tradeID)
	second := pendingAlert(t, svc, fundID, &tradeID)
	pendingAlert(t, svc, fundID, nil) // unrelated portfolio alert

	cancelled, err := svc.CancelForTrade(tradeID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{first.ID, second.ID}, cancelled)

	remaining, err := svc.PendingForTrade(tradeID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _, cleanup := newAlertFixture(t)
	defer cleanup()

	_, err := svc.Get(9999)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestListFilters(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()

	tradeID := int64(3)
	pendingAlert(t, svc, fundID, &tradeID)
	portfolioAlert := pendingAlert(t, svc, fundID, nil)
	_, err := svc.Cancel(portfolioAlert.ID)
	require.NoError(t, err)

	all, err := svc.List(Filter{FundID: fundID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.List(Filter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	byTrade, err := svc.List(Filter{TradeID: &tradeID})
	require.NoError(t, err)
	assert.Len(t, byTrade, 1)
}

func TestSummary(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()

	a := pendingAlert(t, svc, fundID, nil)
	b := pendingAlert(t, svc, fundID, nil)
	pendingAlert(t, svc, fundID, nil)

	_, err := svc.Override(a.ID, "ok")
	require.NoError(t, err)
	_, err = svc.Cancel(b.ID)
	require.NoError(t, err)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Pending)
	assert.Equal(t, int64(1), summary.Overridden)
	assert.Equal(t, int64(1), summary.Cancelled)
	assert.Equal(t, int64(3), summary.Last24h)
}

func TestCleanupKeepsPendingAndRecent(t *testing.T) {
	svc, repo, fundID, cleanup := newAlertFixture(t)
	defer cleanup()

	resolved := pendingAlert(t, svc, fundID, nil)
	_, err := svc.Cancel(resolved.ID)
	require.NoError(t, err)
	pendingAlert(t, svc, fundID, nil)

	// Recent alerts survive the retention window
	deleted, err := svc.Cleanup(90)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Age the resolved alert past the window
	_, err = repo.db.Exec(
		`UPDATE alerts SET created_at = datetime('now', '-5 hours', '-120 days') WHERE alert_id = ?`,
		resolved.ID)
	require.NoError(t, err)

	deleted, err = svc.Cleanup(90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, err := svc.List(Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusPending, list[0].Status)
}

func TestDecodeTriggeringHoldings(t *testing.T) {
	svc, _, fundID, cleanup := newAlertFixture(t)
	defer cleanup()
	alert := pendingAlert(t, svc, fundID, nil)

	var rows []map[string]interface{}
	require.NoError(t, alert.DecodeTriggeringHoldings(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "AAPL", rows[0]["ticker"])
}
