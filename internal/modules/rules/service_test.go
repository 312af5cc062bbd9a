package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/fundguard/fundguard/internal/testing"
)

type fakeFundChecker struct {
	existing map[int64]bool
}

func (f *fakeFundChecker) Exists(id int64) (bool, error) {
	return f.existing[id], nil
}

func newTestService(t *testing.T) (*Service, func()) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	repo := NewRepository(db.Conn(), testLogger())
	funds := &fakeFundChecker{existing: map[int64]bool{1: true}}

	_, err := db.Conn().Exec(`INSERT INTO funds (fund_name, cash) VALUES ('Alpha Fund', 100000)`)
	require.NoError(t, err)

	return NewService(repo, funds, testLogger()), cleanup
}

func TestServiceCreateValidatesLogic(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	created, err := svc.Create(sampleRule())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	bad := sampleRule()
	bad.RuleLogic = "ticker = 'A'; DROP TABLE rules"
	_, err = svc.Create(bad)
	assert.Error(t, err)

	bad.RuleLogic = "market_cap > 5"
	_, err = svc.Create(bad)
	assert.Error(t, err)
}

func TestServiceCreateValidatesStructure(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"missing name", func(r *Rule) { r.Name = "" }},
		{"bad denominator", func(r *Rule) { r.Denominator = "gross_assets" }},
		{"missing alert_if", func(r *Rule) { r.AlertIf = "" }},
		{"missing alert_percent", func(r *Rule) { r.AlertPercent = nil }},
		{"percent out of range", func(r *Rule) { r.AlertPercent = pctPtr(150) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := sampleRule()
			tt.mutate(&rule)
			_, err := svc.Create(rule)
			assert.Error(t, err)
		})
	}
}

func TestServiceProhibitNeedsNoThreshold(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	created, err := svc.Create(Rule{
		Name:                "No tobacco",
		EvaluateOnTrade:     true,
		EvaluateOnPortfolio: true,
		RuleLogic:           "issuers.gics_industry = 'Tobacco'",
		Denominator:         DenominatorProhibit,
		IsActive:            true,
	})
	require.NoError(t, err)
	assert.True(t, created.IsProhibit())
}

func TestServiceUpdateNotFound(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	_, err := svc.Update(9999, sampleRule())
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}

func TestServiceAttach(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	rule, err := svc.Create(sampleRule())
	require.NoError(t, err)

	attachment, err := svc.Attach(rule.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), attachment.FundID)

	_, err = svc.Attach(rule.ID, 1)
	assert.True(t, errors.Is(err, ErrAlreadyAttached))

	_, err = svc.Attach(rule.ID, 42)
	assert.True(t, errors.Is(err, ErrFundNotFound))

	_, err = svc.Attach(9999, 1)
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}

func TestServiceDeleteNotFound(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	err := svc.Delete(9999)
	assert.True(t, errors.Is(err, ErrRuleNotFound))
}
