package funds

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/fundguard/fundguard/internal/testing"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

type fakeValuer struct {
	total   float64
	missing []string
}

func (f *fakeValuer) TotalMarketValue(fundID int64) (float64, []string, error) {
	return f.total, f.missing, nil
}

func newFundService(t *testing.T, valuer HoldingsValuer) (*Service, func()) {
	db, cleanup := testdb.NewTestDB(t, "compliance")
	log := testLogger()
	repo := NewRepository(db.Conn(), log)
	return NewService(repo, valuer, log), cleanup
}

func TestCreateAndGetFund(t *testing.T) {
	service, cleanup := newFundService(t, &fakeValuer{})
	defer cleanup()

	created, err := service.Create(Fund{Name: "Alpha Fund", Family: "Alpha Capital", Cash: 100000})
	require.NoError(t, err)
	require.NotNil(t, created)

	got, err := service.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Fund", got.Name)
	assert.Equal(t, "Alpha Capital", got.Family)
	assert.InDelta(t, 100000, got.Cash, 0.001)
}

func TestGetUnknownFund(t *testing.T) {
	service, cleanup := newFundService(t, &fakeValuer{})
	defer cleanup()

	_, err := service.Get(999)
	assert.True(t, errors.Is(err, ErrFundNotFound))
}

func TestUpdateCash(t *testing.T) {
	service, cleanup := newFundService(t, &fakeValuer{})
	defer cleanup()

	created, err := service.Create(Fund{Name: "Alpha Fund", Cash: 100000})
	require.NoError(t, err)

	updated, err := service.UpdateCash(created.ID, 85000)
	require.NoError(t, err)
	assert.InDelta(t, 85000, updated.Cash, 0.001)

	_, err = service.UpdateCash(999, 1)
	assert.True(t, errors.Is(err, ErrFundNotFound))
}

func TestSummaryDerivesAssetBases(t *testing.T) {
	valuer := &fakeValuer{total: 315000.50, missing: []string{"NEWX"}}
	service, cleanup := newFundService(t, valuer)
	defer cleanup()

	created, err := service.Create(Fund{Name: "Alpha Fund", Cash: 100000})
	require.NoError(t, err)

	summary, err := service.Summary(created.ID)
	require.NoError(t, err)

	assert.InDelta(t, 315000.50, summary.HoldingsValue, 0.001)
	assert.InDelta(t, 415000.50, summary.TotalAssets, 0.001)
	assert.Equal(t, summary.TotalAssets, summary.NetAssets)
	assert.InDelta(t, 315000.50, summary.TotalAssetsExCash, 0.001)
	assert.Equal(t, []string{"NEWX"}, summary.UnpricedTickers)
}
