package providers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/store/sqlite"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Name() model.Source { return model.SourceWorldBank }

func (p *countingProvider) FetchSeries(ctx context.Context, indicator string, countries []string, fromYear, toYear int) ([]model.Observation, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []model.Observation{{Source: model.SourceWorldBank, Indicator: indicator, CountryISO3: countries[0], Year: 2020, Value: float64(p.calls)}}, nil
}

func TestCacheKey_IgnoresCountryOrderAndCase(t *testing.T) {
	a := CacheKey(model.SourceWorldBank, "SH.STA.MMRT", []string{"npl", "IND", " BGD", "IND"}, 0, 0)
	b := CacheKey(model.SourceWorldBank, "SH.STA.MMRT", []string{"BGD", "IND", "NPL"}, 0, 0)
	assert.Equal(t, a, b)
	assert.Equal(t, "worldbank|SH.STA.MMRT|BGD;IND;NPL|0-0", a)
	assert.NotEqual(t, a, CacheKey(model.SourceWorldBank, "SH.STA.MMRT", []string{"BGD", "IND", "NPL"}, 2000, 2024))
}

func TestCached_ServesFromStoreUntilExpiry(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer st.Close()

	logger, _ := test.NewNullLogger()
	inner := &countingProvider{}
	cached := Cached(inner, st, time.Hour, logger)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	ctx := context.Background()
	first, err := cached.FetchSeries(ctx, "EG.ELC.ACCS.ZS", []string{"IND"}, 0, 0)
	require.NoError(t, err)
	second, err := cached.FetchSeries(ctx, "EG.ELC.ACCS.ZS", []string{"IND"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	now = now.Add(2 * time.Hour)
	third, err := cached.FetchSeries(ctx, "EG.ELC.ACCS.ZS", []string{"IND"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2.0, third[0].Value)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	logger, _ := test.NewNullLogger()
	inner := &countingProvider{err: errors.New("boom")}
	cached := Cached(inner, nil, time.Hour, logger)

	_, err := cached.FetchSeries(context.Background(), "X", []string{"IND"}, 0, 0)
	assert.Error(t, err)
	assert.Equal(t, model.SourceWorldBank, cached.Name())
}

func TestCached_ZeroTTLBypassesStore(t *testing.T) {
	inner := &countingProvider{}
	cached := Cached(inner, nil, 0, logrus.New())

	for i := 0; i < 2; i++ {
		_, err := cached.FetchSeries(context.Background(), "X", []string{"IND"}, 0, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}
