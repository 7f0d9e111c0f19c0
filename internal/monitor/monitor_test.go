package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/progress"
	"sdgmonitor/internal/providers"
	"sdgmonitor/internal/store/sqlite"
)

type fakeProvider struct {
	mu     sync.Mutex
	series map[string][]model.Observation
	errs   map[string]error
	calls  []string
}

func (f *fakeProvider) Name() model.Source { return model.SourceWorldBank }

func (f *fakeProvider) FetchSeries(ctx context.Context, indicator string, countries []string, fromYear, toYear int) ([]model.Observation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, indicator)
	f.mu.Unlock()
	if err := f.errs[indicator]; err != nil {
		return nil, err
	}
	return f.series[indicator], nil
}

func obs(indicator, iso3 string, year int, value float64) model.Observation {
	return model.Observation{
		Source:      model.SourceWorldBank,
		Indicator:   indicator,
		CountryISO3: iso3,
		Country:     model.CountryLabel(iso3, iso3),
		Year:        year,
		Value:       value,
	}
}

func goal3() []model.Indicator {
	return IndicatorsForGoal(DefaultCatalogue(), 3)
}

func newTestMonitor(p providers.Provider, opts Options) *Monitor {
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	m := New(p, opts)
	m.newID = func() string { return "run-1" }
	m.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return m
}

func TestOverview(t *testing.T) {
	provider := &fakeProvider{series: map[string][]model.Observation{
		"SH.STA.MMRT": {
			obs("SH.STA.MMRT", "IND", 2014, 210),
			obs("SH.STA.MMRT", "IND", 2015, 200),
			obs("SH.STA.MMRT", "IND", 2023, 100),
			obs("SH.STA.MMRT", "BGD", 2016, 170),
			obs("SH.STA.MMRT", "BGD", 2020, 123),
			obs("SH.STA.MMRT", "NPL", 2014, 180),
		},
	}}
	m := newTestMonitor(provider, Options{Workers: 2})

	overview, err := m.Overview(context.Background(), Request{
		Goal:       3,
		Focal:      "IND",
		Countries:  []string{"IND", "BGD", "NPL"},
		Indicators: goal3(),
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", overview.Run.ID)
	assert.Equal(t, "Good Health & Well-Being", overview.GoalName)
	require.Len(t, overview.Rows, 1)
	row := overview.Rows[0]
	assert.Equal(t, "SH.STA.MMRT", row.Indicator.Code)
	assert.Equal(t, &Point{Year: 2015, Value: 200}, row.Baseline)
	assert.Equal(t, &Point{Year: 2023, Value: 100}, row.Latest)
	assert.InDelta(t, -100, *row.Delta, 1e-9)
	assert.Equal(t, progress.OnTrack, row.Result.Status)
	assert.InDelta(t, 100.0/130.0, *row.Result.Ratio, 1e-9)

	require.Len(t, overview.Missing, 1)
	assert.Equal(t, "SP.DYN.IMRT.IN", overview.Missing[0].Code)

	require.Len(t, overview.Snapshots, 1)
	values := overview.Snapshots[0].Values
	require.Len(t, values, 3)
	assert.Equal(t, []string{"IND", "BGD", "NPL"}, []string{values[0].CountryISO3, values[1].CountryISO3, values[2].CountryISO3})

	require.Len(t, overview.Assessments, 3)
	byCountry := map[string]model.Assessment{}
	for _, a := range overview.Assessments {
		byCountry[a.CountryISO3] = a
	}
	assert.Equal(t, "on-track", byCountry["IND"].Status)
	assert.Equal(t, 2016, *byCountry["BGD"].BaselineYear)
	assert.Equal(t, "insufficient-data", byCountry["NPL"].Status)
	assert.Nil(t, byCountry["NPL"].BaselineYear)
}

func TestOverview_TrendOnlyAndHigherIsBetter(t *testing.T) {
	provider := &fakeProvider{series: map[string][]model.Observation{
		"EG.ELC.ACCS.ZS": {
			obs("EG.ELC.ACCS.ZS", "IND", 2015, 88),
			obs("EG.ELC.ACCS.ZS", "IND", 2021, 99),
			obs("EG.ELC.ACCS.ZS", "PAK", 2021, 95),
		},
		"EG.FEC.RNEW.ZS": {
			obs("EG.FEC.RNEW.ZS", "IND", 2015, 36),
			obs("EG.FEC.RNEW.ZS", "IND", 2020, 33),
		},
	}}
	m := newTestMonitor(provider, Options{})

	overview, err := m.Overview(context.Background(), Request{
		Goal:       7,
		Countries:  []string{"IND", "PAK"},
		Indicators: IndicatorsForGoal(DefaultCatalogue(), 7),
	})
	require.NoError(t, err)
	assert.Equal(t, "IND", overview.Run.Focal)
	require.Len(t, overview.Rows, 2)
	assert.Equal(t, progress.OnTrack, overview.Rows[0].Result.Status)
	assert.Equal(t, progress.TrendOnly, overview.Rows[1].Result.Status)
	assert.Nil(t, overview.Rows[1].Result.Ratio)

	values := overview.Snapshots[0].Values
	assert.Equal(t, "IND", values[0].CountryISO3)
	assert.Equal(t, "PAK", values[1].CountryISO3)
}

func TestOverview_NoDataIsMissingOtherErrorsFail(t *testing.T) {
	provider := &fakeProvider{errs: map[string]error{
		"SH.STA.MMRT":    fmt.Errorf("worldbank: %w", providers.ErrNoData),
		"SP.DYN.IMRT.IN": errors.New("connection reset"),
	}}
	m := newTestMonitor(provider, Options{})

	_, err := m.Overview(context.Background(), Request{Goal: 3, Countries: []string{"IND"}, Indicators: goal3()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SP.DYN.IMRT.IN")

	delete(provider.errs, "SP.DYN.IMRT.IN")
	overview, err := m.Overview(context.Background(), Request{Goal: 3, Countries: []string{"IND"}, Indicators: goal3()})
	require.NoError(t, err)
	assert.Empty(t, overview.Rows)
	assert.Len(t, overview.Missing, 2)
}

func TestOverview_RequiresCountries(t *testing.T) {
	m := newTestMonitor(&fakeProvider{}, Options{})
	_, err := m.Overview(context.Background(), Request{Goal: 3, Indicators: goal3()})
	assert.Error(t, err)
}

func TestOverview_SavesRun(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	defer st.Close()

	provider := &fakeProvider{series: map[string][]model.Observation{
		"SH.STA.MMRT": {obs("SH.STA.MMRT", "IND", 2015, 200), obs("SH.STA.MMRT", "IND", 2020, 170)},
	}}
	m := newTestMonitor(provider, Options{Store: st})

	_, err = m.Overview(context.Background(), Request{Goal: 3, Focal: "IND", Countries: []string{"IND"}, Indicators: goal3()})
	require.NoError(t, err)

	run, assessments, err := st.LatestRun(context.Background(), model.SourceWorldBank, "IND", 3)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	require.Len(t, assessments, 1)
	assert.Equal(t, "needs-acceleration", assessments[0].Status)
}

func TestDrilldown(t *testing.T) {
	provider := &fakeProvider{series: map[string][]model.Observation{
		"SH.STA.MMRT": {
			obs("SH.STA.MMRT", "IND", 2012, 230),
			obs("SH.STA.MMRT", "IND", 2016, 180),
			obs("SH.STA.MMRT", "IND", 2018, 150),
			obs("SH.STA.MMRT", "IND", 2020, 120),
			obs("SH.STA.MMRT", "BGD", 2016, 170),
		},
	}}
	m := newTestMonitor(provider, Options{})

	drill, err := m.Drilldown(context.Background(), DrilldownRequest{
		Indicator: "SH.STA.MMRT",
		Focal:     "IND",
		Countries: []string{"IND", "BGD"},
		FromYear:  2014,
		ToYear:    2019,
		Smooth:    true,
	})
	require.NoError(t, err)
	require.Len(t, drill.Observations, 3)
	assert.Equal(t, &Point{Year: 2016, Value: 180}, drill.Baseline)
	assert.Equal(t, &Point{Year: 2018, Value: 150}, drill.Latest)
	assert.InDelta(t, -30, *drill.Delta, 1e-9)

	require.Len(t, drill.Smoothed, 3)
	assert.Equal(t, "BGD", drill.Smoothed[0].CountryISO3)
	assert.InDelta(t, 165, drill.Smoothed[2].Value, 1e-9)
}

func TestDrilldown_NoDataAndBadRange(t *testing.T) {
	provider := &fakeProvider{errs: map[string]error{"X": fmt.Errorf("worldbank: %w", providers.ErrNoData)}}
	m := newTestMonitor(provider, Options{})

	drill, err := m.Drilldown(context.Background(), DrilldownRequest{Indicator: "X", Countries: []string{"IND"}})
	require.NoError(t, err)
	assert.Empty(t, drill.Observations)
	assert.Nil(t, drill.Latest)

	_, err = m.Drilldown(context.Background(), DrilldownRequest{Indicator: "X", Countries: []string{"IND"}, FromYear: 2020, ToYear: 2010})
	assert.Error(t, err)
}

type fakeMetadata map[string]model.IndicatorMeta

func (f fakeMetadata) Metadata(ctx context.Context, code string) (model.IndicatorMeta, error) {
	meta, ok := f[code]
	if !ok {
		return model.IndicatorMeta{}, errors.New("not found")
	}
	return meta, nil
}

func TestDefinitions(t *testing.T) {
	m := newTestMonitor(&fakeProvider{}, Options{})
	indicators := append(goal3(), model.Indicator{Label: "Custom row"})
	source := fakeMetadata{
		"SH.STA.MMRT":    {Name: "Maternal mortality ratio", Unit: "per 100k", SourceNote: "Deaths per 100,000 live births.", Source: "World Development Indicators", SourceOrganization: "WHO"},
		"SP.DYN.IMRT.IN": {SourceOrganization: " UN IGME "},
	}

	definitions, err := m.Definitions(context.Background(), source, indicators)
	require.NoError(t, err)
	require.Len(t, definitions, 3)
	assert.Equal(t, Definition{Indicator: "Maternal mortality ratio", Code: "SH.STA.MMRT", Unit: "per 100k", Source: "World Development Indicators", Short: "Deaths per 100,000 live births."}, definitions[0])
	assert.Equal(t, "Infant mortality (per 1,000)", definitions[1].Indicator)
	assert.Equal(t, "UN IGME", definitions[1].Source)
	assert.Equal(t, "—", definitions[2].Code)
	assert.Equal(t, "—", definitions[2].Source)
}
