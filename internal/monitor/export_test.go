package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/providers"
)

func TestExport(t *testing.T) {
	provider := &fakeProvider{
		series: map[string][]model.Observation{
			"SH.STA.MMRT": {
				obs("SH.STA.MMRT", "IND", 2016, 130),
				obs("SH.STA.MMRT", "BGD", 2015, 180),
				obs("SH.STA.MMRT", "IND", 2015, 145.5),
				obs("SH.STA.MMRT", "IND", 2009, 200),
			},
		},
		errs: map[string]error{"SP.DYN.IMRT.IN": fmt.Errorf("worldbank: %w", providers.ErrNoData)},
	}
	m := newTestMonitor(provider, Options{})
	indicators := append(goal3(), model.Indicator{Label: "Uncoded row"})

	rows, err := m.Export(context.Background(), ExportRequest{
		Countries:  []string{"IND", "BGD"},
		Indicators: indicators,
		FromYear:   2010,
		ToYear:     2024,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bangladesh", rows[0].Observation.Country)
	assert.Equal(t, 2015, rows[1].Observation.Year)
	assert.Equal(t, 2016, rows[2].Observation.Year)
	assert.Equal(t, "Maternal mortality (per 100k)", rows[0].IndicatorName)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Equal(t, "country,iso3,date,value,indicator,indicator_name\n"+
		"Bangladesh,BGD,2015,180,SH.STA.MMRT,Maternal mortality (per 100k)\n"+
		"India,IND,2015,145.5,SH.STA.MMRT,Maternal mortality (per 100k)\n"+
		"India,IND,2016,130,SH.STA.MMRT,Maternal mortality (per 100k)\n", buf.String())
}

func TestExport_OrdersByIndicator(t *testing.T) {
	provider := &fakeProvider{series: map[string][]model.Observation{
		"B.CODE": {obs("B.CODE", "IND", 2020, 1)},
		"A.CODE": {obs("A.CODE", "NPL", 2020, 2), obs("A.CODE", "BGD", 2021, 3)},
	}}
	m := newTestMonitor(provider, Options{})

	rows, err := m.Export(context.Background(), ExportRequest{
		Countries: []string{"IND"},
		Indicators: []model.Indicator{
			{Label: "B", Code: "B.CODE"},
			{Label: "A", Code: "A.CODE"},
		},
	})
	require.NoError(t, err)
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row.Observation.Indicator+"/"+row.Observation.CountryISO3)
	}
	assert.Equal(t, []string{"A.CODE/BGD", "A.CODE/NPL", "B.CODE/IND"}, got)
}

func TestExport_Errors(t *testing.T) {
	boom := errors.New("boom")
	m := newTestMonitor(&fakeProvider{errs: map[string]error{"SH.STA.MMRT": boom}}, Options{})

	_, err := m.Export(context.Background(), ExportRequest{Countries: []string{"IND"}, Indicators: goal3()})
	assert.True(t, errors.Is(err, boom))

	_, err = m.Export(context.Background(), ExportRequest{Countries: []string{"IND"}, FromYear: 2020, ToYear: 2010})
	assert.Error(t, err)
	_, err = m.Export(context.Background(), ExportRequest{})
	assert.Error(t, err)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "sdg_wdi_SDG_3_2000_2024.csv", ExportFileName(3, 2000, 2024))
}
