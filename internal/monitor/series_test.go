package monitor

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgmonitor/internal/model"
)

func TestValueAtOrAfterAndLatest(t *testing.T) {
	observations := []model.Observation{
		obs("X", "IND", 2019, 4),
		obs("X", "IND", 2013, 1),
		obs("X", "IND", 2016, 2),
		obs("X", "IND", 2021, math.NaN()),
		obs("X", "BGD", 2022, 9),
	}

	baseline, ok := ValueAtOrAfter(observations, "ind", 2015)
	require.True(t, ok)
	assert.Equal(t, Point{Year: 2016, Value: 2}, baseline)

	latest, ok := Latest(observations, "IND")
	require.True(t, ok)
	assert.Equal(t, Point{Year: 2019, Value: 4}, latest)

	_, ok = ValueAtOrAfter(observations, "IND", 2020)
	assert.False(t, ok)
	_, ok = Latest(observations, "NPL")
	assert.False(t, ok)
}

func TestFilterYears(t *testing.T) {
	observations := []model.Observation{obs("X", "IND", 1999, 1), obs("X", "IND", 2005, 2), obs("X", "IND", 2025, 3)}
	assert.Len(t, FilterYears(observations, 2000, 2024), 1)
	assert.Len(t, FilterYears(observations, 2000, 0), 2)
	assert.Len(t, FilterYears(observations, 0, 0), 3)
}

func TestSmooth_TrailingMeanPerCountry(t *testing.T) {
	observations := []model.Observation{
		obs("X", "IND", 2003, 30),
		obs("X", "IND", 2001, 10),
		obs("X", "BGD", 2001, 100),
		obs("X", "IND", 2002, 20),
		obs("X", "IND", 2004, 70),
	}

	smoothed := Smooth(observations, 3)
	require.Len(t, smoothed, 5)

	var values []float64
	for _, observation := range smoothed {
		values = append(values, observation.Value)
	}
	assert.Equal(t, []float64{100, 10, 15, 20, 40}, values)
	assert.Equal(t, 30.0, observations[0].Value)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value *float64
		want  string
	}{
		{name: "missing", value: nil, want: "—"},
		{name: "nan", value: model.Float(math.NaN()), want: "—"},
		{name: "inf", value: model.Float(math.Inf(-1)), want: "—"},
		{name: "small", value: model.Float(3.14159), want: "3.14"},
		{name: "thousands", value: model.Float(1234567.891), want: "1,234,567.89"},
		{name: "negative", value: model.Float(-1500), want: "-1,500.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.value))
		})
	}
}

func TestShort(t *testing.T) {
	assert.Equal(t, "short text", Short("short text", 320))
	assert.Equal(t, "the quick…", Short("the quick brown fox", 12))
	assert.Equal(t, "abcdef…", Short("abcdefghij", 6))

	long := strings.Repeat("word ", 100)
	shortened := Short(long, 320)
	assert.True(t, strings.HasSuffix(shortened, "…"))
	assert.LessOrEqual(t, len([]rune(shortened)), 321)
}
