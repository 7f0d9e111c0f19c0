package cube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgmonitor/internal/model"
)

const sdmxFixture = `{
  "dataSets": [{
    "series": {
      "0:1": {"observations": {"0": [12.5], "1": ["13.1"], "2": [null]}},
      "1:0": {"observations": {}},
      "0:0": {"observations": {"1": [20, 0], "0": [18]}}
    }
  }],
  "structure": {
    "dimensions": {
      "series": [
        {"id": "SEX", "values": [{"id": "_T", "name": "Both sexes"}, {"id": "F", "name": "Female"}]},
        {"id": "REPORTING_TYPE", "values": [{"id": "G", "name": {"en": "Global"}}, {"id": "N", "name": "National"}]}
      ],
      "observation": [
        {"id": "TIME_PERIOD", "values": [{"id": "2016"}, {"id": "2018"}, {"id": "2020"}]}
      ]
    }
  }
}`

func TestDecodeSDMX(t *testing.T) {
	c, err := DecodeSDMX([]byte(sdmxFixture))
	require.NoError(t, err)

	require.Len(t, c.SeriesDimensions, 2)
	assert.Equal(t, "Global", c.SeriesDimensions[1].Values[0].Name)
	assert.Equal(t, "REPORTING_TYPE", c.SeriesDimensions[1].Values[0].DimensionID)

	require.Len(t, c.Series, 3)
	assert.Equal(t, SeriesKey{0, 1}, c.Series[0].Key)
	assert.Equal(t, SeriesKey{1, 0}, c.Series[1].Key)
	assert.Equal(t, SeriesKey{0, 0}, c.Series[2].Key)
	assert.Empty(t, c.Series[1].Observations)

	first := c.Series[0].Observations
	require.Len(t, first, 3)
	require.NotNil(t, first[1].Value)
	assert.Equal(t, 13.1, *first[1].Value)
	assert.Nil(t, first[2].Value)
}

func TestDecodeSDMX_SelectAndExtract(t *testing.T) {
	c, err := DecodeSDMX([]byte(sdmxFixture))
	require.NoError(t, err)

	key, ok := SelectBest(c, DefaultScorer())
	require.True(t, ok)
	assert.Equal(t, SeriesKey{0, 0}, key)

	seq, err := ExtractObservations(c, key, 2015, 2030)
	require.NoError(t, err)
	assert.Equal(t, []model.Observation{{Year: 2016, Value: 18}, {Year: 2018, Value: 20}}, Collect(seq))
}

func TestDecodeSDMX_DataWrapper(t *testing.T) {
	payload := `{"data": {"dataSets": [{"series": {"0": {"observations": {"0": [1]}}}}],
	  "structures": [{"dimensions": {"series": [{"id": "AGE", "values": [{"id": "ALLAGE"}]}],
	  "observation": [{"id": "TIME_PERIOD", "values": [{"id": "2020"}]}]}}]}}`

	c, err := DecodeSDMX([]byte(payload))
	require.NoError(t, err)
	require.Len(t, c.Series, 1)
	require.Len(t, c.ObservationDimensions, 1)
	assert.Equal(t, "ALLAGE", c.SeriesDimensions[0].Values[0].ID)
}

func TestDecodeSDMX_Invalid(t *testing.T) {
	_, err := DecodeSDMX([]byte(`{"dataSets": [`))
	assert.Error(t, err)

	_, err = DecodeSDMX([]byte(`{"dataSets": [{"series": {"x:y": {}}}]}`))
	assert.Error(t, err)

	c, err := DecodeSDMX([]byte(`{"structure": {}}`))
	require.NoError(t, err)
	assert.Empty(t, c.Series)
}
