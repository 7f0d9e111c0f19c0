package cube

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeSDMX builds a Cube from an SDMX-JSON data message. Series are kept in
// document order.
func DecodeSDMX(payload []byte) (Cube, error) {
	if !gjson.ValidBytes(payload) {
		return Cube{}, errors.New("cube: invalid sdmx json")
	}
	root := gjson.ParseBytes(payload)
	if data := root.Get("data"); data.Exists() && data.Get("dataSets").Exists() {
		root = data
	}

	structure := root.Get("structure")
	if !structure.Exists() {
		structure = root.Get("structures.0")
	}
	dims := structure.Get("dimensions")

	c := Cube{
		SeriesDimensions:      decodeDimensions(dims.Get("series")),
		ObservationDimensions: decodeDimensions(dims.Get("observation")),
	}

	dataSets := root.Get("dataSets").Array()
	if len(dataSets) == 0 {
		return c, nil
	}

	var decodeErr error
	dataSets[0].Get("series").ForEach(func(rawKey, rawSeries gjson.Result) bool {
		key, err := ParseSeriesKey(rawKey.String())
		if err != nil {
			decodeErr = err
			return false
		}
		series := Series{Key: key}
		rawSeries.Get("observations").ForEach(func(obsKey, obsValue gjson.Result) bool {
			indices, err := ParseSeriesKey(obsKey.String())
			if err != nil {
				return true
			}
			series.Observations = append(series.Observations, RawObservation{
				Key:   indices,
				Value: decodeValue(obsValue),
			})
			return true
		})
		c.Series = append(c.Series, series)
		return true
	})
	if decodeErr != nil {
		return Cube{}, decodeErr
	}
	return c, nil
}

func decodeDimensions(raw gjson.Result) []Dimension {
	items := raw.Array()
	dims := make([]Dimension, 0, len(items))
	for _, item := range items {
		dim := Dimension{ID: item.Get("id").String()}
		for _, value := range item.Get("values").Array() {
			dim.Values = append(dim.Values, DimensionValue{
				DimensionID: dim.ID,
				ID:          value.Get("id").String(),
				Name:        localized(value.Get("name")),
			})
		}
		dims = append(dims, dim)
	}
	return dims
}

// localized accepts either a plain name or an SDMX {"en": "..."} map.
func localized(name gjson.Result) string {
	if name.Type == gjson.String {
		return name.String()
	}
	if name.IsObject() {
		if en := name.Get("en"); en.Exists() {
			return en.String()
		}
		var first string
		name.ForEach(func(_, value gjson.Result) bool {
			first = value.String()
			return false
		})
		return first
	}
	return ""
}

func decodeValue(raw gjson.Result) *float64 {
	if !raw.IsArray() {
		return nil
	}
	head := raw.Get("0")
	switch head.Type {
	case gjson.Number:
		v := head.Float()
		return &v
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(head.String()), 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
