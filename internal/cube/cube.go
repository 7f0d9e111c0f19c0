// Package cube picks a representative series out of a multidimensional
// statistical dataset and extracts its annual observations.
package cube

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"sdgmonitor/internal/model"
)

var ErrMissingTimeDimension = errors.New("cube: no time dimension")

type DimensionValue struct {
	DimensionID string
	ID          string
	Name        string
}

type Dimension struct {
	ID     string
	Values []DimensionValue
}

// SeriesKey holds one value index per series dimension.
type SeriesKey []int

func (k SeriesKey) String() string {
	parts := make([]string, len(k))
	for i, index := range k {
		parts[i] = strconv.Itoa(index)
	}
	return strings.Join(parts, ":")
}

func ParseSeriesKey(raw string) (SeriesKey, error) {
	if strings.TrimSpace(raw) == "" {
		return SeriesKey{}, nil
	}
	parts := strings.Split(raw, ":")
	key := make(SeriesKey, len(parts))
	for i, part := range parts {
		index, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("cube: invalid key %q", raw)
		}
		key[i] = index
	}
	return key, nil
}

type RawObservation struct {
	Key   []int
	Value *float64
}

type Series struct {
	Key          SeriesKey
	Observations []RawObservation
}

// Cube is read-only input. Series keeps the order in which the source listed
// them, which decides ties during selection.
type Cube struct {
	SeriesDimensions      []Dimension
	ObservationDimensions []Dimension
	Series                []Series
}

func (c Cube) lookup(key SeriesKey) (Series, bool) {
	for _, series := range c.Series {
		if slices.Equal(series.Key, key) {
			return series, true
		}
	}
	return Series{}, false
}

// TimePosition returns the index of the observation dimension whose id starts
// with TIME.
func (c Cube) TimePosition() (int, error) {
	for i, dim := range c.ObservationDimensions {
		if strings.HasPrefix(strings.ToUpper(dim.ID), "TIME") {
			return i, nil
		}
	}
	return -1, ErrMissingTimeDimension
}

// SelectBest returns the highest scoring series that has observations.
func SelectBest(c Cube, scorer Scorer) (SeriesKey, bool) {
	var best SeriesKey
	bestScore := 0
	found := false
	for _, series := range c.Series {
		if len(series.Observations) == 0 {
			continue
		}
		score := scorer.Score(c.SeriesDimensions, series.Key)
		if !found || score > bestScore {
			best, bestScore, found = series.Key, score, true
		}
	}
	return best, found
}

// ExtractObservations yields the series' observations within [lower, upper]
// in ascending year order. The sequence can be ranged over repeatedly.
func ExtractObservations(c Cube, key SeriesKey, lower, upper int) (iter.Seq[model.Observation], error) {
	timePos, err := c.TimePosition()
	if err != nil {
		return nil, err
	}
	timeValues := c.ObservationDimensions[timePos].Values
	series, _ := c.lookup(key)

	observations := make([]model.Observation, 0, len(series.Observations))
	for _, raw := range series.Observations {
		if raw.Value == nil || timePos >= len(raw.Key) {
			continue
		}
		index := raw.Key[timePos]
		if index < 0 || index >= len(timeValues) {
			continue
		}
		year, ok := parseYear(timeValues[index].ID)
		if !ok || year < lower || year > upper {
			continue
		}
		observations = append(observations, model.Observation{Year: year, Value: *raw.Value})
	}
	slices.SortStableFunc(observations, func(a, b model.Observation) int {
		return a.Year - b.Year
	})

	return func(yield func(model.Observation) bool) {
		for _, observation := range observations {
			if !yield(observation) {
				return
			}
		}
	}, nil
}

func Collect(seq iter.Seq[model.Observation]) []model.Observation {
	if seq == nil {
		return nil
	}
	return slices.Collect(seq)
}

func parseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if len(value) >= 4 {
		value = value[:4]
	}
	year, err := strconv.Atoi(value)
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}
