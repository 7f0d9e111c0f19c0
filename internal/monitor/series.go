package monitor

import (
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"sdgmonitor/internal/model"
)

const missing = "—"

type Point struct {
	Year  int
	Value float64
}

// ValueAtOrAfter returns the country's earliest observation at or after year.
func ValueAtOrAfter(observations []model.Observation, iso3 string, year int) (Point, bool) {
	var best Point
	found := false
	for _, observation := range observations {
		if !strings.EqualFold(observation.CountryISO3, iso3) || observation.Year < year || !finite(observation.Value) {
			continue
		}
		if !found || observation.Year < best.Year {
			best, found = Point{Year: observation.Year, Value: observation.Value}, true
		}
	}
	return best, found
}

// Latest returns the country's most recent observation.
func Latest(observations []model.Observation, iso3 string) (Point, bool) {
	var best Point
	found := false
	for _, observation := range observations {
		if !strings.EqualFold(observation.CountryISO3, iso3) || !finite(observation.Value) {
			continue
		}
		if !found || observation.Year > best.Year {
			best, found = Point{Year: observation.Year, Value: observation.Value}, true
		}
	}
	return best, found
}

// FilterYears keeps observations with from <= year <= to. Zero bounds are
// open.
func FilterYears(observations []model.Observation, from, to int) []model.Observation {
	out := make([]model.Observation, 0, len(observations))
	for _, observation := range observations {
		if from > 0 && observation.Year < from {
			continue
		}
		if to > 0 && observation.Year > to {
			continue
		}
		out = append(out, observation)
	}
	return out
}

// Smooth replaces each value with the mean of itself and up to window-1
// preceding observations of the same country. The result is ordered by
// country and year.
func Smooth(observations []model.Observation, window int) []model.Observation {
	if window < 1 {
		window = 1
	}
	sorted := append([]model.Observation(nil), observations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CountryISO3 != sorted[j].CountryISO3 {
			return sorted[i].CountryISO3 < sorted[j].CountryISO3
		}
		return sorted[i].Year < sorted[j].Year
	})

	out := make([]model.Observation, len(sorted))
	start := 0
	for i, observation := range sorted {
		if i > 0 && sorted[i-1].CountryISO3 != observation.CountryISO3 {
			start = i
		}
		from := max(start, i-window+1)
		sum := 0.0
		for _, previous := range sorted[from : i+1] {
			sum += previous.Value
		}
		out[i] = observation
		out[i].Value = sum / float64(i+1-from)
	}
	return out
}

// Format renders a value with thousands separators and two decimals, or a
// dash when there is nothing to show.
func Format(value *float64) string {
	if value == nil || !finite(*value) {
		return missing
	}
	return humanize.FormatFloat("#,###.##", *value)
}

// Short cuts text to at most limit characters on a word boundary.
func Short(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i >= 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
