package cube

import "strings"

type Scorer interface {
	Score(dims []Dimension, key SeriesKey) int
}

// TokenScorer favours slices whose codes look like totals and the national
// reporting type. Matching is lexical and approximate.
type TokenScorer struct {
	TotalTokens       []string
	TotalWeight       int
	NationalDimension string
	NationalValues    []string
	NationalWeight    int
}

var (
	DefaultTotalTokens    = []string{"T", "TOTAL", "TOTL", "ALL", "BTSX", "ALLAREA", "ALLAGE"}
	DefaultNationalValues = []string{"G", "NAT", "NATIONAL"}
)

func DefaultScorer() TokenScorer {
	return TokenScorer{
		TotalTokens:       DefaultTotalTokens,
		TotalWeight:       2,
		NationalDimension: "REPORTING_TYPE",
		NationalValues:    DefaultNationalValues,
		NationalWeight:    3,
	}
}

func (s TokenScorer) Score(dims []Dimension, key SeriesKey) int {
	score := 0
	for pos, dim := range dims {
		if pos >= len(key) {
			break
		}
		index := key[pos]
		if index < 0 || index >= len(dim.Values) {
			continue
		}
		value := dim.Values[index]
		valueID := strings.ToUpper(value.ID)
		valueName := strings.ToUpper(value.Name)

		if containsAny(valueID, s.TotalTokens) || containsAny(valueName, s.TotalTokens) {
			score += s.TotalWeight
		}
		if s.NationalDimension != "" && strings.EqualFold(dim.ID, s.NationalDimension) && equalsAny(valueID, s.NationalValues) {
			score += s.NationalWeight
		}
	}
	return score
}

func containsAny(value string, tokens []string) bool {
	for _, token := range tokens {
		if token != "" && strings.Contains(value, strings.ToUpper(token)) {
			return true
		}
	}
	return false
}

func equalsAny(value string, candidates []string) bool {
	for _, candidate := range candidates {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}
