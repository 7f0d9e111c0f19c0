package model

import "strings"

var countryLabels = map[string]string{
	"IND": "India", "CHN": "China", "USA": "United States", "BGD": "Bangladesh",
	"PAK": "Pakistan", "LKA": "Sri Lanka", "NPL": "Nepal", "BRA": "Brazil",
	"RUS": "Russia", "ZAF": "South Africa", "IDN": "Indonesia", "MEX": "Mexico",
	"TUR": "Türkiye", "GBR": "United Kingdom", "DEU": "Germany", "FRA": "France",
	"JPN": "Japan", "VNM": "Vietnam",
}

// CountryLabel returns the display name for iso3, then fallback, then iso3.
func CountryLabel(iso3, fallback string) string {
	if label, ok := countryLabels[strings.ToUpper(strings.TrimSpace(iso3))]; ok {
		return label
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return iso3
}
