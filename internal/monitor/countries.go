package monitor

import (
	"fmt"
	"strings"
)

const DefaultFocal = "IND"

// Preset is a named peer group.
type Preset struct {
	Name      string
	Countries []string
}

var presets = []Preset{
	{Name: "SAARC", Countries: []string{"BGD", "PAK", "LKA", "NPL"}},
	{Name: "BRICS", Countries: []string{"BRA", "RUS", "CHN", "ZAF"}},
	{Name: "G20 sample", Countries: []string{"USA", "CHN", "JPN", "DEU", "GBR", "FRA"}},
}

func Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, preset := range presets {
		out[i] = Preset{Name: preset.Name, Countries: append([]string(nil), preset.Countries...)}
	}
	return out
}

// LookupPreset matches names case-insensitively, so "g20 sample" works.
func LookupPreset(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	for _, preset := range Presets() {
		if strings.EqualFold(preset.Name, name) {
			return preset, true
		}
	}
	return Preset{}, false
}

// Countries returns the focal country followed by the preset peers and the
// manual peers, without duplicates. An empty preset contributes nothing.
func Countries(focal, preset string, manual []string) ([]string, error) {
	focal = normalizeISO3(focal)
	if focal == "" {
		focal = DefaultFocal
	}

	var peers []string
	if strings.TrimSpace(preset) != "" {
		found, ok := LookupPreset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown peer preset: %q", preset)
		}
		peers = append(peers, found.Countries...)
	}
	peers = append(peers, manual...)

	countries := []string{focal}
	seen := map[string]struct{}{focal: {}}
	for _, peer := range peers {
		iso3 := normalizeISO3(peer)
		if iso3 == "" {
			continue
		}
		if _, dup := seen[iso3]; dup {
			continue
		}
		if len(iso3) != 3 {
			return nil, fmt.Errorf("invalid ISO3 country code: %q", peer)
		}
		seen[iso3] = struct{}{}
		countries = append(countries, iso3)
	}
	return countries, nil
}

func normalizeISO3(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
