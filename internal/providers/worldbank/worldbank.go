package worldbank

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"sdgmonitor/internal/httpclient"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/providers"
)

const (
	defaultBaseURL      = "https://api.worldbank.org/v2"
	defaultSeriesPath   = "country/{countries}/indicator/{indicator}"
	defaultMetadataPath = "indicator/{indicator}"
	defaultPerPage      = 20000
	defaultMaxPages     = 50
)

var ErrNoData = fmt.Errorf("worldbank: %w", providers.ErrNoData)

type Config struct {
	BaseURL      string
	SeriesPath   string
	MetadataPath string
	PerPage      int
	MaxPages     int
	HTTP         httpclient.Config
}

type Provider struct {
	config Config
	client *httpclient.Client
}

func NewWithConfig(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("worldbank: invalid base url: %w", err)
	}
	if strings.TrimSpace(cfg.SeriesPath) == "" {
		cfg.SeriesPath = defaultSeriesPath
	}
	if strings.TrimSpace(cfg.MetadataPath) == "" {
		cfg.MetadataPath = defaultMetadataPath
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Provider{
		config: cfg,
		client: httpclient.New(cfg.HTTP),
	}, nil
}

func (p *Provider) Name() model.Source {
	return model.SourceWorldBank
}

// FetchSeries walks every page of the WDI response for the given countries.
func (p *Provider) FetchSeries(ctx context.Context, indicator string, countries []string, fromYear, toYear int) ([]model.Observation, error) {
	indicator = strings.TrimSpace(indicator)
	if indicator == "" {
		return nil, errors.New("worldbank: indicator code is required")
	}
	if len(countries) == 0 {
		return nil, errors.New("worldbank: no countries requested")
	}

	endpoint := p.config.BaseURL + "/" + p.seriesPath(indicator, countries)
	params := url.Values{}
	params.Set("format", "json")
	params.Set("per_page", strconv.Itoa(p.config.PerPage))
	if fromYear > 0 && toYear > 0 {
		params.Set("date", fmt.Sprintf("%d:%d", fromYear, toYear))
	}

	observations := make([]model.Observation, 0)
	seen := make(map[string]struct{})
	for page := 1; page <= p.config.MaxPages; page++ {
		params.Set("page", strconv.Itoa(page))
		body, err := p.client.Get(ctx, endpoint, params, "application/json")
		if err != nil {
			return nil, fmt.Errorf("worldbank: %s: %w", indicator, err)
		}

		rows, pages, err := parseSeriesPage(body, indicator)
		if err != nil {
			if errors.Is(err, ErrNoData) && len(observations) > 0 {
				break
			}
			return nil, err
		}
		for _, observation := range rows {
			id := observation.CountryISO3 + "|" + strconv.Itoa(observation.Year)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			observations = append(observations, observation)
		}
		if page >= pages {
			break
		}
	}

	sort.SliceStable(observations, func(i, j int) bool {
		if observations[i].CountryISO3 != observations[j].CountryISO3 {
			return observations[i].CountryISO3 < observations[j].CountryISO3
		}
		return observations[i].Year < observations[j].Year
	})
	return observations, nil
}

// Metadata fetches the WDI description of an indicator.
func (p *Provider) Metadata(ctx context.Context, indicator string) (model.IndicatorMeta, error) {
	indicator = strings.TrimSpace(indicator)
	if indicator == "" {
		return model.IndicatorMeta{}, errors.New("worldbank: indicator code is required")
	}
	path := strings.ReplaceAll(p.config.MetadataPath, "{indicator}", url.PathEscape(indicator))
	body, err := p.client.Get(ctx, p.config.BaseURL+"/"+path, url.Values{"format": {"json"}}, "application/json")
	if err != nil {
		return model.IndicatorMeta{}, fmt.Errorf("worldbank: %s: %w", indicator, err)
	}
	return parseMetadata(body, indicator)
}

// MetadataURL is the public link shown next to a definition.
func (p *Provider) MetadataURL(indicator string) string {
	path := strings.ReplaceAll(p.config.MetadataPath, "{indicator}", url.PathEscape(indicator))
	return p.config.BaseURL + "/" + path + "?format=json"
}

func (p *Provider) seriesPath(indicator string, countries []string) string {
	codes := make([]string, 0, len(countries))
	for _, country := range countries {
		if code := strings.ToUpper(strings.TrimSpace(country)); code != "" {
			codes = append(codes, code)
		}
	}
	path := p.config.SeriesPath
	path = strings.ReplaceAll(path, "{countries}", strings.Join(codes, ";"))
	path = strings.ReplaceAll(path, "{indicator}", url.PathEscape(indicator))
	return path
}

// parseSeriesPage decodes one `[meta, rows]` page.
func parseSeriesPage(body []byte, indicator string) ([]model.Observation, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, errors.New("worldbank: invalid json response")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, 0, errors.New("worldbank: unexpected response shape")
	}
	if message := root.Get("0.message.0.value"); message.Exists() {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoData, message.String())
	}
	parts := root.Array()
	if len(parts) < 2 || !parts[1].IsArray() {
		return nil, 0, ErrNoData
	}

	pages := int(parts[0].Get("pages").Int())
	if pages < 1 {
		pages = 1
	}

	rows := parts[1].Array()
	observations := make([]model.Observation, 0, len(rows))
	for _, row := range rows {
		year, ok := parseYear(row.Get("date"))
		if !ok {
			continue
		}
		// null means the year was not reported
		value := row.Get("value")
		if value.Type != gjson.Number {
			continue
		}
		iso3 := strings.ToUpper(strings.TrimSpace(row.Get("countryiso3code").String()))
		if iso3 == "" {
			iso3 = strings.ToUpper(strings.TrimSpace(row.Get("country.id").String()))
		}
		observations = append(observations, model.Observation{
			Source:      model.SourceWorldBank,
			Indicator:   indicator,
			CountryISO3: iso3,
			Country:     model.CountryLabel(iso3, row.Get("country.value").String()),
			Year:        year,
			Value:       value.Float(),
		})
	}
	return observations, pages, nil
}

func parseMetadata(body []byte, indicator string) (model.IndicatorMeta, error) {
	if !gjson.ValidBytes(body) {
		return model.IndicatorMeta{}, errors.New("worldbank: invalid json response")
	}
	meta := gjson.GetBytes(body, "1.0")
	if !meta.Exists() {
		return model.IndicatorMeta{}, fmt.Errorf("%w: no metadata for %s", ErrNoData, indicator)
	}
	result := model.IndicatorMeta{
		ID:                 firstNonEmpty(meta.Get("id").String(), indicator),
		Name:               firstNonEmpty(meta.Get("name").String(), meta.Get("value").String(), indicator),
		Unit:               meta.Get("unit").String(),
		SourceNote:         meta.Get("sourceNote").String(),
		SourceOrganization: meta.Get("sourceOrganization").String(),
		Source:             meta.Get("source.value").String(),
	}
	return result, nil
}

func parseYear(raw gjson.Result) (int, bool) {
	switch raw.Type {
	case gjson.Number:
		return int(raw.Int()), true
	case gjson.String:
		value := strings.TrimSpace(raw.String())
		year, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return year, true
	default:
		return 0, false
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

var _ providers.Provider = (*Provider)(nil)
