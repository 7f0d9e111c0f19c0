package unsdg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"sdgmonitor/internal/cube"
	"sdgmonitor/internal/httpclient"
	"sdgmonitor/internal/logging"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/providers"
)

const (
	defaultBaseURL          = "https://unstats.un.org/SDGAPI/v1/sdg"
	defaultSDMXBaseURL      = "https://data.un.org/ws/rest/data/IAEG-SDGs,DF_SDG_GLH"
	defaultRestCountriesURL = "https://restcountries.com/v3.1"
	defaultCatalogueTTL     = 24 * time.Hour
)

var (
	ErrNoData      = fmt.Errorf("unsdg: %w", providers.ErrNoData)
	ErrUnknownArea = errors.New("unsdg: no M49 code for country")
)

var m49Local = map[string]int{
	"IND": 356, "BGD": 50, "PAK": 586, "LKA": 144, "NPL": 524,
	"CHN": 156, "USA": 840, "BRA": 76, "RUS": 643, "ZAF": 710,
	"IDN": 360, "MEX": 484, "TUR": 792, "GBR": 826, "DEU": 276,
	"FRA": 250, "JPN": 392, "VNM": 704,
}

type Config struct {
	BaseURL          string
	SDMXBaseURL      string
	RestCountriesURL string
	CatalogueTTL     time.Duration
	Scorer           cube.Scorer
	HTTP             httpclient.Config
	Logger           logrus.FieldLogger
}

// Entry is one row of the Goal/Target/Indicator/Series listings.
type Entry struct {
	Code        string
	Title       string
	Description string
}

type Provider struct {
	config Config
	client *httpclient.Client
	now    func() time.Time

	mu    sync.Mutex
	m49   map[string]int
	lists map[string]listEntry
}

type listEntry struct {
	entries   []Entry
	expiresAt time.Time
}

func NewWithConfig(cfg Config) (*Provider, error) {
	var err error
	if cfg.BaseURL, err = normalizeBase(cfg.BaseURL, defaultBaseURL); err != nil {
		return nil, err
	}
	if cfg.SDMXBaseURL, err = normalizeBase(cfg.SDMXBaseURL, defaultSDMXBaseURL); err != nil {
		return nil, err
	}
	if cfg.RestCountriesURL, err = normalizeBase(cfg.RestCountriesURL, defaultRestCountriesURL); err != nil {
		return nil, err
	}
	if cfg.CatalogueTTL == 0 {
		cfg.CatalogueTTL = defaultCatalogueTTL
	}
	if cfg.Scorer == nil {
		cfg.Scorer = cube.DefaultScorer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Log
	}

	m49 := make(map[string]int, len(m49Local))
	for iso3, code := range m49Local {
		m49[iso3] = code
	}
	return &Provider{
		config: cfg,
		client: httpclient.New(cfg.HTTP),
		now:    time.Now,
		m49:    m49,
		lists:  make(map[string]listEntry),
	}, nil
}

func normalizeBase(raw, fallback string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if _, err := url.Parse(raw); err != nil {
		return "", fmt.Errorf("unsdg: invalid base url %q: %w", raw, err)
	}
	return raw, nil
}

func (p *Provider) Name() model.Source {
	return model.SourceUNSDG
}

// Goals lists the 17 goals in numeric order.
func (p *Provider) Goals(ctx context.Context) ([]Entry, error) {
	entries, err := p.list(ctx, "Goal/List", nil, "goals")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, errA := strconv.Atoi(entries[i].Code)
		b, errB := strconv.Atoi(entries[j].Code)
		if errA != nil || errB != nil {
			return entries[i].Code < entries[j].Code
		}
		return a < b
	})
	return entries, nil
}

func (p *Provider) Targets(ctx context.Context, goal string) ([]Entry, error) {
	return p.sortedList(ctx, "Target/List", url.Values{"goal": {strings.TrimSpace(goal)}}, "targets")
}

func (p *Provider) Indicators(ctx context.Context, target string) ([]Entry, error) {
	return p.sortedList(ctx, "Indicator/List", url.Values{"target": {strings.TrimSpace(target)}}, "indicators")
}

func (p *Provider) Series(ctx context.Context, indicator string) ([]Entry, error) {
	return p.sortedList(ctx, "Series/List", url.Values{"indicator": {strings.TrimSpace(indicator)}}, "series")
}

func (p *Provider) sortedList(ctx context.Context, path string, params url.Values, nested string) ([]Entry, error) {
	entries, err := p.list(ctx, path, params, nested)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	return entries, nil
}

func (p *Provider) list(ctx context.Context, path string, params url.Values, nested string) ([]Entry, error) {
	key := path + "?" + params.Encode()
	now := p.now()

	p.mu.Lock()
	cached, ok := p.lists[key]
	p.mu.Unlock()
	if ok && now.Before(cached.expiresAt) {
		return append([]Entry(nil), cached.entries...), nil
	}

	body, err := p.client.Get(ctx, p.config.BaseURL+"/"+path, params, "application/json")
	if err != nil {
		return nil, fmt.Errorf("unsdg: %s: %w", path, err)
	}
	entries, err := parseEntries(body, nested)
	if err != nil {
		return nil, fmt.Errorf("unsdg: %s: %w", path, err)
	}

	if p.config.CatalogueTTL > 0 {
		p.mu.Lock()
		p.lists[key] = listEntry{entries: entries, expiresAt: now.Add(p.config.CatalogueTTL)}
		p.mu.Unlock()
	}
	return append([]Entry(nil), entries...), nil
}

// parseEntries accepts a flat array of rows, or rows that nest their
// children under the given field.
func parseEntries(body []byte, nested string) ([]Entry, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid json response")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, errors.New("unexpected response shape")
	}

	entries := make([]Entry, 0)
	seen := make(map[string]struct{})
	add := func(row gjson.Result) {
		code := strings.TrimSpace(row.Get("code").String())
		if code == "" {
			return
		}
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		entries = append(entries, Entry{
			Code:        code,
			Title:       strings.TrimSpace(row.Get("title").String()),
			Description: strings.TrimSpace(row.Get("description").String()),
		})
	}
	root.ForEach(func(_, row gjson.Result) bool {
		if children := row.Get(nested); nested != "" && children.IsArray() {
			children.ForEach(func(_, child gjson.Result) bool {
				add(child)
				return true
			})
			return true
		}
		add(row)
		return true
	})
	return entries, nil
}

// M49 resolves an ISO3 code to the UN area code, asking restcountries for
// codes outside the built-in table.
func (p *Provider) M49(ctx context.Context, iso3 string) (int, error) {
	iso3 = strings.ToUpper(strings.TrimSpace(iso3))
	if iso3 == "" {
		return 0, ErrUnknownArea
	}

	p.mu.Lock()
	code, ok := p.m49[iso3]
	p.mu.Unlock()
	if ok {
		return code, nil
	}

	body, err := p.client.Get(ctx, p.config.RestCountriesURL+"/alpha/"+url.PathEscape(iso3), nil, "application/json")
	if err != nil {
		if httpclient.IsNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownArea, iso3)
		}
		return 0, fmt.Errorf("unsdg: restcountries %s: %w", iso3, err)
	}
	ccn3 := gjson.GetBytes(body, "0.ccn3")
	if !ccn3.Exists() {
		ccn3 = gjson.GetBytes(body, "ccn3")
	}
	code, err = strconv.Atoi(strings.TrimSpace(ccn3.String()))
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownArea, iso3)
	}

	p.mu.Lock()
	p.m49[iso3] = code
	p.mu.Unlock()
	return code, nil
}

// FetchSeries collects a UN series for each country. Series/Data is tried
// first and the SDMX cube is used when it yields nothing. Countries without
// an M49 code or without data are left out.
func (p *Provider) FetchSeries(ctx context.Context, series string, countries []string, fromYear, toYear int) ([]model.Observation, error) {
	series = strings.TrimSpace(series)
	if series == "" {
		return nil, errors.New("unsdg: series code is required")
	}
	if len(countries) == 0 {
		return nil, errors.New("unsdg: no countries requested")
	}

	observations := make([]model.Observation, 0)
	for _, country := range countries {
		iso3 := strings.ToUpper(strings.TrimSpace(country))
		if iso3 == "" {
			continue
		}
		log := p.config.Logger.WithFields(logrus.Fields{"series": series, "country": iso3})

		area, err := p.M49(ctx, iso3)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.WithError(err).Warn("skipping country without M49 code")
			continue
		}

		rows, err := p.countrySeries(ctx, series, area, fromYear, toYear, log)
		if err != nil {
			return nil, err
		}
		label := model.CountryLabel(iso3, iso3)
		for _, row := range rows {
			row.Source = model.SourceUNSDG
			row.Indicator = series
			row.CountryISO3 = iso3
			row.Country = label
			observations = append(observations, row)
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

func (p *Provider) countrySeries(ctx context.Context, series string, area, fromYear, toYear int, log logrus.FieldLogger) ([]model.Observation, error) {
	rows, err := p.SeriesData(ctx, series, area, fromYear, toYear)
	if err == nil && len(rows) > 0 {
		return rows, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.WithError(err).Debug("series data endpoint failed, trying sdmx")
	}

	rows, err = p.SDMXSeries(ctx, series, area, fromYear, toYear)
	switch {
	case err == nil:
		return rows, nil
	case errors.Is(err, cube.ErrMissingTimeDimension):
		return nil, fmt.Errorf("unsdg: %s for area %d: %w", series, area, err)
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithError(err).Debug("sdmx fallback yielded no data")
		return nil, nil
	}
}

// SeriesData queries the Series/Data endpoint for one area. Rows repeating a
// year keep the first value reported.
func (p *Provider) SeriesData(ctx context.Context, series string, area, fromYear, toYear int) ([]model.Observation, error) {
	params := url.Values{}
	params.Set("seriesCode", series)
	params.Set("area", strconv.Itoa(area))
	if fromYear > 0 && toYear > 0 {
		params.Set("timePeriod", fmt.Sprintf("%d-%d", fromYear, toYear))
	}
	body, err := p.client.Get(ctx, p.config.BaseURL+"/Series/Data", params, "application/json")
	if err != nil {
		return nil, fmt.Errorf("unsdg: series data %s: %w", series, err)
	}
	return parseSeriesData(body)
}

func parseSeriesData(body []byte) ([]model.Observation, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("unsdg: invalid json response")
	}
	root := gjson.ParseBytes(body)
	items := root
	if !root.IsArray() {
		items = root.Get("data")
	}
	if !items.IsArray() {
		return nil, ErrNoData
	}

	observations := make([]model.Observation, 0)
	seen := make(map[int]struct{})
	items.ForEach(func(_, item gjson.Result) bool {
		period := item.Get("timePeriod")
		if !period.Exists() {
			period = item.Get("timePeriodStart")
		}
		year, ok := parseNumber(period)
		if !ok {
			return true
		}
		value, ok := parseNumber(item.Get("value"))
		if !ok {
			return true
		}
		if _, dup := seen[int(year)]; dup {
			return true
		}
		seen[int(year)] = struct{}{}
		observations = append(observations, model.Observation{Year: int(year), Value: value})
		return true
	})
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Year < observations[j].Year
	})
	return observations, nil
}

// SDMXSeries fetches the SDMX cube for one area and extracts the series the
// configured scorer ranks highest.
func (p *Provider) SDMXSeries(ctx context.Context, series string, area, fromYear, toYear int) ([]model.Observation, error) {
	endpoint := fmt.Sprintf("%s/%s.%d.A", p.config.SDMXBaseURL, url.PathEscape(series), area)
	params := url.Values{}
	params.Set("contentType", "json")
	if fromYear > 0 && toYear > 0 {
		params.Set("time", fmt.Sprintf("%d:%d", fromYear, toYear))
	}
	body, err := p.client.Get(ctx, endpoint, params, "application/json")
	if err != nil {
		return nil, fmt.Errorf("unsdg: sdmx %s: %w", series, err)
	}

	c, err := cube.DecodeSDMX(body)
	if err != nil {
		return nil, err
	}
	// an empty cube is no data even when it carries no time dimension
	key, ok := cube.SelectBest(c, p.config.Scorer)
	if !ok {
		return nil, ErrNoData
	}

	lower, upper := fromYear, toYear
	if lower <= 0 {
		lower = math.MinInt
	}
	if upper <= 0 {
		upper = math.MaxInt
	}
	seq, err := cube.ExtractObservations(c, key, lower, upper)
	if err != nil {
		return nil, err
	}
	return cube.Collect(seq), nil
}

func parseNumber(raw gjson.Result) (float64, bool) {
	switch raw.Type {
	case gjson.Number:
		value := raw.Float()
		return value, !math.IsNaN(value) && !math.IsInf(value, 0)
	case gjson.String:
		text := strings.TrimSpace(raw.String())
		if text == "" {
			return 0, false
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		return value, true
	default:
		return 0, false
	}
}

var _ providers.Provider = (*Provider)(nil)
