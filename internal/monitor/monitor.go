package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sdgmonitor/internal/logging"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/progress"
	"sdgmonitor/internal/providers"
	"sdgmonitor/internal/store"
)

const (
	defaultWorkers   = 4
	smoothingWindow  = 3
	definitionLength = 320
)

type Options struct {
	Evaluator progress.Evaluator
	Workers   int
	Store     store.Store
	Logger    logrus.FieldLogger
}

// Monitor evaluates catalogue indicators for a set of countries.
type Monitor struct {
	provider  providers.Provider
	store     store.Store
	evaluator progress.Evaluator
	workers   int
	logger    logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

func New(provider providers.Provider, opts Options) *Monitor {
	if opts.Evaluator == (progress.Evaluator{}) {
		opts.Evaluator = progress.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Store == nil {
		opts.Store = &store.NopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Log
	}
	return &Monitor{
		provider:  provider,
		store:     opts.Store,
		evaluator: opts.Evaluator,
		workers:   opts.Workers,
		logger:    opts.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type Request struct {
	Goal       int
	Focal      string
	Countries  []string
	Indicators []model.Indicator
}

// Row is the focal country's standing on one indicator.
type Row struct {
	Indicator model.Indicator
	Baseline  *Point
	Latest    *Point
	Delta     *float64
	Result    progress.Result
}

type PeerValue struct {
	CountryISO3 string
	Country     string
	Year        int
	Value       float64
}

// PeerSnapshot ranks the latest value of every country, best first.
type PeerSnapshot struct {
	Indicator model.Indicator
	Values    []PeerValue
}

type Overview struct {
	Run         model.Run
	GoalName    string
	Rows        []Row
	Snapshots   []PeerSnapshot
	Assessments []model.Assessment
	// Missing lists indicators for which no country had data.
	Missing []model.Indicator
}

type indicatorResult struct {
	observations []model.Observation
	noData       bool
}

// Overview fetches every indicator concurrently and evaluates each country
// against its 2030 target. Output follows the order of req.Indicators.
func (m *Monitor) Overview(ctx context.Context, req Request) (Overview, error) {
	if len(req.Countries) == 0 {
		return Overview{}, errors.New("monitor: no countries selected")
	}
	focal := normalizeISO3(req.Focal)
	if focal == "" {
		focal = req.Countries[0]
	}

	started := m.now()
	results := make([]indicatorResult, len(req.Indicators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, indicator := range req.Indicators {
		if indicator.Code == "" {
			results[i].noData = true
			continue
		}
		g.Go(func() error {
			log := m.logger.WithField("indicator", indicator.Code)
			observations, err := m.provider.FetchSeries(gctx, indicator.Code, req.Countries, 0, 0)
			switch {
			case errors.Is(err, providers.ErrNoData):
				log.WithError(err).Debug("no data")
				results[i].noData = true
				return nil
			case err != nil:
				return fmt.Errorf("monitor: fetch %s: %w", indicator.Code, err)
			}
			log.WithField("observations", len(observations)).Debug("fetched")
			results[i] = indicatorResult{observations: observations, noData: len(observations) == 0}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	goalName, _ := GoalName(req.Goal)
	run := model.Run{
		ID:        m.newID(),
		Source:    m.provider.Name(),
		Focal:     focal,
		Goal:      req.Goal,
		Countries: append([]string(nil), req.Countries...),
		StartedAt: started,
	}
	overview := Overview{Run: run, GoalName: goalName}

	for i, indicator := range req.Indicators {
		if results[i].noData {
			overview.Missing = append(overview.Missing, indicator)
			continue
		}
		observations := results[i].observations

		overview.Rows = append(overview.Rows, m.assess(observations, indicator, focal))
		for _, iso3 := range req.Countries {
			overview.Assessments = append(overview.Assessments, m.assess(observations, indicator, iso3).assessment(run.ID, req.Goal, iso3))
		}
		if snapshot := peerSnapshot(observations, indicator, req.Countries); len(snapshot.Values) > 0 {
			overview.Snapshots = append(overview.Snapshots, snapshot)
		}
	}

	overview.Run.CompletedAt = m.now()
	if err := m.store.SaveRun(ctx, overview.Run, overview.Assessments); err != nil {
		m.logger.WithError(err).WithField("run_id", run.ID).Warn("saving run failed")
	}
	return overview, nil
}

func (m *Monitor) assess(observations []model.Observation, indicator model.Indicator, iso3 string) Row {
	row := Row{Indicator: indicator, Result: progress.Result{Status: progress.InsufficientData}}
	if baseline, ok := ValueAtOrAfter(observations, iso3, m.evaluator.BaselineYear); ok {
		row.Baseline = &baseline
	}
	if latest, ok := Latest(observations, iso3); ok {
		row.Latest = &latest
	}
	if row.Baseline == nil || row.Latest == nil {
		return row
	}
	row.Delta = model.Float(row.Latest.Value - row.Baseline.Value)
	target := indicator.Goal2030
	row.Result = m.evaluator.Evaluate(row.Baseline.Value, row.Latest.Value, model.Int(row.Latest.Year), target.Target, target.Direction)
	return row
}

func (r Row) assessment(runID string, goal int, iso3 string) model.Assessment {
	a := model.Assessment{
		RunID:       runID,
		Goal:        goal,
		Indicator:   r.Indicator.Code,
		Label:       r.Indicator.Label,
		CountryISO3: iso3,
		Delta:       r.Delta,
		Status:      r.Result.Status.String(),
		Ratio:       r.Result.Ratio,
	}
	if r.Baseline != nil {
		a.BaselineYear = model.Int(r.Baseline.Year)
		a.BaselineValue = model.Float(r.Baseline.Value)
	}
	if r.Latest != nil {
		a.LatestYear = model.Int(r.Latest.Year)
		a.LatestValue = model.Float(r.Latest.Value)
	}
	return a
}

// peerSnapshot orders ascending when lower is better, descending otherwise.
func peerSnapshot(observations []model.Observation, indicator model.Indicator, countries []string) PeerSnapshot {
	snapshot := PeerSnapshot{Indicator: indicator}
	for _, iso3 := range countries {
		latest, ok := Latest(observations, iso3)
		if !ok {
			continue
		}
		snapshot.Values = append(snapshot.Values, PeerValue{
			CountryISO3: iso3,
			Country:     countryName(observations, iso3),
			Year:        latest.Year,
			Value:       latest.Value,
		})
	}
	lowerIsBetter := indicator.Goal2030.Direction == model.Decreasing
	sort.SliceStable(snapshot.Values, func(i, j int) bool {
		if lowerIsBetter {
			return snapshot.Values[i].Value < snapshot.Values[j].Value
		}
		return snapshot.Values[i].Value > snapshot.Values[j].Value
	})
	return snapshot
}

func countryName(observations []model.Observation, iso3 string) string {
	for _, observation := range observations {
		if observation.CountryISO3 == iso3 && observation.Country != "" {
			return observation.Country
		}
	}
	return model.CountryLabel(iso3, iso3)
}

type DrilldownRequest struct {
	Indicator string
	Focal     string
	Countries []string
	FromYear  int
	ToYear    int
	Smooth    bool
}

// Drilldown is one indicator over a year range with the focal country's KPIs.
type Drilldown struct {
	Indicator    string
	Observations []model.Observation
	Smoothed     []model.Observation
	Baseline     *Point
	Latest       *Point
	Delta        *float64
}

func (m *Monitor) Drilldown(ctx context.Context, req DrilldownRequest) (Drilldown, error) {
	if req.FromYear > 0 && req.ToYear > 0 && req.FromYear > req.ToYear {
		return Drilldown{}, fmt.Errorf("monitor: year range %d-%d is empty", req.FromYear, req.ToYear)
	}
	if len(req.Countries) == 0 {
		return Drilldown{}, errors.New("monitor: no countries selected")
	}
	focal := normalizeISO3(req.Focal)
	if focal == "" {
		focal = req.Countries[0]
	}

	result := Drilldown{Indicator: req.Indicator}
	observations, err := m.provider.FetchSeries(ctx, req.Indicator, req.Countries, req.FromYear, req.ToYear)
	if err != nil {
		if errors.Is(err, providers.ErrNoData) {
			return result, nil
		}
		return Drilldown{}, fmt.Errorf("monitor: fetch %s: %w", req.Indicator, err)
	}

	result.Observations = FilterYears(observations, req.FromYear, req.ToYear)
	if req.Smooth {
		result.Smoothed = Smooth(result.Observations, smoothingWindow)
	}
	if baseline, ok := ValueAtOrAfter(result.Observations, focal, m.evaluator.BaselineYear); ok {
		result.Baseline = &baseline
	}
	if latest, ok := Latest(result.Observations, focal); ok {
		result.Latest = &latest
	}
	if result.Baseline != nil && result.Latest != nil {
		result.Delta = model.Float(result.Latest.Value - result.Baseline.Value)
	}
	return result, nil
}

// MetadataSource describes indicators by code.
type MetadataSource interface {
	Metadata(ctx context.Context, code string) (model.IndicatorMeta, error)
}

type Definition struct {
	Indicator string
	Code      string
	Unit      string
	Source    string
	Short     string
}

// Definitions loads the published description of every indicator. Lookups
// that fail fall back to the catalogue label.
func (m *Monitor) Definitions(ctx context.Context, source MetadataSource, indicators []model.Indicator) ([]Definition, error) {
	definitions := make([]Definition, len(indicators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, indicator := range indicators {
		if indicator.Code == "" {
			definitions[i] = Definition{Indicator: indicator.Label, Code: missing, Unit: missing, Source: missing, Short: "No WDI code in catalog"}
			continue
		}
		g.Go(func() error {
			meta, err := source.Metadata(gctx, indicator.Code)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.WithError(err).WithField("indicator", indicator.Code).Debug("metadata unavailable")
				meta = model.IndicatorMeta{}
			}
			name := meta.Name
			if name == "" {
				name = indicator.Label
			}
			definitions[i] = Definition{
				Indicator: name,
				Code:      indicator.Code,
				Unit:      meta.Unit,
				Source:    metaSource(meta),
				Short:     Short(meta.SourceNote, definitionLength),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return definitions, nil
}

// metaSource prefers the database name over the publishing organisation.
func metaSource(meta model.IndicatorMeta) string {
	for _, candidate := range []string{meta.Source, meta.SourceOrganization} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return missing
}
