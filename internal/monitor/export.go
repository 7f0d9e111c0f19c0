package monitor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/providers"
)

var exportHeader = []string{"country", "iso3", "date", "value", "indicator", "indicator_name"}

type ExportRequest struct {
	Countries  []string
	Indicators []model.Indicator
	FromYear   int
	ToYear     int
}

type ExportRow struct {
	Observation   model.Observation
	IndicatorName string
}

// Export collects the raw series of every coded indicator for download.
// Indicators without data are left out. Rows are ordered by indicator,
// country and year.
func (m *Monitor) Export(ctx context.Context, req ExportRequest) ([]ExportRow, error) {
	if req.FromYear > 0 && req.ToYear > 0 && req.FromYear > req.ToYear {
		return nil, fmt.Errorf("monitor: year range %d-%d is empty", req.FromYear, req.ToYear)
	}
	if len(req.Countries) == 0 {
		return nil, errors.New("monitor: no countries selected")
	}

	parts := make([][]ExportRow, len(req.Indicators))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, indicator := range req.Indicators {
		if indicator.Code == "" {
			continue
		}
		g.Go(func() error {
			// unbounded fetch shares the cache entry written by Overview
			observations, err := m.provider.FetchSeries(gctx, indicator.Code, req.Countries, 0, 0)
			switch {
			case errors.Is(err, providers.ErrNoData):
				m.logger.WithField("indicator", indicator.Code).Debug("no data to export")
				return nil
			case err != nil:
				return fmt.Errorf("monitor: fetch %s: %w", indicator.Code, err)
			}
			for _, observation := range FilterYears(observations, req.FromYear, req.ToYear) {
				parts[i] = append(parts[i], ExportRow{Observation: observation, IndicatorName: indicator.Label})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := slices.Concat(parts...)
	slices.SortStableFunc(rows, func(x, y ExportRow) int {
		if c := strings.Compare(x.Observation.Indicator, y.Observation.Indicator); c != 0 {
			return c
		}
		if c := strings.Compare(x.Observation.Country, y.Observation.Country); c != 0 {
			return c
		}
		return x.Observation.Year - y.Observation.Year
	})
	return rows, nil
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		observation := row.Observation
		record := []string{
			observation.Country,
			observation.CountryISO3,
			strconv.Itoa(observation.Year),
			strconv.FormatFloat(observation.Value, 'f', -1, 64),
			observation.Indicator,
			row.IndicatorName,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportFileName is the default download name for a goal and year range.
func ExportFileName(goal, fromYear, toYear int) string {
	return fmt.Sprintf("sdg_wdi_SDG_%d_%d_%d.csv", goal, fromYear, toYear)
}
