package providers

import (
	"context"
	"errors"

	"sdgmonitor/internal/model"
)

// ErrNoData is wrapped by every provider's own no-data error.
var ErrNoData = errors.New("no data")

// Provider returns annual observations of one indicator for a set of
// countries, at most one value per country and year. Zero years mean no
// bound.
type Provider interface {
	Name() model.Source
	FetchSeries(ctx context.Context, indicator string, countries []string, fromYear, toYear int) ([]model.Observation, error)
}
