// Package progress classifies whether the observed pace of an indicator is
// enough to reach its 2030 target.
package progress

import (
	"errors"
	"math"

	"sdgmonitor/internal/model"
)

type Status int

const (
	InsufficientData Status = iota
	TrendOnly
	OnTrack
	NeedsAcceleration
	OffTrack
)

func (s Status) String() string {
	switch s {
	case InsufficientData:
		return "insufficient-data"
	case TrendOnly:
		return "trend-only"
	case OnTrack:
		return "on-track"
	case NeedsAcceleration:
		return "needs-acceleration"
	case OffTrack:
		return "off-track"
	default:
		return "unknown"
	}
}

// Label is the human-facing rendering of the status.
func (s Status) Label() string {
	switch s {
	case InsufficientData:
		return "insufficient data"
	case TrendOnly:
		return "trend only"
	case OnTrack:
		return "🟢 on track"
	case NeedsAcceleration:
		return "🟠 needs acceleration"
	case OffTrack:
		return "🔴 off track"
	default:
		return "—"
	}
}

func ParseStatus(value string) (Status, bool) {
	for _, s := range []Status{InsufficientData, TrendOnly, OnTrack, NeedsAcceleration, OffTrack} {
		if s.String() == value {
			return s, true
		}
	}
	return 0, false
}

type Result struct {
	Status Status
	// Ratio is the share of the baseline-to-target distance covered so far.
	// It is not clamped: values above 1 or below 0 are meaningful.
	Ratio *float64
}

// ClampedRatio returns the ratio limited to [0,1] for progress bars.
func (r Result) ClampedRatio() (float64, bool) {
	if r.Ratio == nil {
		return 0, false
	}
	return math.Min(math.Max(*r.Ratio, 0), 1), true
}

type Thresholds struct {
	OnTrack           float64
	NeedsAcceleration float64
}

func (t Thresholds) Validate() error {
	if t.NeedsAcceleration < 0 {
		return errors.New("progress: needs-acceleration threshold must not be negative")
	}
	if t.NeedsAcceleration > t.OnTrack {
		return errors.New("progress: needs-acceleration threshold must not exceed on-track threshold")
	}
	return nil
}

type Evaluator struct {
	Thresholds   Thresholds
	BaselineYear int
	TargetYear   int
}

func Default() Evaluator {
	return Evaluator{
		Thresholds:   Thresholds{OnTrack: 1.0, NeedsAcceleration: 0.5},
		BaselineYear: model.BaselineYear,
		TargetYear:   model.TargetYear,
	}
}

// Evaluate runs the default evaluator.
func Evaluate(baseline, latest float64, latestYear *int, target *float64, direction model.Direction) Result {
	return Default().Evaluate(baseline, latest, latestYear, target, direction)
}

// Evaluate compares the actual yearly rate of change since the baseline year
// with the rate required to hit target by the target year. Callers must not
// invoke it when the baseline or latest value is unknown.
func (e Evaluator) Evaluate(baseline, latest float64, latestYear *int, target *float64, direction model.Direction) Result {
	if latestYear == nil || *latestYear <= e.BaselineYear {
		return Result{Status: InsufficientData}
	}
	if target == nil {
		return Result{Status: TrendOnly}
	}
	goal := *target

	yearsElapsed := float64(max(1, *latestYear-e.BaselineYear))
	yearsTotal := float64(max(1, e.TargetYear-e.BaselineYear))

	var requiredRate, actualRate float64
	var ratio *float64
	if direction == model.Decreasing {
		requiredRate = (baseline - goal) / yearsTotal
		actualRate = (baseline - latest) / yearsElapsed
		if baseline != goal {
			ratio = model.Float((baseline - latest) / (baseline - goal))
		}
	} else {
		requiredRate = (goal - baseline) / yearsTotal
		actualRate = (latest - baseline) / yearsElapsed
		if goal != baseline {
			ratio = model.Float((latest - baseline) / (goal - baseline))
		}
	}

	if ratio == nil || !finite(requiredRate, actualRate, *ratio) {
		return Result{Status: TrendOnly}
	}

	pace := 0.0
	if requiredRate != 0 {
		pace = actualRate / requiredRate
	}
	if !finite(pace) {
		return Result{Status: TrendOnly}
	}

	switch {
	case pace >= e.Thresholds.OnTrack:
		return Result{Status: OnTrack, Ratio: ratio}
	case pace >= e.Thresholds.NeedsAcceleration:
		return Result{Status: NeedsAcceleration, Ratio: ratio}
	default:
		return Result{Status: OffTrack, Ratio: ratio}
	}
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
