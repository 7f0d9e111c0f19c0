package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	BaselineYear = 2015
	TargetYear   = 2030
)

type Direction string

const (
	Increasing Direction = "up"
	Decreasing Direction = "down"
)

// ParseDirection maps catalogue wording onto a Direction. Blank means up.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "up", "increasing", "higher":
		return Increasing, nil
	case "down", "decreasing", "lower":
		return Decreasing, nil
	default:
		return "", fmt.Errorf("unknown direction: %q", raw)
	}
}

func (d Direction) Valid() bool {
	return d == Increasing || d == Decreasing
}

type IndicatorTarget struct {
	Direction    Direction
	Target       *float64
	BaselineYear int
	TargetYear   int
}

func NewIndicatorTarget(direction Direction, target *float64) (IndicatorTarget, error) {
	if !direction.Valid() {
		return IndicatorTarget{}, fmt.Errorf("invalid direction: %q", direction)
	}
	if BaselineYear >= TargetYear {
		return IndicatorTarget{}, errors.New("baseline year must precede target year")
	}
	return IndicatorTarget{
		Direction:    direction,
		Target:       target,
		BaselineYear: BaselineYear,
		TargetYear:   TargetYear,
	}, nil
}

type Source string

const (
	SourceWorldBank Source = "worldbank"
	SourceUNSDG     Source = "unsdg"
)

type Country struct {
	ISO3  string
	Label string
}

type Indicator struct {
	Goal     int
	GoalName string
	Target   string
	Label    string
	Code     string
	Unit     string
	Goal2030 IndicatorTarget
}

// IndicatorMeta is the published description of an indicator.
type IndicatorMeta struct {
	ID                 string
	Name               string
	Unit               string
	SourceNote         string
	SourceOrganization string
	Source             string
}

type Observation struct {
	Source      Source
	Indicator   string
	CountryISO3 string
	Country     string
	Year        int
	Value       float64
}

type Assessment struct {
	RunID         string
	Goal          int
	Indicator     string
	Label         string
	CountryISO3   string
	BaselineYear  *int
	BaselineValue *float64
	LatestYear    *int
	LatestValue   *float64
	Delta         *float64
	Status        string
	Ratio         *float64
}

type Run struct {
	ID          string
	Source      Source
	Focal       string
	Goal        int
	Countries   []string
	StartedAt   time.Time
	CompletedAt time.Time
}

func Float(v float64) *float64 {
	return &v
}

func Int(v int) *int {
	return &v
}
