// Package flaw evaluates a declarative catalog of technique flaws over
// phase-scoped metric windows.
//
// Each catalog entry names the phases it applies to, the metric it reads,
// an aggregation over the phase window, a comparator and a threshold. One
// generic evaluator interprets the whole catalog; there are no per-flaw
// branches. Severity is a function of how far the aggregate deviates from
// the threshold: up to 1.5x is minor, up to 2x moderate, beyond that major.
package flaw

import (
	"github.com/apexsports/shotform/internal/domain/geometry"
	"github.com/apexsports/shotform/internal/domain/model"
)

// Aggregation selects how a metric is collapsed over a phase window.
type Aggregation int

// Window aggregations.
const (
	Min Aggregation = iota
	Max
	Mean
	Range
)

// Comparator gives the direction in which a value violates the threshold.
type Comparator int

// Threshold comparators. Above flags values exceeding the threshold, Below
// flags values falling short of it.
const (
	Above Comparator = iota
	Below
)

// Definition is one catalog entry.
type Definition struct {
	Type      model.FlawType
	Phases    []model.Phase
	Metric    geometry.Metric
	Aggregate Aggregation
	Compare   Comparator
	Threshold float64
}

// Catalog returns the fixed per-shot flaw catalog in declaration order.
// Thresholds are the defaults; per-flaw overrides come from configuration.
// The session-level inconsistent-release-height rule lives in the scoring
// package because it reads across shots.
func Catalog() []Definition {
	return []Definition{
		{
			Type:      model.ElbowFlare,
			Phases:    []model.Phase{model.Release, model.FollowThrough},
			Metric:    geometry.ElbowFlareOffset,
			Aggregate: Max,
			Compare:   Above,
			Threshold: 0.25,
		},
		{
			Type:      model.InsufficientKneeBend,
			Phases:    []model.Phase{model.Load},
			Metric:    geometry.KneeBend,
			Aggregate: Min,
			Compare:   Below,
			Threshold: 30.0,
		},
		{
			Type:      model.GuideHandInterference,
			Phases:    []model.Phase{model.Release},
			Metric:    geometry.GuideHandDriftSpeed,
			Aggregate: Max,
			Compare:   Above,
			Threshold: 0.8,
		},
		{
			Type:      model.EarlyWristSnap,
			Phases:    []model.Phase{model.Rise},
			Metric:    geometry.ForearmTilt,
			Aggregate: Max,
			Compare:   Above,
			Threshold: 35.0,
		},
		{
			Type:      model.BalanceDeviation,
			Phases:    []model.Phase{model.FollowThrough, model.Landing},
			Metric:    geometry.ShoulderTilt,
			Aggregate: Max,
			Compare:   Above,
			Threshold: 8.0,
		},
		{
			Type:      model.LowReleasePoint,
			Phases:    []model.Phase{model.Release},
			Metric:    geometry.WristHeight,
			Aggregate: Min,
			Compare:   Below,
			Threshold: 1.15,
		},
		{
			Type:      model.ShortFollowThrough,
			Phases:    []model.Phase{model.FollowThrough},
			Metric:    geometry.ElbowAngle,
			Aggregate: Min,
			Compare:   Below,
			Threshold: 150.0,
		},
	}
}
