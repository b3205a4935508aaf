package kpi

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type AchievementResult struct {
	KPIKey             string  `json:"kpiKey"`
	Label              string  `json:"label"`
	Kind               string  `json:"kind"`
	Actual             float64 `json:"actual"`
	PeriodTarget       float64 `json:"periodTarget"`
	AchievementPercent int     `json:"achievementPercent"`
	Source             string  `json:"source"`
}

type AchievementReport struct {
	MemberID              string              `json:"memberId"`
	Window                PeriodWindow        `json:"window"`
	Results               []AchievementResult `json:"results"`
	OverallAveragePercent int                 `json:"overallAveragePercent"`
	RecordCount           int                 `json:"recordCount"`
	// Scored is false when records exist but no KPI resolved a target.
	Scored bool `json:"scored"`
}

// PeriodTarget returns the goal for a window. A positive annual target is
// used as-is regardless of window length; otherwise the monthly target is
// multiplied by the number of months with records. Zero means excluded.
func PeriodTarget(target EffectiveTarget, monthsTracked int) float64 {
	if target.AnnualTarget > 0 {
		return target.AnnualTarget
	}
	if target.MonthlyTarget > 0 && monthsTracked > 0 {
		return target.MonthlyTarget * float64(monthsTracked)
	}
	return 0
}

// AchievementPercent is round(actual / periodTarget * 100), halves away from
// zero. ok is false when periodTarget is not positive.
func AchievementPercent(actual, periodTarget float64) (int, bool) {
	if periodTarget <= 0 {
		return 0, false
	}
	pct := decimal.NewFromFloat(actual).
		Mul(hundred).
		Div(decimal.NewFromFloat(periodTarget)).
		Round(0)
	return int(pct.IntPart()), true
}

// AveragePercent is the rounded unweighted mean of percents.
func AveragePercent(percents []int) int {
	if len(percents) == 0 {
		return 0
	}
	var sum int64
	for _, p := range percents {
		sum += int64(p)
	}
	mean := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(percents)))).Round(0)
	return int(mean.IntPart())
}

// CalculateAchievements scores agg against targets. Targets that resolve to
// nothing, or to a non-positive period target, are left out.
func CalculateAchievements(definitions []Definition, targets []EffectiveTarget, agg PeriodAggregate) AchievementReport {
	report := AchievementReport{
		MemberID:    agg.MemberID,
		Window:      agg.Window,
		Results:     []AchievementResult{},
		RecordCount: agg.RecordCount,
	}

	byKey := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		byKey[d.Key] = d
	}

	percents := make([]int, 0, len(targets))
	for _, target := range targets {
		if !target.Tracked() {
			continue
		}
		periodTarget := PeriodTarget(target, agg.RecordCount)
		actual := agg.Actual(target.KPIKey)
		pct, ok := AchievementPercent(actual, periodTarget)
		if !ok {
			continue
		}

		def, found := byKey[target.KPIKey]
		if !found {
			def = Definition{Key: target.KPIKey, Kind: KindCount}
		}
		report.Results = append(report.Results, AchievementResult{
			KPIKey:             target.KPIKey,
			Label:              def.DisplayLabel(),
			Kind:               def.Kind,
			Actual:             actual,
			PeriodTarget:       periodTarget,
			AchievementPercent: pct,
			Source:             target.Source,
		})
		percents = append(percents, pct)
	}

	report.Scored = len(percents) > 0
	report.OverallAveragePercent = AveragePercent(percents)
	return report
}

// ComputeAchievements aggregates and scores one member over window.
func (s Snapshot) ComputeAchievements(memberID string, window PeriodWindow) (AchievementReport, error) {
	agg, err := s.AggregatePeriod(memberID, window)
	if err != nil {
		return AchievementReport{}, err
	}
	if agg.Empty() {
		return AchievementReport{}, fmt.Errorf("%w: member %s, %s", ErrNoPerformanceData, memberID, window)
	}
	return CalculateAchievements(s.Definitions, s.ResolveTargets(memberID), agg), nil
}
