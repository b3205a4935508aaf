package kpi

import (
	"fmt"
	"strconv"
)

type Insights struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

var (
	defaultStrengths = []string{
		"Consistent participation in tracked KPIs throughout the period",
		"Performance data submitted regularly for review",
	}
	defaultImprovements = []string{
		"Keep building on current results to stay ahead of targets",
		"Look for KPIs where a small push would lift the overall score",
	}
)

const (
	exceptionalFloor = 120
	strongFloor      = 100
)

// GenerateInsights turns achievement results into strength and improvement
// statements. Results between 84 and 99 percent produce neither.
func GenerateInsights(results []AchievementResult) Insights {
	var out Insights
	for _, r := range results {
		progress := formatValue(r.Actual) + "/" + formatValue(r.PeriodTarget)
		switch {
		case r.AchievementPercent >= exceptionalFloor:
			out.Strengths = append(out.Strengths,
				fmt.Sprintf("Exceptional %s performance: %s (%d%% of target)", r.Label, progress, r.AchievementPercent))
		case r.AchievementPercent >= strongFloor:
			out.Strengths = append(out.Strengths,
				fmt.Sprintf("Strong %s performance: %s (%d%% of target)", r.Label, progress, r.AchievementPercent))
		case r.AchievementPercent < TargetFloor:
			out.Improvements = append(out.Improvements,
				fmt.Sprintf("%s is below target: %s (%d%% of target)", r.Label, progress, r.AchievementPercent))
		}
	}
	if len(out.Strengths) == 0 {
		out.Strengths = append([]string(nil), defaultStrengths...)
	}
	if len(out.Improvements) == 0 {
		out.Improvements = append([]string(nil), defaultImprovements...)
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
