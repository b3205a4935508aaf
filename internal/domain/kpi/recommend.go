package kpi

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Recommender produces actionable statements from a member's latest month.
type Recommender interface {
	Recommend(latest PerformanceRecord, prior []PerformanceRecord, targets []EffectiveTarget, labels map[string]string) []string
}

type RecommenderFunc func(latest PerformanceRecord, prior []PerformanceRecord, targets []EffectiveTarget, labels map[string]string) []string

func (f RecommenderFunc) Recommend(latest PerformanceRecord, prior []PerformanceRecord, targets []EffectiveTarget, labels map[string]string) []string {
	return f(latest, prior, targets, labels)
}

var fallbackRecommendations = []string{
	"Review monthly progress against each KPI target with your manager",
	"Plan the coming month's activities around the KPIs furthest from target",
	"Record performance data promptly at the end of every month",
	"Share approaches that worked well with the rest of the team",
	"Set a personal stretch goal for the KPI you perform best in",
}

func FallbackRecommendations() []string {
	return append([]string(nil), fallbackRecommendations...)
}

// GenerateRecommendations runs strategy and keeps at most five statements.
// A nil strategy uses TrendRecommender; an empty result yields the fallback list.
func GenerateRecommendations(strategy Recommender, latest PerformanceRecord, prior []PerformanceRecord, targets []EffectiveTarget, labels map[string]string) []string {
	if strategy == nil {
		strategy = TrendRecommender{}
	}
	recs := strategy.Recommend(latest, prior, targets, labels)
	if len(recs) == 0 {
		return FallbackRecommendations()
	}
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return append([]string(nil), recs...)
}

const (
	DefaultTrendThreshold = 0.10
	overAchievementRatio  = 1.2
)

// TrendRecommender compares the latest month with the monthly target and
// with the mean of prior months.
type TrendRecommender struct {
	// Threshold is the relative change versus the prior mean that counts as
	// a trend. Zero means DefaultTrendThreshold.
	Threshold float64
}

const (
	severityBelowDeclining = iota
	severityBelow
	severityDeclining
	severityOverAchieving
)

type trendFinding struct {
	severity int
	ratio    float64
	label    string
	message  string
}

func (r TrendRecommender) Recommend(latest PerformanceRecord, prior []PerformanceRecord, targets []EffectiveTarget, labels map[string]string) []string {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = DefaultTrendThreshold
	}

	var findings []trendFinding
	for _, target := range targets {
		if !target.Tracked() {
			continue
		}
		label := labels[target.KPIKey]
		if label == "" {
			label = target.KPIKey
		}
		value := latest.Value(target.KPIKey)
		ratio := value / target.MonthlyTarget

		change, hasTrend := trend(value, prior, target.KPIKey)
		declining := hasTrend && change <= -threshold
		progress := formatValue(value) + "/" + formatValue(target.MonthlyTarget)

		switch {
		case ratio < 1 && declining:
			findings = append(findings, trendFinding{
				severity: severityBelowDeclining, ratio: ratio, label: label,
				message: fmt.Sprintf("Reverse the decline in %s: %s this month, down %d%% on previous months", label, progress, percentOf(-change)),
			})
		case ratio < 1:
			findings = append(findings, trendFinding{
				severity: severityBelow, ratio: ratio, label: label,
				message: fmt.Sprintf("Close the gap on %s: %s this month, %s short of the monthly target", label, progress, formatValue(target.MonthlyTarget-value)),
			})
		case declining:
			findings = append(findings, trendFinding{
				severity: severityDeclining, ratio: ratio, label: label,
				message: fmt.Sprintf("Watch %s: still on target at %s but down %d%% on previous months", label, progress, percentOf(-change)),
			})
		case ratio >= overAchievementRatio:
			findings = append(findings, trendFinding{
				severity: severityOverAchieving, ratio: ratio, label: label,
				message: fmt.Sprintf("Consider a higher %s target: %s this month", label, progress),
			})
		}
	}

	slices.SortStableFunc(findings, func(a, b trendFinding) int {
		if c := cmp.Compare(a.severity, b.severity); c != 0 {
			return c
		}
		if a.severity == severityOverAchieving {
			if c := cmp.Compare(b.ratio, a.ratio); c != 0 {
				return c
			}
		} else if c := cmp.Compare(a.ratio, b.ratio); c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})

	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.message)
	}
	return out
}

// trend returns the relative change of value versus the mean of prior
// values for key. ok is false without prior records or with a zero mean.
func trend(value float64, prior []PerformanceRecord, key string) (change float64, ok bool) {
	if len(prior) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range prior {
		sum += r.Value(key)
	}
	mean := sum / float64(len(prior))
	if mean <= 0 {
		return 0, false
	}
	return (value - mean) / mean, true
}

func percentOf(fraction float64) int {
	return int(math.Round(fraction * 100))
}

// LatestRecord returns the most recent record of memberID inside window.
func LatestRecord(records []PerformanceRecord, memberID string, window PeriodWindow) (PerformanceRecord, bool) {
	var (
		latest PerformanceRecord
		found  bool
	)
	for _, r := range records {
		if r.MemberID != memberID || !window.Contains(r.Year, r.Month) {
			continue
		}
		if !found || r.monthIndex() > latest.monthIndex() {
			latest = r
			found = true
		}
	}
	return latest, found
}

// PriorRecords returns the member's records that come strictly before latest.
func PriorRecords(records []PerformanceRecord, latest PerformanceRecord) []PerformanceRecord {
	var out []PerformanceRecord
	for _, r := range records {
		if r.MemberID != latest.MemberID || r.Month < 1 || r.Month > 12 {
			continue
		}
		if r.monthIndex() < latest.monthIndex() {
			out = append(out, r)
		}
	}
	return out
}
