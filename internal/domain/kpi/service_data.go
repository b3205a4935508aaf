package kpi

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// TargetInput is a target as submitted by a caller. A nil AnnualTarget asks
// for the conventional monthly x 13; an explicit value, zero included, is kept.
type TargetInput struct {
	KPIKey        string   `json:"kpiKey"`
	MonthlyTarget float64  `json:"monthlyTarget"`
	AnnualTarget  *float64 `json:"annualTarget"`
}

// normalizeTarget applies the definition-time rules for def's kind.
// Delivered KPIs are always one per month, thirteen per cycle.
func normalizeTarget(def Definition, in TargetInput) (monthly, annual float64, err error) {
	if def.Kind == KindDelivered {
		return DeliveredMonthlyTarget, DeliveredAnnualTarget, nil
	}
	if !finite(in.MonthlyTarget) || in.MonthlyTarget < 0 {
		return 0, 0, fmt.Errorf("%w: monthly target must be a non-negative number", ErrInvalidTarget)
	}
	if in.AnnualTarget == nil {
		return in.MonthlyTarget, in.MonthlyTarget * CycleMonths, nil
	}
	if !finite(*in.AnnualTarget) || *in.AnnualTarget < 0 {
		return 0, 0, fmt.Errorf("%w: annual target must be a non-negative number", ErrInvalidTarget)
	}
	return in.MonthlyTarget, *in.AnnualTarget, nil
}

// CanonicalDesignation folds the legacy role field into designation. An
// explicit designation wins.
func CanonicalDesignation(designation, role string) string {
	if d := strings.TrimSpace(designation); d != "" {
		return d
	}
	return strings.TrimSpace(role)
}

func normalizeMember(m TeamMember) (TeamMember, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Designation = strings.TrimSpace(m.Designation)
	if m.Name == "" {
		return TeamMember{}, fmt.Errorf("%w: name is required", ErrInvalidMember)
	}
	if m.Designation == "" {
		return TeamMember{}, fmt.Errorf("%w: designation is required", ErrInvalidMember)
	}
	if m.Status == "" {
		m.Status = MemberStatusActive
	}
	if m.Status != MemberStatusActive && m.Status != MemberStatusArchived {
		return TeamMember{}, fmt.Errorf("%w: unknown status %q", ErrInvalidMember, m.Status)
	}
	return m, nil
}

func normalizeDefinition(d Definition) (Definition, error) {
	d.Key = strings.TrimSpace(d.Key)
	d.Label = strings.TrimSpace(d.Label)
	if d.Key == "" {
		return Definition{}, fmt.Errorf("%w: key is required", ErrInvalidDefinition)
	}
	if d.Kind == "" {
		d.Kind = KindCount
	}
	if !slices.Contains(Kinds, d.Kind) {
		return Definition{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidDefinition, d.Kind)
	}
	if d.Label == "" {
		d.Label = d.Key
	}
	return d, nil
}

// validateRecord checks a record against the registry. Only known KPI keys
// may carry values, and values must be non-negative.
func validateRecord(r PerformanceRecord, definitions []Definition) error {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidRecord)
	}
	if r.Year <= 0 {
		return fmt.Errorf("%w: year must be positive", ErrInvalidRecord)
	}
	known := make(map[string]struct{}, len(definitions))
	for _, d := range definitions {
		known[d.Key] = struct{}{}
	}
	for key, value := range r.Values {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("%w: unknown kpi %q", ErrInvalidRecord, key)
		}
		if !finite(value) || value < 0 {
			return fmt.Errorf("%w: value for %q must be a non-negative number", ErrInvalidRecord, key)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func reportCacheKey(generation int64, memberID string, window PeriodWindow) string {
	return fmt.Sprintf("report:%d:%s:%s", generation, memberID, window)
}

func countCategories(entries []TeamReportEntry) map[Category]int {
	counts := map[Category]int{
		CategoryCritical: 0,
		CategoryBad:      0,
		CategoryTarget:   0,
		CategoryGood:     0,
		CategoryNoData:   0,
	}
	for _, e := range entries {
		counts[e.Category]++
	}
	return counts
}
