package kpi

type PeriodAggregate struct {
	MemberID     string             `json:"memberId"`
	Window       PeriodWindow       `json:"window"`
	PerKPIActual map[string]float64 `json:"perKpiActual"`
	RecordCount  int                `json:"recordCount"`
}

func (a PeriodAggregate) Empty() bool {
	return a.RecordCount == 0
}

func (a PeriodAggregate) Actual(key string) float64 {
	return a.PerKPIActual[key]
}

// AggregatePeriod sums every KPI value recorded by memberID inside window.
// No matching records yields an empty aggregate, not an error.
func AggregatePeriod(memberID string, window PeriodWindow, records []PerformanceRecord) (PeriodAggregate, error) {
	if err := window.Validate(); err != nil {
		return PeriodAggregate{}, err
	}

	agg := PeriodAggregate{
		MemberID:     memberID,
		Window:       window,
		PerKPIActual: map[string]float64{},
	}
	for _, r := range records {
		if r.MemberID != memberID || !window.Contains(r.Year, r.Month) {
			continue
		}
		agg.RecordCount++
		for key, value := range r.Values {
			agg.PerKPIActual[key] += value
		}
	}
	return agg, nil
}

func (s Snapshot) AggregatePeriod(memberID string, window PeriodWindow) (PeriodAggregate, error) {
	return AggregatePeriod(memberID, window, s.Records)
}
