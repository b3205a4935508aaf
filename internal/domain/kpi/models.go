package kpi

type TeamMember struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Status      string `json:"status"`
}

func (m TeamMember) IsActive() bool {
	return m.Status == "" || m.Status == MemberStatusActive
}

type Definition struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

func (d Definition) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Key
}

type DesignationTarget struct {
	Designation   string  `json:"designation"`
	KPIKey        string  `json:"kpiKey"`
	MonthlyTarget float64 `json:"monthlyTarget"`
	AnnualTarget  float64 `json:"annualTarget"`
}

type UserTarget struct {
	MemberID      string  `json:"memberId"`
	KPIKey        string  `json:"kpiKey"`
	MonthlyTarget float64 `json:"monthlyTarget"`
	AnnualTarget  float64 `json:"annualTarget"`
	Active        bool    `json:"active"`
}

// PerformanceRecord holds one member's actuals for one calendar month.
type PerformanceRecord struct {
	ID       string             `json:"id,omitempty"`
	MemberID string             `json:"memberId"`
	Month    int                `json:"month"`
	Year     int                `json:"year"`
	Values   map[string]float64 `json:"values"`
}

// Value returns the actual recorded for key, or 0 when the key is absent.
func (r PerformanceRecord) Value(key string) float64 {
	return r.Values[key]
}

func (r PerformanceRecord) monthIndex() int {
	return monthIndex(r.Year, r.Month)
}

type EffectiveTarget struct {
	KPIKey        string  `json:"kpiKey"`
	MonthlyTarget float64 `json:"monthlyTarget"`
	AnnualTarget  float64 `json:"annualTarget"`
	Source        string  `json:"source"`
}

func (t EffectiveTarget) Tracked() bool {
	return t.Source != SourceNone && t.MonthlyTarget > 0
}
