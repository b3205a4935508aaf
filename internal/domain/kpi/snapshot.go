package kpi

// Snapshot is a consistent, read-only view of everything the engine needs.
// Every engine computation is a pure function of a Snapshot.
type Snapshot struct {
	Members            []TeamMember        `json:"members"`
	Definitions        []Definition        `json:"definitions"`
	DesignationTargets []DesignationTarget `json:"designationTargets"`
	UserTargets        []UserTarget        `json:"userTargets"`
	Records            []PerformanceRecord `json:"records"`
}

func (s Snapshot) Member(id string) (TeamMember, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return TeamMember{}, false
}

func (s Snapshot) Definition(key string) (Definition, bool) {
	for _, d := range s.Definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

func (s Snapshot) ActiveDefinitions() []Definition {
	out := make([]Definition, 0, len(s.Definitions))
	for _, d := range s.Definitions {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

// Labels maps KPI keys to display labels.
func (s Snapshot) Labels() map[string]string {
	labels := make(map[string]string, len(s.Definitions))
	for _, d := range s.Definitions {
		labels[d.Key] = d.DisplayLabel()
	}
	return labels
}

func (s Snapshot) MemberRecords(memberID string) []PerformanceRecord {
	var out []PerformanceRecord
	for _, r := range s.Records {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out
}

// ResolveEffectiveTarget resolves one KPI for a member. An unknown member can
// still match its own user targets but never a designation target.
func (s Snapshot) ResolveEffectiveTarget(memberID, kpiKey string) EffectiveTarget {
	member, ok := s.Member(memberID)
	if !ok {
		member = TeamMember{ID: memberID}
	}
	return ResolveEffectiveTarget(member, kpiKey, s.UserTargets, s.DesignationTargets)
}

// ResolveTargets resolves every active KPI in registry order.
func (s Snapshot) ResolveTargets(memberID string) []EffectiveTarget {
	member, ok := s.Member(memberID)
	if !ok {
		member = TeamMember{ID: memberID}
	}
	defs := s.ActiveDefinitions()
	out := make([]EffectiveTarget, 0, len(defs))
	for _, d := range defs {
		out = append(out, ResolveEffectiveTarget(member, d.Key, s.UserTargets, s.DesignationTargets))
	}
	return out
}
