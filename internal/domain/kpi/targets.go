package kpi

// ResolveEffectiveTarget picks the target that governs kpiKey for member.
// An active user target with a positive monthly value wins; otherwise a
// designation target with a positive monthly value; otherwise SourceNone.
// Stored zeros are treated as absent.
func ResolveEffectiveTarget(member TeamMember, kpiKey string, userTargets []UserTarget, designationTargets []DesignationTarget) EffectiveTarget {
	for _, t := range userTargets {
		if !t.Active || t.MemberID != member.ID || t.MonthlyTarget <= 0 {
			continue
		}
		if t.KPIKey == kpiKey {
			return EffectiveTarget{
				KPIKey:        kpiKey,
				MonthlyTarget: t.MonthlyTarget,
				AnnualTarget:  t.AnnualTarget,
				Source:        SourceUser,
			}
		}
	}

	if member.Designation != "" {
		for _, t := range designationTargets {
			if t.Designation != member.Designation || t.MonthlyTarget <= 0 {
				continue
			}
			if t.KPIKey == kpiKey {
				return EffectiveTarget{
					KPIKey:        kpiKey,
					MonthlyTarget: t.MonthlyTarget,
					AnnualTarget:  t.AnnualTarget,
					Source:        SourceDesignation,
				}
			}
		}
	}

	return EffectiveTarget{KPIKey: kpiKey, Source: SourceNone}
}
