package kpi

const (
	outreachKey  = "monthly_outreaches"
	deliveredKey = "report_delivered"
	visitsKey    = "site_visits"
)

func outreachDefs() []Definition {
	return []Definition{
		{ID: "k1", Key: outreachKey, Label: "Monthly Outreaches", Kind: KindCount, Active: true},
		{ID: "k2", Key: deliveredKey, Label: "Monthly Report Delivered", Kind: KindDelivered, Active: true},
		{ID: "k3", Key: visitsKey, Label: "Site Visits", Kind: KindCount, Active: true},
	}
}

func officer() TeamMember {
	return TeamMember{ID: "m1", Name: "Ada", Designation: "Outreach Officer", Status: MemberStatusActive}
}

// monthlyRecords builds one record per month starting at year/month.
func monthlyRecords(memberID string, year, month int, values ...map[string]float64) []PerformanceRecord {
	out := make([]PerformanceRecord, 0, len(values))
	for _, v := range values {
		out = append(out, PerformanceRecord{MemberID: memberID, Year: year, Month: month, Values: v})
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return out
}
