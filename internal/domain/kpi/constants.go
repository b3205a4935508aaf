package kpi

const (
	KindCount     = "count"
	KindDelivered = "delivered"

	SourceUser        = "user"
	SourceDesignation = "designation"
	SourceNone        = "none"

	MemberStatusActive   = "active"
	MemberStatusArchived = "archived"

	// The operating cycle is thirteen months long; delivered KPIs expect one
	// delivery per month of it.
	CycleMonths            = 13
	DeliveredMonthlyTarget = 1
	DeliveredAnnualTarget  = 13

	MaxRecommendations = 5
)

var Kinds = []string{KindCount, KindDelivered}
