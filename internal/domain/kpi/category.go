package kpi

type Category string

const (
	CategoryCritical Category = "Critical"
	CategoryBad      Category = "Bad"
	CategoryTarget   Category = "Target"
	CategoryGood     Category = "Good"
	CategoryNoData   Category = "No Data"
)

// Band lower bounds are inclusive.
const (
	BadFloor    = 67
	TargetFloor = 84
	GoodFloor   = 120
)

type CategoryInfo struct {
	Category    Category `json:"category"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryCritical: {Category: CategoryCritical, Color: "#dc2626", Description: "Well below target; needs immediate attention"},
	CategoryBad:      {Category: CategoryBad, Color: "#f59e0b", Description: "Below target; improvement required"},
	CategoryTarget:   {Category: CategoryTarget, Color: "#2563eb", Description: "On target"},
	CategoryGood:     {Category: CategoryGood, Color: "#16a34a", Description: "Well above target"},
	CategoryNoData:   {Category: CategoryNoData, Color: "#6b7280", Description: "No performance data for the period"},
}

// Classify maps an overall achievement percent to its band.
func Classify(percent int) Category {
	switch {
	case percent >= GoodFloor:
		return CategoryGood
	case percent >= TargetFloor:
		return CategoryTarget
	case percent >= BadFloor:
		return CategoryBad
	default:
		return CategoryCritical
	}
}

func (c Category) Info() CategoryInfo {
	if info, ok := categoryInfo[c]; ok {
		return info
	}
	return CategoryInfo{Category: c}
}
