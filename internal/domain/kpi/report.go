package kpi

import (
	"fmt"
	"time"
)

type Report struct {
	Member          TeamMember        `json:"member"`
	Window          PeriodWindow      `json:"window"`
	Achievements    AchievementReport `json:"achievements"`
	Category        Category          `json:"category"`
	CategoryInfo    CategoryInfo      `json:"categoryInfo"`
	Insights        Insights          `json:"insights"`
	Recommendations []string          `json:"recommendations"`
	GeneratedAt     time.Time         `json:"generatedAt,omitzero"`
}

// BuildReport composes achievements, category, insights and recommendations
// for one member. It returns ErrNoPerformanceData when the window is empty.
func (s Snapshot) BuildReport(memberID string, window PeriodWindow, strategy Recommender) (Report, error) {
	member, ok := s.Member(memberID)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}

	achievements, err := s.ComputeAchievements(memberID, window)
	if err != nil {
		return Report{}, err
	}

	category := CategoryNoData
	if achievements.Scored {
		category = Classify(achievements.OverallAveragePercent)
	}

	latest, _ := LatestRecord(s.Records, memberID, window)
	recommendations := GenerateRecommendations(
		strategy,
		latest,
		PriorRecords(s.Records, latest),
		s.ResolveTargets(memberID),
		s.Labels(),
	)

	return Report{
		Member:          member,
		Window:          window,
		Achievements:    achievements,
		Category:        category,
		CategoryInfo:    category.Info(),
		Insights:        GenerateInsights(achievements.Results),
		Recommendations: recommendations,
	}, nil
}

type TeamReportEntry struct {
	MemberID              string   `json:"memberId"`
	Name                  string   `json:"name"`
	Designation           string   `json:"designation"`
	Category              Category `json:"category"`
	OverallAveragePercent int      `json:"overallAveragePercent"`
	RecordCount           int      `json:"recordCount"`
}

type TeamReport struct {
	Window         PeriodWindow      `json:"window"`
	Members        []TeamReportEntry `json:"members"`
	CategoryCounts map[Category]int  `json:"categoryCounts"`
	GeneratedAt    time.Time         `json:"generatedAt,omitzero"`
}

func EntryFromReport(r Report) TeamReportEntry {
	return TeamReportEntry{
		MemberID:              r.Member.ID,
		Name:                  r.Member.Name,
		Designation:           r.Member.Designation,
		Category:              r.Category,
		OverallAveragePercent: r.Achievements.OverallAveragePercent,
		RecordCount:           r.Achievements.RecordCount,
	}
}
