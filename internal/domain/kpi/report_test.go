package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	snap := designationSnapshot(
		[]DesignationTarget{
			{Designation: "Outreach Officer", KPIKey: outreachKey, MonthlyTarget: 100},
			{Designation: "Outreach Officer", KPIKey: visitsKey, MonthlyTarget: 10},
		},
		monthlyRecords("m1", 2024, 5, map[string]float64{outreachKey: 130, visitsKey: 7}),
	)

	report, err := snap.BuildReport("m1", NewWindow(2024, 5, 2024, 5), nil)
	require.NoError(t, err)

	assert.Equal(t, "Ada", report.Member.Name)
	assert.Equal(t, CategoryTarget, report.Category)
	assert.Equal(t, CategoryTarget, report.CategoryInfo.Category)
	require.Len(t, report.Insights.Strengths, 1)
	assert.Contains(t, report.Insights.Strengths[0], "Exceptional Monthly Outreaches")
	require.Len(t, report.Insights.Improvements, 1)
	assert.Contains(t, report.Insights.Improvements[0], "Site Visits")
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "Site Visits")
	assert.True(t, report.GeneratedAt.IsZero())
}

func TestBuildReportNoData(t *testing.T) {
	snap := designationSnapshot(nil, nil)

	_, err := snap.BuildReport("m1", NewWindow(2024, 1, 2024, 12), nil)
	require.ErrorIs(t, err, ErrNoPerformanceData)

	_, err = snap.BuildReport("nobody", NewWindow(2024, 1, 2024, 12), nil)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestBuildReportUnscored(t *testing.T) {
	snap := designationSnapshot(nil, monthlyRecords("m1", 2024, 1, map[string]float64{outreachKey: 10}))

	report, err := snap.BuildReport("m1", NewWindow(2024, 1, 2024, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, CategoryNoData, report.Category)
	assert.Equal(t, FallbackRecommendations(), report.Recommendations)
}
