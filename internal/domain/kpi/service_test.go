package kpi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/domain/kpi/kpitest"
	"kpitrack/internal/platform/cache"
)

func newTestService(t *testing.T) (*kpi.Service, *kpitest.Store) {
	t.Helper()
	store := kpitest.FromSnapshot(kpi.Snapshot{
		Members: []kpi.TeamMember{
			{ID: "m1", Name: "Ada", Designation: "Outreach Officer", Status: kpi.MemberStatusActive},
			{ID: "m2", Name: "Grace", Designation: "Outreach Officer", Status: kpi.MemberStatusActive},
			{ID: "m3", Name: "Linus", Designation: "Outreach Officer", Status: kpi.MemberStatusArchived},
		},
		Definitions: []kpi.Definition{
			{Key: "monthly_outreaches", Label: "Monthly Outreaches", Kind: kpi.KindCount, Active: true},
			{Key: "report_delivered", Label: "Monthly Report Delivered", Kind: kpi.KindDelivered, Active: true},
		},
	})
	svc := kpi.NewService(store, cache.NewMemory())
	svc.Now = func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func ptr(v float64) *float64 { return &v }

func TestSetDesignationTargetRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name        string
		input       kpi.TargetInput
		wantMonthly float64
		wantAnnual  float64
	}{
		{
			name:        "count kpi without annual uses thirteen months",
			input:       kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 525},
			wantMonthly: 525,
			wantAnnual:  6825,
		},
		{
			name:        "explicit zero annual is kept",
			input:       kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 525, AnnualTarget: ptr(0)},
			wantMonthly: 525,
			wantAnnual:  0,
		},
		{
			name:        "explicit annual is kept",
			input:       kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 500, AnnualTarget: ptr(6000)},
			wantMonthly: 500,
			wantAnnual:  6000,
		},
		{
			name:        "delivered kpi is forced to one per month",
			input:       kpi.TargetInput{KPIKey: "report_delivered", MonthlyTarget: 4, AnnualTarget: ptr(40)},
			wantMonthly: 1,
			wantAnnual:  13,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.SetDesignationTarget(ctx, "Outreach Officer", tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.wantMonthly, got.MonthlyTarget)
			assert.Equal(t, tc.wantAnnual, got.AnnualTarget)
		})
	}
}

func TestSetTargetValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SetDesignationTarget(ctx, "Outreach Officer", kpi.TargetInput{KPIKey: "unknown", MonthlyTarget: 5})
	require.ErrorIs(t, err, kpi.ErrKPINotFound)

	_, err = svc.SetDesignationTarget(ctx, "Outreach Officer", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: -1})
	require.ErrorIs(t, err, kpi.ErrInvalidTarget)

	_, err = svc.SetDesignationTarget(ctx, "", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 1})
	require.ErrorIs(t, err, kpi.ErrInvalidTarget)

	_, err = svc.SetUserTarget(ctx, "nobody", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 1})
	require.ErrorIs(t, err, kpi.ErrMemberNotFound)
}

func TestUserTargetOverrideAndDeactivate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SetDesignationTarget(ctx, "Outreach Officer", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 525})
	require.NoError(t, err)
	_, err = svc.SetUserTarget(ctx, "m1", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 600})
	require.NoError(t, err)

	targets, err := svc.EffectiveTargets(ctx, "m1", "monthly_outreaches")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, kpi.SourceUser, targets[0].Source)
	assert.Equal(t, 600.0, targets[0].MonthlyTarget)
	assert.Equal(t, 7800.0, targets[0].AnnualTarget)

	changed, err := svc.DeactivateUserTarget(ctx, "m1", "monthly_outreaches")
	require.NoError(t, err)
	assert.True(t, changed)

	targets, err = svc.EffectiveTargets(ctx, "m1", "")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, kpi.SourceDesignation, targets[0].Source)
	assert.Equal(t, kpi.SourceNone, targets[1].Source)
}

func TestSaveRecordValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 13})
	require.ErrorIs(t, err, kpi.ErrInvalidRecord)

	_, err = svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 1, Values: map[string]float64{"made_up": 1}})
	require.ErrorIs(t, err, kpi.ErrInvalidRecord)

	_, err = svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 1, Values: map[string]float64{"monthly_outreaches": -3}})
	require.ErrorIs(t, err, kpi.ErrInvalidRecord)

	_, err = svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "ghost", Year: 2024, Month: 1})
	require.ErrorIs(t, err, kpi.ErrMemberNotFound)

	saved, err := svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 1, Values: map[string]float64{"monthly_outreaches": 500}})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
}

func TestMemberReportCachesUntilDataChanges(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	window := kpi.NewWindow(2024, 1, 2024, 12)

	_, err := svc.SetDesignationTarget(ctx, "Outreach Officer", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 500, AnnualTarget: ptr(0)})
	require.NoError(t, err)
	_, err = svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 1, Values: map[string]float64{"monthly_outreaches": 500}})
	require.NoError(t, err)

	first, err := svc.MemberReport(ctx, "m1", window)
	require.NoError(t, err)
	assert.Equal(t, 100, first.Achievements.OverallAveragePercent)
	loads := store.SnapshotLoads

	second, err := svc.MemberReport(ctx, "m1", window)
	require.NoError(t, err)
	assert.Equal(t, loads, store.SnapshotLoads, "second report should come from cache")
	assert.Equal(t, first.Achievements, second.Achievements)

	_, err = svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 2, Values: map[string]float64{"monthly_outreaches": 700}})
	require.NoError(t, err)

	third, err := svc.MemberReport(ctx, "m1", window)
	require.NoError(t, err)
	assert.Greater(t, store.SnapshotLoads, loads)
	assert.Equal(t, 120, third.Achievements.OverallAveragePercent)
	assert.Equal(t, kpi.CategoryGood, third.Category)
}

func TestMemberReportErrors(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.MemberReport(ctx, "m1", kpi.NewWindow(2024, 6, 2024, 1))
	require.ErrorIs(t, err, kpi.ErrInvalidWindow)

	_, err = svc.MemberReport(ctx, "ghost", kpi.NewWindow(2024, 1, 2024, 6))
	require.ErrorIs(t, err, kpi.ErrMemberNotFound)

	_, err = svc.MemberReport(ctx, "m1", kpi.NewWindow(2024, 1, 2024, 6))
	require.ErrorIs(t, err, kpi.ErrNoPerformanceData)

	store.Err = errors.New("connection refused")
	_, err = svc.Achievements(ctx, "m1", kpi.NewWindow(2024, 1, 2024, 6))
	require.Error(t, err)
	assert.NotErrorIs(t, err, kpi.ErrNoPerformanceData)
}

func TestTeamReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	svc.Concurrency = 2

	_, err := svc.SetDesignationTarget(ctx, "Outreach Officer", kpi.TargetInput{KPIKey: "monthly_outreaches", MonthlyTarget: 100, AnnualTarget: ptr(0)})
	require.NoError(t, err)
	_, err = svc.SaveRecord(ctx, kpi.PerformanceRecord{MemberID: "m1", Year: 2024, Month: 3, Values: map[string]float64{"monthly_outreaches": 50}})
	require.NoError(t, err)

	report, err := svc.TeamReport(ctx, kpi.NewWindow(2024, 1, 2024, 12))
	require.NoError(t, err)
	require.Len(t, report.Members, 2, "archived members are skipped")

	byID := map[string]kpi.TeamReportEntry{}
	for _, e := range report.Members {
		byID[e.MemberID] = e
	}
	assert.Equal(t, kpi.CategoryCritical, byID["m1"].Category)
	assert.Equal(t, 50, byID["m1"].OverallAveragePercent)
	assert.Equal(t, kpi.CategoryNoData, byID["m2"].Category)
	assert.Equal(t, 1, report.CategoryCounts[kpi.CategoryCritical])
	assert.Equal(t, 1, report.CategoryCounts[kpi.CategoryNoData])
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestSaveMemberAndDefinitionValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SaveMember(ctx, kpi.TeamMember{Name: "Ken"})
	require.ErrorIs(t, err, kpi.ErrInvalidMember)

	member, err := svc.SaveMember(ctx, kpi.TeamMember{Name: " Ken ", Designation: "Field Lead"})
	require.NoError(t, err)
	assert.Equal(t, "Ken", member.Name)
	assert.Equal(t, kpi.MemberStatusActive, member.Status)

	_, err = svc.SaveDefinition(ctx, kpi.Definition{Key: "x", Kind: "ratio"})
	require.ErrorIs(t, err, kpi.ErrInvalidDefinition)

	def, err := svc.SaveDefinition(ctx, kpi.Definition{Key: "site_visits", Active: true})
	require.NoError(t, err)
	assert.Equal(t, kpi.KindCount, def.Kind)
	assert.Equal(t, "site_visits", def.Label)

	require.NoError(t, svc.ArchiveMember(ctx, member.ID))
	require.ErrorIs(t, svc.ArchiveMember(ctx, "ghost"), kpi.ErrMemberNotFound)
}
