package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEffectiveTargetPrecedence(t *testing.T) {
	member := officer()
	designation := []DesignationTarget{
		{Designation: "Outreach Officer", KPIKey: outreachKey, MonthlyTarget: 525, AnnualTarget: 6825},
	}

	tests := []struct {
		name   string
		user   []UserTarget
		design []DesignationTarget
		want   EffectiveTarget
	}{
		{
			name:   "active user target wins",
			user:   []UserTarget{{MemberID: "m1", KPIKey: outreachKey, MonthlyTarget: 600, AnnualTarget: 7800, Active: true}},
			design: designation,
			want:   EffectiveTarget{KPIKey: outreachKey, MonthlyTarget: 600, AnnualTarget: 7800, Source: SourceUser},
		},
		{
			name:   "inactive user target falls back to designation",
			user:   []UserTarget{{MemberID: "m1", KPIKey: outreachKey, MonthlyTarget: 600, AnnualTarget: 7800, Active: false}},
			design: designation,
			want:   EffectiveTarget{KPIKey: outreachKey, MonthlyTarget: 525, AnnualTarget: 6825, Source: SourceDesignation},
		},
		{
			name:   "zero monthly user target is treated as absent",
			user:   []UserTarget{{MemberID: "m1", KPIKey: outreachKey, MonthlyTarget: 0, AnnualTarget: 7800, Active: true}},
			design: designation,
			want:   EffectiveTarget{KPIKey: outreachKey, MonthlyTarget: 525, AnnualTarget: 6825, Source: SourceDesignation},
		},
		{
			name:   "other member's target is ignored",
			user:   []UserTarget{{MemberID: "m2", KPIKey: outreachKey, MonthlyTarget: 600, Active: true}},
			design: designation,
			want:   EffectiveTarget{KPIKey: outreachKey, MonthlyTarget: 525, AnnualTarget: 6825, Source: SourceDesignation},
		},
		{
			name:   "zero designation target resolves to none",
			design: []DesignationTarget{{Designation: "Outreach Officer", KPIKey: outreachKey, MonthlyTarget: 0, AnnualTarget: 6825}},
			want:   EffectiveTarget{KPIKey: outreachKey, Source: SourceNone},
		},
		{
			name:   "different designation resolves to none",
			design: []DesignationTarget{{Designation: "Field Lead", KPIKey: outreachKey, MonthlyTarget: 525}},
			want:   EffectiveTarget{KPIKey: outreachKey, Source: SourceNone},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveEffectiveTarget(member, outreachKey, tc.user, tc.design)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSnapshotResolveUnknownMember(t *testing.T) {
	snap := Snapshot{
		Definitions:        outreachDefs(),
		DesignationTargets: []DesignationTarget{
			{Designation: "", KPIKey: outreachKey, MonthlyTarget: 525},
		},
		UserTargets: []UserTarget{
			{MemberID: "ghost", KPIKey: visitsKey, MonthlyTarget: 4, Active: true},
		},
	}

	assert.Equal(t, SourceNone, snap.ResolveEffectiveTarget("ghost", outreachKey).Source)
	assert.Equal(t, SourceUser, snap.ResolveEffectiveTarget("ghost", visitsKey).Source)
}

func TestSnapshotResolveTargetsSkipsInactiveDefinitions(t *testing.T) {
	defs := outreachDefs()
	defs[2].Active = false
	snap := Snapshot{Members: []TeamMember{officer()}, Definitions: defs}

	targets := snap.ResolveTargets("m1")
	keys := make([]string, 0, len(targets))
	for _, target := range targets {
		keys = append(keys, target.KPIKey)
	}
	assert.Equal(t, []string{outreachKey, deliveredKey}, keys)
}
