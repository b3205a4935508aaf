// Package kpitest provides an in-memory kpi.StoreAPI for tests.
package kpitest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"kpitrack/internal/domain/kpi"
)

type Store struct {
	mu                 sync.Mutex
	members            []kpi.TeamMember
	definitions        []kpi.Definition
	designationTargets []kpi.DesignationTarget
	userTargets        []kpi.UserTarget
	records            []kpi.PerformanceRecord
	nextID             int

	// SnapshotLoads counts LoadSnapshot calls.
	SnapshotLoads int
	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{}
}

// FromSnapshot seeds a store with the contents of snap.
func FromSnapshot(snap kpi.Snapshot) *Store {
	return &Store{
		members:            slices.Clone(snap.Members),
		definitions:        slices.Clone(snap.Definitions),
		designationTargets: slices.Clone(snap.DesignationTargets),
		userTargets:        slices.Clone(snap.UserTargets),
		records:            slices.Clone(snap.Records),
	}
}

func (s *Store) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Store) ListMembers(_ context.Context, status string) ([]kpi.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []kpi.TeamMember{}
	for _, m := range s.members {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) GetMember(_ context.Context, memberID string) (kpi.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return kpi.TeamMember{}, s.Err
	}
	for _, m := range s.members {
		if m.ID == memberID {
			return m, nil
		}
	}
	return kpi.TeamMember{}, kpi.ErrMemberNotFound
}

func (s *Store) UpsertMember(_ context.Context, member kpi.TeamMember) (kpi.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return kpi.TeamMember{}, s.Err
	}
	if member.ID == "" {
		member.ID = s.id("member")
	}
	for i, m := range s.members {
		if m.ID == member.ID {
			s.members[i] = member
			return member, nil
		}
	}
	s.members = append(s.members, member)
	return member, nil
}

func (s *Store) SetMemberStatus(_ context.Context, memberID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i, m := range s.members {
		if m.ID == memberID {
			s.members[i].Status = status
			return nil
		}
	}
	return kpi.ErrMemberNotFound
}

func (s *Store) ListDefinitions(_ context.Context) ([]kpi.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]kpi.Definition{}, s.definitions...), nil
}

func (s *Store) GetDefinition(_ context.Context, key string) (kpi.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return kpi.Definition{}, s.Err
	}
	for _, d := range s.definitions {
		if d.Key == key {
			return d, nil
		}
	}
	return kpi.Definition{}, kpi.ErrKPINotFound
}

func (s *Store) UpsertDefinition(_ context.Context, def kpi.Definition) (kpi.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return kpi.Definition{}, s.Err
	}
	for i, d := range s.definitions {
		if d.Key == def.Key {
			def.ID = d.ID
			s.definitions[i] = def
			return def, nil
		}
	}
	def.ID = s.id("kpi")
	s.definitions = append(s.definitions, def)
	return def, nil
}

func (s *Store) ListDesignationTargets(_ context.Context, designation string) ([]kpi.DesignationTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []kpi.DesignationTarget{}
	for _, t := range s.designationTargets {
		if designation == "" || t.Designation == designation {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) UpsertDesignationTarget(_ context.Context, target kpi.DesignationTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i, t := range s.designationTargets {
		if t.Designation == target.Designation && t.KPIKey == target.KPIKey {
			s.designationTargets[i] = target
			return nil
		}
	}
	s.designationTargets = append(s.designationTargets, target)
	return nil
}

func (s *Store) ListUserTargets(_ context.Context, memberID string) ([]kpi.UserTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []kpi.UserTarget{}
	for _, t := range s.userTargets {
		if memberID == "" || t.MemberID == memberID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) UpsertUserTarget(_ context.Context, target kpi.UserTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i, t := range s.userTargets {
		if t.MemberID == target.MemberID && t.KPIKey == target.KPIKey {
			s.userTargets[i] = target
			return nil
		}
	}
	s.userTargets = append(s.userTargets, target)
	return nil
}

func (s *Store) DeactivateUserTarget(_ context.Context, memberID, kpiKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for i, t := range s.userTargets {
		if t.MemberID == memberID && t.KPIKey == kpiKey && t.Active {
			s.userTargets[i].Active = false
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListRecords(_ context.Context, memberID string) ([]kpi.PerformanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.recordsFor(memberID), nil
}

func (s *Store) UpsertRecord(_ context.Context, record kpi.PerformanceRecord) (kpi.PerformanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return kpi.PerformanceRecord{}, s.Err
	}
	for i, r := range s.records {
		if r.MemberID == record.MemberID && r.Year == record.Year && r.Month == record.Month {
			record.ID = r.ID
			s.records[i] = record
			return record, nil
		}
	}
	record.ID = s.id("record")
	s.records = append(s.records, record)
	return record, nil
}

func (s *Store) LoadSnapshot(_ context.Context, memberID string) (kpi.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SnapshotLoads++
	if s.Err != nil {
		return kpi.Snapshot{}, s.Err
	}

	snap := kpi.Snapshot{
		Definitions:        slices.Clone(s.definitions),
		DesignationTargets: slices.Clone(s.designationTargets),
		Records:            s.recordsFor(memberID),
	}
	for _, m := range s.members {
		if memberID == "" || m.ID == memberID {
			snap.Members = append(snap.Members, m)
		}
	}
	for _, t := range s.userTargets {
		if memberID == "" || t.MemberID == memberID {
			snap.UserTargets = append(snap.UserTargets, t)
		}
	}
	return snap, nil
}

func (s *Store) recordsFor(memberID string) []kpi.PerformanceRecord {
	out := []kpi.PerformanceRecord{}
	for _, r := range s.records {
		if memberID == "" || r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out
}
