package kpi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"kpitrack/internal/platform/cache"
)

const (
	DefaultReportCacheTTL    = 5 * time.Minute
	DefaultReportConcurrency = 4
)

type Service struct {
	Store       StoreAPI
	Cache       cache.Cache
	Recommender Recommender
	CacheTTL    time.Duration
	Concurrency int
	Now         func() time.Time
}

func NewService(store StoreAPI, reportCache cache.Cache) *Service {
	if reportCache == nil {
		reportCache = cache.Noop{}
	}
	return &Service{
		Store:       store,
		Cache:       reportCache,
		Recommender: TrendRecommender{},
		CacheTTL:    DefaultReportCacheTTL,
		Concurrency: DefaultReportConcurrency,
		Now:         time.Now,
	}
}

func (s *Service) ListMembers(ctx context.Context, status string) ([]TeamMember, error) {
	return s.Store.ListMembers(ctx, status)
}

func (s *Service) GetMember(ctx context.Context, memberID string) (TeamMember, error) {
	return s.Store.GetMember(ctx, memberID)
}

func (s *Service) SaveMember(ctx context.Context, member TeamMember) (TeamMember, error) {
	member, err := normalizeMember(member)
	if err != nil {
		return TeamMember{}, err
	}
	saved, err := s.Store.UpsertMember(ctx, member)
	if err != nil {
		return TeamMember{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) ArchiveMember(ctx context.Context, memberID string) error {
	if err := s.Store.SetMemberStatus(ctx, memberID, MemberStatusArchived); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListDefinitions(ctx context.Context) ([]Definition, error) {
	return s.Store.ListDefinitions(ctx)
}

func (s *Service) SaveDefinition(ctx context.Context, def Definition) (Definition, error) {
	def, err := normalizeDefinition(def)
	if err != nil {
		return Definition{}, err
	}
	saved, err := s.Store.UpsertDefinition(ctx, def)
	if err != nil {
		return Definition{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

func (s *Service) ListDesignationTargets(ctx context.Context, designation string) ([]DesignationTarget, error) {
	return s.Store.ListDesignationTargets(ctx, designation)
}

func (s *Service) SetDesignationTarget(ctx context.Context, designation string, in TargetInput) (DesignationTarget, error) {
	if designation == "" {
		return DesignationTarget{}, fmt.Errorf("%w: designation is required", ErrInvalidTarget)
	}
	def, err := s.Store.GetDefinition(ctx, in.KPIKey)
	if err != nil {
		return DesignationTarget{}, err
	}
	monthly, annual, err := normalizeTarget(def, in)
	if err != nil {
		return DesignationTarget{}, err
	}

	target := DesignationTarget{
		Designation:   designation,
		KPIKey:        def.Key,
		MonthlyTarget: monthly,
		AnnualTarget:  annual,
	}
	if err := s.Store.UpsertDesignationTarget(ctx, target); err != nil {
		return DesignationTarget{}, err
	}
	s.invalidate(ctx)
	return target, nil
}

func (s *Service) ListUserTargets(ctx context.Context, memberID string) ([]UserTarget, error) {
	if _, err := s.Store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return s.Store.ListUserTargets(ctx, memberID)
}

func (s *Service) SetUserTarget(ctx context.Context, memberID string, in TargetInput) (UserTarget, error) {
	if _, err := s.Store.GetMember(ctx, memberID); err != nil {
		return UserTarget{}, err
	}
	def, err := s.Store.GetDefinition(ctx, in.KPIKey)
	if err != nil {
		return UserTarget{}, err
	}
	monthly, annual, err := normalizeTarget(def, in)
	if err != nil {
		return UserTarget{}, err
	}

	target := UserTarget{
		MemberID:      memberID,
		KPIKey:        def.Key,
		MonthlyTarget: monthly,
		AnnualTarget:  annual,
		Active:        true,
	}
	if err := s.Store.UpsertUserTarget(ctx, target); err != nil {
		return UserTarget{}, err
	}
	s.invalidate(ctx)
	return target, nil
}

// DeactivateUserTarget switches an override off so the designation default
// applies again. It reports whether an active override existed.
func (s *Service) DeactivateUserTarget(ctx context.Context, memberID, kpiKey string) (bool, error) {
	changed, err := s.Store.DeactivateUserTarget(ctx, memberID, kpiKey)
	if err != nil {
		return false, err
	}
	if changed {
		s.invalidate(ctx)
	}
	return changed, nil
}

func (s *Service) ListRecords(ctx context.Context, memberID string) ([]PerformanceRecord, error) {
	if _, err := s.Store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return s.Store.ListRecords(ctx, memberID)
}

func (s *Service) SaveRecord(ctx context.Context, record PerformanceRecord) (PerformanceRecord, error) {
	if _, err := s.Store.GetMember(ctx, record.MemberID); err != nil {
		return PerformanceRecord{}, err
	}
	defs, err := s.Store.ListDefinitions(ctx)
	if err != nil {
		return PerformanceRecord{}, err
	}
	if err := validateRecord(record, defs); err != nil {
		return PerformanceRecord{}, err
	}
	saved, err := s.Store.UpsertRecord(ctx, record)
	if err != nil {
		return PerformanceRecord{}, err
	}
	s.invalidate(ctx)
	return saved, nil
}

// EffectiveTargets resolves every active KPI for the member, or only kpiKey
// when it is set.
func (s *Service) EffectiveTargets(ctx context.Context, memberID, kpiKey string) ([]EffectiveTarget, error) {
	snap, err := s.memberSnapshot(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if kpiKey != "" {
		return []EffectiveTarget{snap.ResolveEffectiveTarget(memberID, kpiKey)}, nil
	}
	return snap.ResolveTargets(memberID), nil
}

func (s *Service) Aggregate(ctx context.Context, memberID string, window PeriodWindow) (PeriodAggregate, error) {
	if err := window.Validate(); err != nil {
		return PeriodAggregate{}, err
	}
	snap, err := s.memberSnapshot(ctx, memberID)
	if err != nil {
		return PeriodAggregate{}, err
	}
	return snap.AggregatePeriod(memberID, window)
}

func (s *Service) Achievements(ctx context.Context, memberID string, window PeriodWindow) (AchievementReport, error) {
	if err := window.Validate(); err != nil {
		return AchievementReport{}, err
	}
	snap, err := s.memberSnapshot(ctx, memberID)
	if err != nil {
		return AchievementReport{}, err
	}
	return snap.ComputeAchievements(memberID, window)
}

// MemberReport builds the full report for one member, serving it from the
// cache when the data generation has not moved.
func (s *Service) MemberReport(ctx context.Context, memberID string, window PeriodWindow) (Report, error) {
	if err := window.Validate(); err != nil {
		return Report{}, err
	}

	generation, err := s.Cache.Generation(ctx)
	cacheable := err == nil
	if err != nil {
		log.Warn().Err(err).Msg("report cache generation unavailable")
	}
	key := reportCacheKey(generation, memberID, window)
	if cacheable {
		var cached Report
		hit, err := s.Cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		}
		if hit && err == nil {
			return cached, nil
		}
	}

	snap, err := s.memberSnapshot(ctx, memberID)
	if err != nil {
		return Report{}, err
	}
	report, err := snap.BuildReport(memberID, window, s.Recommender)
	if err != nil {
		return Report{}, err
	}
	report.GeneratedAt = s.now()

	if cacheable {
		if err := s.Cache.Set(ctx, key, report, s.CacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
		}
	}
	return report, nil
}

// TeamReport classifies every active member over window. Members without
// records in the window are listed as No Data.
func (s *Service) TeamReport(ctx context.Context, window PeriodWindow) (TeamReport, error) {
	if err := window.Validate(); err != nil {
		return TeamReport{}, err
	}
	snap, err := s.Store.LoadSnapshot(ctx, "")
	if err != nil {
		return TeamReport{}, err
	}

	members := make([]TeamMember, 0, len(snap.Members))
	for _, m := range snap.Members {
		if m.IsActive() {
			members = append(members, m)
		}
	}

	entries := make([]TeamReportEntry, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, member := range members {
		i, member := i, member
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := snap.BuildReport(member.ID, window, s.Recommender)
			switch {
			case errors.Is(err, ErrNoPerformanceData):
				entries[i] = TeamReportEntry{
					MemberID:    member.ID,
					Name:        member.Name,
					Designation: member.Designation,
					Category:    CategoryNoData,
				}
			case err != nil:
				return fmt.Errorf("report for member %s: %w", member.ID, err)
			default:
				entries[i] = EntryFromReport(report)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TeamReport{}, err
	}

	return TeamReport{
		Window:         window,
		Members:        entries,
		CategoryCounts: countCategories(entries),
		GeneratedAt:    s.now(),
	}, nil
}

func (s *Service) memberSnapshot(ctx context.Context, memberID string) (Snapshot, error) {
	snap, err := s.Store.LoadSnapshot(ctx, memberID)
	if err != nil {
		return Snapshot{}, err
	}
	if _, ok := snap.Member(memberID); !ok {
		return Snapshot{}, ErrMemberNotFound
	}
	return snap, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Bump(ctx); err != nil {
		log.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

func (s *Service) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return DefaultReportConcurrency
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
