package kpi

import "context"

type StoreAPI interface {
	ListMembers(ctx context.Context, status string) ([]TeamMember, error)
	GetMember(ctx context.Context, memberID string) (TeamMember, error)
	UpsertMember(ctx context.Context, member TeamMember) (TeamMember, error)
	SetMemberStatus(ctx context.Context, memberID, status string) error

	ListDefinitions(ctx context.Context) ([]Definition, error)
	GetDefinition(ctx context.Context, key string) (Definition, error)
	UpsertDefinition(ctx context.Context, def Definition) (Definition, error)

	ListDesignationTargets(ctx context.Context, designation string) ([]DesignationTarget, error)
	UpsertDesignationTarget(ctx context.Context, target DesignationTarget) error

	ListUserTargets(ctx context.Context, memberID string) ([]UserTarget, error)
	UpsertUserTarget(ctx context.Context, target UserTarget) error
	DeactivateUserTarget(ctx context.Context, memberID, kpiKey string) (bool, error)

	ListRecords(ctx context.Context, memberID string) ([]PerformanceRecord, error)
	UpsertRecord(ctx context.Context, record PerformanceRecord) (PerformanceRecord, error)

	// LoadSnapshot reads a consistent view for one member, or for every
	// member when memberID is empty.
	LoadSnapshot(ctx context.Context, memberID string) (Snapshot, error)
}
