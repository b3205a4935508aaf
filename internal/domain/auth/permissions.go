package auth

import (
	"context"
	"slices"
)

const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleMember  = "Member"
)

const (
	PermMembersRead  = "members.read"
	PermMembersWrite = "members.write"
	PermKPIRead      = "kpi.read"
	PermKPIWrite     = "kpi.write"
	PermTargetsWrite = "targets.write"
	PermRecordsWrite = "records.write"
	PermReportsRead  = "reports.read"
	PermReportsRun   = "reports.run"
	PermJobsRead     = "jobs.read"
	PermAuditRead    = "audit.read"
)

var DefaultPermissions = []string{
	PermMembersRead,
	PermMembersWrite,
	PermKPIRead,
	PermKPIWrite,
	PermTargetsWrite,
	PermRecordsWrite,
	PermReportsRead,
	PermReportsRun,
	PermJobsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleMember: {
		PermMembersRead,
		PermKPIRead,
		PermReportsRead,
	},
	RoleManager: {
		PermMembersRead,
		PermKPIRead,
		PermTargetsWrite,
		PermRecordsWrite,
		PermReportsRead,
		PermReportsRun,
		PermJobsRead,
	},
	RoleAdmin: DefaultPermissions,
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return slices.Contains(RolePermissions[role], permission), nil
}

// CanViewMember reports whether user may read another member's data.
// Members only see their own.
func CanViewMember(user UserContext, memberID string) bool {
	if user.RoleName == RoleAdmin || user.RoleName == RoleManager {
		return true
	}
	return user.MemberID != "" && user.MemberID == memberID
}
