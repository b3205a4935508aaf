package auth

import (
	"context"
	"testing"
)

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestStaticPermissions(t *testing.T) {
	store := StaticPermissions{}
	ctx := context.Background()

	if ok, _ := store.HasPermission(ctx, RoleMember, PermReportsRead); !ok {
		t.Fatal("members should read reports")
	}
	if ok, _ := store.HasPermission(ctx, RoleMember, PermTargetsWrite); ok {
		t.Fatal("members should not write targets")
	}
	if ok, _ := store.HasPermission(ctx, "Intruder", PermReportsRead); ok {
		t.Fatal("unknown role should have no permissions")
	}
}

func TestCanViewMember(t *testing.T) {
	if !CanViewMember(UserContext{RoleName: RoleManager}, "m2") {
		t.Fatal("managers see every member")
	}
	if !CanViewMember(UserContext{RoleName: RoleMember, MemberID: "m1"}, "m1") {
		t.Fatal("members see themselves")
	}
	if CanViewMember(UserContext{RoleName: RoleMember, MemberID: "m1"}, "m2") {
		t.Fatal("members must not see others")
	}
	if CanViewMember(UserContext{RoleName: RoleMember}, "") {
		t.Fatal("unlinked members see nobody")
	}
}
