package auth

import "context"

const (
	RoleEmployee    = "employee"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

const (
	PermLeaveRead     = "leave.read"
	PermLeaveWrite    = "leave.write"
	PermLeaveApprove  = "leave.approve"
	PermLeaveReadAll  = "leave.read_all"
	PermBalanceManage = "leave.balance.manage"
	PermAuditRead     = "audit.read"
	PermSystemAdmin   = "admin.system"
)

var DefaultPermissions = []string{
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveReadAll,
	PermBalanceManage,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
	},
	RoleManager: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveReadAll,
	},
	RoleHR: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveReadAll,
		PermBalanceManage,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
	},
}

// StaticPermissions resolves permissions from RolePermissions. Roles are
// issued by the identity provider, so there is nothing to look up.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return HasPermission(role, permission), nil
}

func HasPermission(role, permission string) bool {
	for _, candidate := range RolePermissions[role] {
		if candidate == permission {
			return true
		}
	}
	return false
}
