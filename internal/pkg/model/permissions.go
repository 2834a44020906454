package model

import "github.com/samber/lo"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type Permission string

const (
	PermDeviceControl    Permission = "device:control"
	PermEmergencyControl Permission = "emergency:control"
	PermSecurityView     Permission = "security:view"
	PermSecurityManage   Permission = "security:manage"
	PermUsersManage      Permission = "users:manage"
	PermAlertsView       Permission = "alerts:view"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermDeviceControl,
		PermEmergencyControl,
		PermSecurityView,
		PermSecurityManage,
		PermUsersManage,
		PermAlertsView,
	},
	RoleUser: {
		PermDeviceControl,
		PermEmergencyControl,
		PermAlertsView,
	},
}

func (r Role) HasPermission(permission Permission) bool {
	return lo.Contains(rolePermissions[r], permission)
}

func (r Role) HasAnyPermission(permissions ...Permission) bool {
	return lo.SomeBy(permissions, r.HasPermission)
}
