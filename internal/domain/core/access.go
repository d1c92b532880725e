package core

import "opscore/internal/domain/auth"

// CanAccessEmployee reports whether the caller may read or act on another employee's
// attendance, timers and pay. Employees are limited to themselves.
func CanAccessEmployee(user auth.UserContext, employeeID string) bool {
	switch user.RoleName {
	case auth.RoleHR, auth.RoleAdmin, auth.RoleManager:
		return true
	}
	return user.EmployeeID != "" && user.EmployeeID == employeeID
}
