package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

const (
	PermAttendanceRead    = "attendance.read"
	PermAttendanceWrite   = "attendance.write"
	PermAttendanceImport  = "attendance.import"
	PermAttendanceGrace   = "attendance.grace"
	PermAttendanceDelete  = "attendance.delete"
	PermHolidaysWrite     = "attendance.holidays.write"
	PermTimeTrack         = "time.track"
	PermTimeRead          = "time.read"
	PermCompensationRead  = "compensation.read"
	PermCompensationWrite = "compensation.write"
	PermMetricsRead       = "admin.metrics"
	PermAuditRead         = "audit.read"
)

var DefaultPermissions = []string{
	PermAttendanceRead,
	PermAttendanceWrite,
	PermAttendanceImport,
	PermAttendanceGrace,
	PermAttendanceDelete,
	PermHolidaysWrite,
	PermTimeTrack,
	PermTimeRead,
	PermCompensationRead,
	PermCompensationWrite,
	PermMetricsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermAttendanceRead,
		PermTimeTrack,
		PermTimeRead,
	},
	RoleManager: {
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceGrace,
		PermTimeTrack,
		PermTimeRead,
	},
	RoleHR: {
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceImport,
		PermAttendanceGrace,
		PermHolidaysWrite,
		PermTimeTrack,
		PermTimeRead,
		PermCompensationRead,
		PermCompensationWrite,
		PermAuditRead,
	},
	RoleAdmin: DefaultPermissions,
}

// UserContext is the caller identity attached to a request by the auth middleware.
type UserContext struct {
	UserID     string
	EmployeeID string
	RoleID     string
	RoleName   string
}
