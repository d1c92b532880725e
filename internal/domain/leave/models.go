package leave

import "time"

const (
	RequestStatusApproved = "approved"

	SubtypeLeave       = "leave"
	SubtypeSickLeave   = "sick_leave"
	SubtypeCasualLeave = "casual_leave"
)

type Holiday struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ApprovedLeave is the slice of a leave request that matters to day resolution.
type ApprovedLeave struct {
	ID        string    `json:"id"`
	Employee  string    `json:"employeeId"`
	TypeCode  string    `json:"leaveTypeCode"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}
