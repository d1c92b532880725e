package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPresent      = "present"
	StatusAbsent       = "absent"
	StatusHalfDay      = "half_day"
	StatusLeave        = "leave"
	StatusWorkFromHome = "work_from_home"
	StatusSickLeave    = "sick_leave"
	StatusCasualLeave  = "casual_leave"
	StatusHoliday      = "holiday"
	StatusWeekoff      = "weekoff"
	StatusCheckedIn    = "checked_in"
	StatusCheckedOut   = "checked_out"
)

const (
	SourceManual = "manual"
	SourceImport = "import"
)

// Resolution sources reported on a ResolvedDay.
const (
	ResolvedFromHoliday = "holiday"
	ResolvedFromWeekoff = "weekoff"
	ResolvedFromLeave   = "leave"
	ResolvedFromRecord  = "record"
	ResolvedFromDefault = "default"
)

var validStatuses = map[string]struct{}{
	StatusPresent:      {},
	StatusAbsent:       {},
	StatusHalfDay:      {},
	StatusLeave:        {},
	StatusWorkFromHome: {},
	StatusSickLeave:    {},
	StatusCasualLeave:  {},
	StatusHoliday:      {},
	StatusWeekoff:      {},
	StatusCheckedIn:    {},
	StatusCheckedOut:   {},
}

func ValidStatus(status string) bool {
	_, ok := validStatuses[status]
	return ok
}

type Record struct {
	ID              string           `json:"id"`
	EmployeeID      string           `json:"employeeId"`
	WorkDate        time.Time        `json:"workDate"`
	Status          string           `json:"status"`
	CheckIn         *time.Time       `json:"checkInTime,omitempty"`
	CheckOut        *time.Time       `json:"checkOutTime,omitempty"`
	TotalHours      *decimal.Decimal `json:"totalHours,omitempty"`
	IsLate          bool             `json:"isLate"`
	IsEarlyCheckout bool             `json:"isEarlyCheckout"`
	Notes           string           `json:"notes"`
	Source          string           `json:"source"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// RecordInput is the single write shape shared by manual edits and bulk import.
type RecordInput struct {
	EmployeeID      string
	Date            time.Time
	Status          string
	CheckIn         *time.Time
	CheckOut        *time.Time
	TotalHours      *decimal.Decimal
	IsLate          bool
	IsEarlyCheckout bool
	Notes           string
	Source          string
}

// RecordPatch is a manual edit. Nil fields keep the stored value; Status is required.
type RecordPatch struct {
	Status          string
	CheckIn         *time.Time
	CheckOut        *time.Time
	TotalHours      *decimal.Decimal
	IsLate          *bool
	IsEarlyCheckout *bool
	Notes           *string
}

type GracePeriod struct {
	Date      time.Time `json:"date"`
	Minutes   int       `json:"minutes"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// GraceStatus is what callers see for a date, whether or not an exception exists.
type GraceStatus struct {
	Date      string `json:"date"`
	Active    bool   `json:"active"`
	Minutes   int    `json:"minutes"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"createdBy,omitempty"`
}

type ResolvedDay struct {
	EmployeeID      string           `json:"employeeId"`
	Date            string           `json:"date"`
	Status          string           `json:"status"`
	IsLate          bool             `json:"isLate"`
	IsEarlyCheckout bool             `json:"isEarlyCheckout"`
	LateMinutes     int              `json:"lateMinutes"`
	TotalHours      *decimal.Decimal `json:"totalHours"`
	Source          string           `json:"source"`
	RecordID        string           `json:"recordId,omitempty"`
	LeaveID         string           `json:"leaveId,omitempty"`
	HolidayName     string           `json:"holidayName,omitempty"`
	GraceMinutes    int              `json:"graceMinutes,omitempty"`
}
