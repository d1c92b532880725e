package compensation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rates are kept encrypted at rest as one JSON document.
type Rates struct {
	PerDay           decimal.Decimal `json:"perDayRate"`
	Hourly           decimal.Decimal `json:"hourlyRate"`
	Monthly          decimal.Decimal `json:"monthlySalary"`
	PerMinutePenalty decimal.Decimal `json:"perMinuteLateRate"`
}

type Policy struct {
	EmployeeID         string    `json:"employeeId"`
	SalaryType         string    `json:"salaryType"`
	Rates              Rates     `json:"rates"`
	LatePenaltyEnabled bool      `json:"latePenaltyEnabled"`
	UpdatedBy          string    `json:"updatedBy,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Adjustment struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Period     string          `json:"period"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	AddedBy    string          `json:"addedBy"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	DeletedAt  *time.Time      `json:"deletedAt,omitempty"`
}

type AdjustmentInput struct {
	EmployeeID string
	Period     string
	Type       string
	Amount     decimal.Decimal
	Reason     string
	AddedBy    string
}

type Payable struct {
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName,omitempty"`
	Period       string          `json:"period"`
	SalaryType   string          `json:"salaryType"`
	PayableDays  decimal.Decimal `json:"payableDays"`
	WorkedHours  decimal.Decimal `json:"workedHours"`
	BasePay      decimal.Decimal `json:"basePay"`
	LateMinutes  int             `json:"lateMinutes"`
	LatePenalty  decimal.Decimal `json:"latePenalty"`
	Additions    decimal.Decimal `json:"additions"`
	Deductions   decimal.Decimal `json:"deductions"`
	Amount       decimal.Decimal `json:"amount"`
	Adjustments  []Adjustment    `json:"adjustments"`
	ComputedAt   time.Time       `json:"computedAt"`
}

type PeriodRun struct {
	Period        string          `json:"period"`
	Payables      []Payable       `json:"payables"`
	WithoutPolicy []string        `json:"withoutPolicy"`
	Errors        []PeriodError   `json:"errors"`
	Total         decimal.Decimal `json:"total"`
}

// PeriodError is one employee the run could not compute.
type PeriodError struct {
	EmployeeID string `json:"employeeId"`
	Error      string `json:"error"`
}
