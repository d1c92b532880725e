package core

import "time"

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusTerminated = "terminated"
)

type Employee struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	EmployeeNumber string    `json:"employeeNumber,omitempty"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DisplayName is the identifier used in bulk upload sheets and templates.
func (e Employee) DisplayName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
