package enums

import (
	"fmt"
	"strings"
)

// EmployeeStatus tracks whether an employee may sign in.
type EmployeeStatus string

const (
	EmployeeStatusActive    EmployeeStatus = "ACTIVE"
	EmployeeStatusInactive  EmployeeStatus = "INACTIVE"
	EmployeeStatusSuspended EmployeeStatus = "SUSPENDED"
)

var validEmployeeStatuses = []EmployeeStatus{
	EmployeeStatusActive,
	EmployeeStatusInactive,
	EmployeeStatusSuspended,
}

func (s EmployeeStatus) String() string {
	return string(s)
}

func (s EmployeeStatus) IsValid() bool {
	for _, candidate := range validEmployeeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEmployeeStatus converts raw input into an EmployeeStatus.
func ParseEmployeeStatus(value string) (EmployeeStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validEmployeeStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid employee status %q", value)
}
