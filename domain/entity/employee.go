package entity

import (
	"strings"
	"time"
)

// Employee roles carried in access tokens
const (
	RoleEmployee = "employee"
	RolePOC      = "poc"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// UnknownImpactLevel is recorded on a chain entry when the directory has no grade.
const UnknownImpactLevel = "Unknown"

// Employee is a record of the organization directory. The approval engine only
// reads it.
type Employee struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	EmployeeNumber string    `json:"employee_number"`
	ManagerEmail   string    `json:"manager_email,omitempty"`
	ImpactLevel    string    `json:"impact_level"`
	Department     string    `json:"department,omitempty"`
	Role           string    `json:"role"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewEmployee(email, name, employeeNumber, managerEmail, impactLevel string) *Employee {
	now := time.Now()
	return &Employee{
		Email:          NormalizeEmail(email),
		Name:           strings.TrimSpace(name),
		EmployeeNumber: strings.TrimSpace(employeeNumber),
		ManagerEmail:   NormalizeEmail(managerEmail),
		ImpactLevel:    strings.TrimSpace(impactLevel),
		Role:           RoleEmployee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasManager reports whether the record points at a manager.
func (e *Employee) HasManager() bool {
	return NormalizeEmail(e.ManagerEmail) != ""
}

// NormalizeEmail trims and lowercases an address. Every email comparison in
// the system goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail compares two addresses case-insensitively.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
