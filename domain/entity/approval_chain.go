package entity

import (
	"fmt"
	"strings"
	"time"
)

// ApprovalChainEntry is one manager who must approve, in order.
type ApprovalChainEntry struct {
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	ImpactLevel    string     `json:"impact_level"`
	EmployeeNumber string     `json:"employee_number"`
	Approved       bool       `json:"approved"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
}

// NewApprovalChainEntry builds an unapproved entry from a directory record.
func NewApprovalChainEntry(manager *Employee) ApprovalChainEntry {
	level := strings.TrimSpace(manager.ImpactLevel)
	if level == "" {
		level = UnknownImpactLevel
	}
	return ApprovalChainEntry{
		Email:          NormalizeEmail(manager.Email),
		Name:           manager.Name,
		ImpactLevel:    level,
		EmployeeNumber: manager.EmployeeNumber,
	}
}

// Label renders "Name (email)" for messages.
func (e ApprovalChainEntry) Label() string {
	if e.Name == "" {
		return e.Email
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Email)
}

// ApprovalChain is ordered: the first entry approves first.
type ApprovalChain []ApprovalChainEntry

// Contains reports whether email appears anywhere in the chain.
func (c ApprovalChain) Contains(email string) bool {
	return c.IndexOf(email) >= 0
}

// IndexOf returns the position of email in the chain or -1.
func (c ApprovalChain) IndexOf(email string) int {
	for i, entry := range c {
		if SameEmail(entry.Email, email) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without sharing ApprovedAt pointers.
func (c ApprovalChain) Clone() ApprovalChain {
	if c == nil {
		return nil
	}
	out := make(ApprovalChain, len(c))
	for i, entry := range c {
		out[i] = entry
		if entry.ApprovedAt != nil {
			at := *entry.ApprovedAt
			out[i].ApprovedAt = &at
		}
	}
	return out
}

// Summary renders "Bob (4A) -> Carol (3A)".
func (c ApprovalChain) Summary() string {
	parts := make([]string, 0, len(c))
	for _, entry := range c {
		name := entry.Name
		if name == "" {
			name = entry.Email
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", name, entry.ImpactLevel))
	}
	return strings.Join(parts, " -> ")
}

// CheckOrdering verifies that entries before index are approved and the rest
// are not.
func (c ApprovalChain) CheckOrdering(index int) error {
	for i, entry := range c {
		if i < index && !entry.Approved {
			return fmt.Errorf("chain entry %d (%s) precedes the current approver but is not approved", i, entry.Email)
		}
		if i >= index && entry.Approved {
			return fmt.Errorf("chain entry %d (%s) is approved ahead of the current approver", i, entry.Email)
		}
	}
	return nil
}
