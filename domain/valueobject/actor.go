package valueobject

import (
	"errors"
	"strings"
)

// Outcome is a decision rendered on a travel request.
type Outcome string

const (
	OutcomeApproved Outcome = "Approved"
	OutcomeRejected Outcome = "Rejected"
)

var ErrInvalidOutcome = errors.New("outcome must be Approved or Rejected")

// ParseOutcome accepts the canonical spelling case-insensitively.
func ParseOutcome(raw string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "approve":
		return OutcomeApproved, nil
	case "rejected", "reject":
		return OutcomeRejected, nil
	}
	return "", ErrInvalidOutcome
}

// Actor is the authenticated caller acting on a request. Whether the caller is
// the travel coordinator is decided by the transport layer, not by the engine.
type Actor struct {
	Email string
	Name  string
	Role  string
	POC   bool
}

func NewActor(email, name, role string, poc bool) Actor {
	return Actor{
		Email: strings.ToLower(strings.TrimSpace(email)),
		Name:  strings.TrimSpace(name),
		Role:  role,
		POC:   poc,
	}
}

// Label renders the actor for system messages.
func (a Actor) Label() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " (" + a.Email + ")"
}
