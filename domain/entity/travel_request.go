package entity

import (
	"fmt"
	"strings"
	"time"

	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/valueobject"
)

// RequestStatus represents the approval status of a travel request
type RequestStatus string

const (
	StatusPending         RequestStatus = "Pending"
	StatusManagerApproved RequestStatus = "ManagerApproved"
	StatusApproved        RequestStatus = "Approved"
	StatusRejected        RequestStatus = "Rejected"
	StatusPOCRejected     RequestStatus = "POCRejected"
)

// SystemActor is recorded when the engine itself clears a step.
const SystemActor = "system"

// IsTerminal reports whether no further decision is accepted.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusPOCRejected
}

// IsValid checks s against the known statuses.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusManagerApproved, StatusApproved, StatusRejected, StatusPOCRejected:
		return true
	}
	return false
}

// TripDetails is what the employee asks for.
type TripDetails struct {
	Origin                string    `json:"origin" validate:"required,max=120"`
	Destination           string    `json:"destination" validate:"required,max=120"`
	Purpose               string    `json:"purpose" validate:"required,min=3,max=1000"`
	DepartureDate         time.Time `json:"departure_date" validate:"required"`
	ReturnDate            time.Time `json:"return_date" validate:"required"`
	TravelMode            string    `json:"travel_mode" validate:"omitempty,oneof=air rail road sea"`
	EstimatedCost         float64   `json:"estimated_cost" validate:"gte=0"`
	Currency              string    `json:"currency" validate:"omitempty,len=3"`
	AccommodationRequired bool      `json:"accommodation_required"`
	Notes                 string    `json:"notes,omitempty" validate:"max=2000"`
}

// Validate checks cross-field rules the tag validator cannot express.
func (t TripDetails) Validate() error {
	if strings.TrimSpace(t.Origin) == "" {
		return apperror.ErrMissingField("origin")
	}
	if strings.TrimSpace(t.Destination) == "" {
		return apperror.ErrMissingField("destination")
	}
	if t.DepartureDate.IsZero() {
		return apperror.ErrMissingField("departure_date")
	}
	if t.ReturnDate.IsZero() {
		return apperror.ErrMissingField("return_date")
	}
	if t.ReturnDate.Before(t.DepartureDate) {
		return apperror.ErrInvalidRequest("return_date must not be before departure_date")
	}
	return nil
}

// Logistics holds the booking details the travel coordinator maintains.
type Logistics struct {
	TravelMode       string     `json:"travel_mode,omitempty"`
	CarrierDetails   string     `json:"carrier_details,omitempty"`
	Hotel            string     `json:"hotel,omitempty"`
	BookingReference string     `json:"booking_reference,omitempty"`
	VendorEmail      string     `json:"vendor_email,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	UpdatedBy        string     `json:"updated_by,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// TravelRequest is the aggregate root. Status, CurrentApprovalIndex, the chain
// entries' approval flags and the manager/POC sign-off fields change only
// through Decide.
type TravelRequest struct {
	ID                       string        `json:"id"`
	OriginatorEmail          string        `json:"originator_email"`
	OriginatorName           string        `json:"originator_name"`
	OriginatorEmployeeNumber string        `json:"originator_employee_number,omitempty"`
	Trip                     TripDetails   `json:"trip"`
	Status                   RequestStatus `json:"status"`
	ApprovalChain            ApprovalChain `json:"approval_chain"`
	CurrentApprovalIndex     int           `json:"current_approval_index"`
	ManagerApprovedBy        string        `json:"manager_approved_by,omitempty"`
	ManagerApprovedAt        *time.Time    `json:"manager_approved_at,omitempty"`
	POCApprovedBy            string        `json:"poc_approved_by,omitempty"`
	POCApprovedAt            *time.Time    `json:"poc_approved_at,omitempty"`
	Logistics                Logistics     `json:"logistics"`
	Version                  int           `json:"version"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`
}

// NewTravelRequest freezes chain as the request's approval snapshot. A request
// with an empty chain needs no manager approval and starts in ManagerApproved.
func NewTravelRequest(id string, originator *Employee, trip TripDetails, chain ApprovalChain, now time.Time) *TravelRequest {
	req := &TravelRequest{
		ID:                       id,
		OriginatorEmail:          NormalizeEmail(originator.Email),
		OriginatorName:           originator.Name,
		OriginatorEmployeeNumber: originator.EmployeeNumber,
		Trip:                     trip,
		Status:                   StatusPending,
		ApprovalChain:            chain.Clone(),
		CurrentApprovalIndex:     0,
		Version:                  1,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if len(req.ApprovalChain) == 0 {
		at := now
		req.Status = StatusManagerApproved
		req.ManagerApprovedBy = SystemActor
		req.ManagerApprovedAt = &at
	}
	return req
}

// SkippedManagerApproval reports whether the request was created without any
// manager to approve it.
func (r *TravelRequest) SkippedManagerApproval() bool {
	return len(r.ApprovalChain) == 0 && r.ManagerApprovedBy == SystemActor
}

// CurrentApprover returns the entry that must decide next while Pending.
func (r *TravelRequest) CurrentApprover() (ApprovalChainEntry, bool) {
	if r.Status != StatusPending {
		return ApprovalChainEntry{}, false
	}
	if r.CurrentApprovalIndex < 0 || r.CurrentApprovalIndex >= len(r.ApprovalChain) {
		return ApprovalChainEntry{}, false
	}
	entry := r.ApprovalChain[r.CurrentApprovalIndex]
	if entry.Approved {
		return ApprovalChainEntry{}, false
	}
	return entry, true
}

// IsAwaiting reports whether email is the current approver.
func (r *TravelRequest) IsAwaiting(email string) bool {
	entry, ok := r.CurrentApprover()
	return ok && SameEmail(entry.Email, email)
}

// RejectedBy returns the chain entry that rejected the request, if any. A
// rejection leaves the index on the rejecting approver.
func (r *TravelRequest) RejectedBy() (ApprovalChainEntry, bool) {
	if r.Status != StatusRejected {
		return ApprovalChainEntry{}, false
	}
	if r.CurrentApprovalIndex < 0 || r.CurrentApprovalIndex >= len(r.ApprovalChain) {
		return ApprovalChainEntry{}, false
	}
	return r.ApprovalChain[r.CurrentApprovalIndex], true
}

// Stage is the explicit form of (Status, CurrentApprovalIndex).
type Stage interface {
	Status() RequestStatus
	isStage()
}

// PendingStage waits on Approver at Index.
type PendingStage struct {
	Index    int
	Approver ApprovalChainEntry
}

// ManagerApprovedStage waits on the travel coordinator.
type ManagerApprovedStage struct {
	By string
	At time.Time
}

// ApprovedStage is terminal.
type ApprovedStage struct {
	By string
	At time.Time
}

// RejectedStage is terminal.
type RejectedStage struct {
	By ApprovalChainEntry
}

// POCRejectedStage is terminal.
type POCRejectedStage struct {
	By string
	At time.Time
}

func (PendingStage) Status() RequestStatus         { return StatusPending }
func (ManagerApprovedStage) Status() RequestStatus { return StatusManagerApproved }
func (ApprovedStage) Status() RequestStatus        { return StatusApproved }
func (RejectedStage) Status() RequestStatus        { return StatusRejected }
func (POCRejectedStage) Status() RequestStatus     { return StatusPOCRejected }

func (PendingStage) isStage()         {}
func (ManagerApprovedStage) isStage() {}
func (ApprovedStage) isStage()        {}
func (RejectedStage) isStage()        {}
func (POCRejectedStage) isStage()     {}

// Stage derives the current stage and rejects field combinations that no
// sequence of decisions can produce.
func (r *TravelRequest) Stage() (Stage, error) {
	switch r.Status {
	case StatusPending:
		if r.CurrentApprovalIndex < 0 || r.CurrentApprovalIndex >= len(r.ApprovalChain) {
			return nil, apperror.ErrChainExhaustedUnexpectedly(
				fmt.Sprintf("request %s: index %d, chain length %d", r.ID, r.CurrentApprovalIndex, len(r.ApprovalChain)))
		}
		if err := r.ApprovalChain.CheckOrdering(r.CurrentApprovalIndex); err != nil {
			return nil, apperror.ErrChainExhaustedUnexpectedly(fmt.Sprintf("request %s: %v", r.ID, err))
		}
		return PendingStage{Index: r.CurrentApprovalIndex, Approver: r.ApprovalChain[r.CurrentApprovalIndex]}, nil
	case StatusManagerApproved:
		return ManagerApprovedStage{By: r.ManagerApprovedBy, At: derefTime(r.ManagerApprovedAt)}, nil
	case StatusApproved:
		return ApprovedStage{By: r.POCApprovedBy, At: derefTime(r.POCApprovedAt)}, nil
	case StatusRejected:
		by, _ := r.RejectedBy()
		return RejectedStage{By: by}, nil
	case StatusPOCRejected:
		return POCRejectedStage{By: r.POCApprovedBy, At: derefTime(r.POCApprovedAt)}, nil
	}
	return nil, apperror.ErrInvalidTransition(fmt.Sprintf("unknown status %q", r.Status))
}

// TransitionKind names what a committed decision did.
type TransitionKind string

const (
	TransitionChainAdvanced   TransitionKind = "chain_advanced"
	TransitionManagersCleared TransitionKind = "managers_cleared"
	TransitionManagerRejected TransitionKind = "manager_rejected"
	TransitionFinalApproved   TransitionKind = "final_approved"
	TransitionPOCRejected     TransitionKind = "poc_rejected"
)

// Transition describes one decision applied to a request. The engine uses it
// to drive the audit message and notifications after the state is stored.
type Transition struct {
	Kind             TransitionKind
	From             RequestStatus
	To               RequestStatus
	ActorEmail       string
	ActorName        string
	ActorImpactLevel string
	Next             *ApprovalChainEntry
	Comment          string
	At               time.Time
}

// Decide applies actor's outcome. On error the request is left untouched.
func (r *TravelRequest) Decide(actor valueobject.Actor, outcome valueobject.Outcome, comment string, now time.Time) (*Transition, error) {
	if outcome != valueobject.OutcomeApproved && outcome != valueobject.OutcomeRejected {
		return nil, apperror.ErrInvalidTransition(fmt.Sprintf("outcome %q is not valid", outcome))
	}

	stage, err := r.Stage()
	if err != nil {
		return nil, err
	}

	switch s := stage.(type) {
	case PendingStage:
		return r.decideAsManager(s, actor, outcome, comment, now)
	case ManagerApprovedStage:
		return r.decideAsPOC(actor, outcome, comment, now)
	default:
		return nil, apperror.ErrInvalidTransition(
			fmt.Sprintf("request %s is %s and accepts no further decisions", r.ID, stage.Status()))
	}
}

func (r *TravelRequest) decideAsManager(s PendingStage, actor valueobject.Actor, outcome valueobject.Outcome, comment string, now time.Time) (*Transition, error) {
	if !SameEmail(actor.Email, s.Approver.Email) {
		return nil, apperror.ErrNotCurrentApprover(s.Approver.Label())
	}

	t := &Transition{
		From:             StatusPending,
		ActorEmail:       s.Approver.Email,
		ActorName:        s.Approver.Name,
		ActorImpactLevel: s.Approver.ImpactLevel,
		Comment:          strings.TrimSpace(comment),
		At:               now,
	}

	if outcome == valueobject.OutcomeRejected {
		r.Status = StatusRejected
		r.touch(now)
		t.Kind = TransitionManagerRejected
		t.To = StatusRejected
		return t, nil
	}

	at := now
	r.ApprovalChain[s.Index].Approved = true
	r.ApprovalChain[s.Index].ApprovedAt = &at

	if s.Index+1 < len(r.ApprovalChain) {
		r.CurrentApprovalIndex = s.Index + 1
		next := r.ApprovalChain[r.CurrentApprovalIndex]
		r.touch(now)
		t.Kind = TransitionChainAdvanced
		t.To = StatusPending
		t.Next = &next
		return t, nil
	}

	r.Status = StatusManagerApproved
	r.ManagerApprovedBy = s.Approver.Email
	r.ManagerApprovedAt = &at
	r.touch(now)
	t.Kind = TransitionManagersCleared
	t.To = StatusManagerApproved
	return t, nil
}

func (r *TravelRequest) decideAsPOC(actor valueobject.Actor, outcome valueobject.Outcome, comment string, now time.Time) (*Transition, error) {
	if !actor.POC {
		return nil, apperror.ErrNotTravelCoordinator(actor.Email)
	}

	at := now
	r.POCApprovedBy = NormalizeEmail(actor.Email)
	r.POCApprovedAt = &at

	t := &Transition{
		From:       StatusManagerApproved,
		ActorEmail: r.POCApprovedBy,
		ActorName:  actor.Name,
		Comment:    strings.TrimSpace(comment),
		At:         now,
	}
	if outcome == valueobject.OutcomeRejected {
		r.Status = StatusPOCRejected
		t.Kind = TransitionPOCRejected
		t.To = StatusPOCRejected
	} else {
		r.Status = StatusApproved
		t.Kind = TransitionFinalApproved
		t.To = StatusApproved
	}
	r.touch(now)
	return t, nil
}

// UpdateLogistics lets the travel coordinator edit booking details once every
// manager has signed off. Approval fields are not touched.
func (r *TravelRequest) UpdateLogistics(actor valueobject.Actor, logistics Logistics, now time.Time) error {
	if !actor.POC {
		return apperror.ErrNotTravelCoordinator(actor.Email)
	}
	if r.Status != StatusManagerApproved && r.Status != StatusApproved {
		return apperror.ErrInvalidTransition(
			fmt.Sprintf("logistics can only be edited after manager approval, request is %s", r.Status))
	}
	at := now
	logistics.VendorEmail = NormalizeEmail(logistics.VendorEmail)
	logistics.UpdatedBy = NormalizeEmail(actor.Email)
	logistics.UpdatedAt = &at
	r.Logistics = logistics
	return nil
}

// CanParticipate reports whether actor may post to the conversation log.
// Vendors are admitted only once the request is approved and only the one
// named in the logistics.
func (r *TravelRequest) CanParticipate(actor valueobject.Actor) bool {
	switch {
	case SameEmail(actor.Email, r.OriginatorEmail):
		return true
	case actor.POC:
		return true
	case r.ApprovalChain.Contains(actor.Email):
		return true
	case actor.Role == RoleVendor:
		if r.Status != StatusApproved {
			return false
		}
		return r.Logistics.VendorEmail != "" && SameEmail(r.Logistics.VendorEmail, actor.Email)
	}
	return false
}

// CanView reports whether actor may read the request.
func (r *TravelRequest) CanView(actor valueobject.Actor) bool {
	return actor.Role == RoleAdmin || r.CanParticipate(actor)
}

func (r *TravelRequest) touch(now time.Time) {
	r.UpdatedAt = now
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// TravelRequestFilter narrows request listings
type TravelRequestFilter struct {
	OriginatorEmail string          `json:"originator_email,omitempty"`
	Statuses        []RequestStatus `json:"statuses,omitempty"`
	Limit           int             `json:"limit"`
	Offset          int             `json:"offset"`
}

// ApprovalCounts summarizes an approver's dashboard.
type ApprovalCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
