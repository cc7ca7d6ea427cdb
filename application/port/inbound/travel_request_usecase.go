package inbound

import (
	"context"

	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
)

// Submit
type SubmitRequest struct {
	RequesterEmail string             `json:"-"`
	Trip           entity.TripDetails `json:"trip" validate:"required"`
}

// Decide
type DecisionRequest struct {
	RequestID string            `json:"-"`
	Actor     valueobject.Actor `json:"-"`
	Outcome   string            `json:"outcome" validate:"required,oneof=Approved Rejected approved rejected"`
	Comment   string            `json:"comment,omitempty" validate:"max=2000"`
}

// Pending approvals
type PendingFilter string

const (
	PendingFilterPending  PendingFilter = "pending"
	PendingFilterApproved PendingFilter = "approved"
	PendingFilterRejected PendingFilter = "rejected"
	PendingFilterAll      PendingFilter = "all"
)

type PendingApprovalsResponse struct {
	Requests []*entity.TravelRequest `json:"requests"`
	Counts   entity.ApprovalCounts   `json:"counts"`
}

// Listings
type ListRequestsResponse struct {
	Requests []*entity.TravelRequest `json:"requests"`
	Total    int                     `json:"total"`
}

// Logistics
type UpdateLogisticsRequest struct {
	RequestID        string            `json:"-"`
	Actor            valueobject.Actor `json:"-"`
	TravelMode       string            `json:"travel_mode" validate:"omitempty,max=40"`
	CarrierDetails   string            `json:"carrier_details" validate:"max=500"`
	Hotel            string            `json:"hotel" validate:"max=500"`
	BookingReference string            `json:"booking_reference" validate:"max=120"`
	VendorEmail      string            `json:"vendor_email" validate:"omitempty,email"`
	Notes            string            `json:"notes" validate:"max=2000"`
}

// Conversation
type PostMessageRequest struct {
	RequestID string            `json:"-"`
	Actor     valueobject.Actor `json:"-"`
	Body      string            `json:"body" validate:"required,min=1,max=2000"`
}

// TravelRequestUseCase is the approval workflow engine as seen by transports.
type TravelRequestUseCase interface {
	Submit(ctx context.Context, req SubmitRequest) (*entity.TravelRequest, error)
	Decide(ctx context.Context, req DecisionRequest) (*entity.TravelRequest, error)
	Get(ctx context.Context, actor valueobject.Actor, id string) (*entity.TravelRequest, error)
	ListMine(ctx context.Context, actor valueobject.Actor, limit, offset int) (*ListRequestsResponse, error)
	GetPendingApprovals(ctx context.Context, approverEmail string, filter PendingFilter) (*PendingApprovalsResponse, error)
	POCQueue(ctx context.Context, actor valueobject.Actor, limit, offset int) (*ListRequestsResponse, error)
	UpdateLogistics(ctx context.Context, req UpdateLogisticsRequest) (*entity.TravelRequest, error)
	PostMessage(ctx context.Context, req PostMessageRequest) (*entity.ConversationMessage, error)
	ListMessages(ctx context.Context, actor valueobject.Actor, requestID string) ([]*entity.ConversationMessage, error)
}

// NotificationUseCase serves the in-app inbox.
type NotificationUseCase interface {
	Inbox(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, recipient, id string) error
}
