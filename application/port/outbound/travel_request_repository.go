package outbound

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/domain/entity"
)

var (
	ErrTravelRequestNotFound = errors.New("travel request not found")
	// ErrVersionConflict means the stored row no longer matches the version or
	// status the caller read.
	ErrVersionConflict = errors.New("travel request version conflict")
)

type TravelRequestRepository interface {
	Create(ctx context.Context, req *entity.TravelRequest) error
	FindByID(ctx context.Context, id string) (*entity.TravelRequest, error)

	// UpdateApproval writes the approval fields only if the stored version is
	// expectedVersion. On success req.Version is bumped.
	UpdateApproval(ctx context.Context, req *entity.TravelRequest, expectedVersion int) error

	// UpdateLogistics writes the logistics column only while the request is in
	// one of allowed statuses.
	UpdateLogistics(ctx context.Context, id string, logistics entity.Logistics, allowed []entity.RequestStatus) error

	ListPendingFor(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error)
	ListApprovedBy(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error)
	// ListRejectedBy returns rejected requests with approverEmail anywhere in
	// the chain, including ones rejected after they signed off.
	ListRejectedBy(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error)
	CountsFor(ctx context.Context, approverEmail string) (entity.ApprovalCounts, error)

	List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, int, error)
}
