package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// TravelRequestRepository keeps requests in a map. Reads return deep copies so
// callers never share chain entries with the store.
type TravelRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*entity.TravelRequest
}

var _ outbound.TravelRequestRepository = (*TravelRequestRepository)(nil)

func NewTravelRequestRepository() *TravelRequestRepository {
	return &TravelRequestRepository{requests: make(map[string]*entity.TravelRequest)}
}

func (r *TravelRequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[req.ID]; exists {
		return fmt.Errorf("travel request %s already exists", req.ID)
	}
	if req.Version == 0 {
		req.Version = 1
	}
	r.requests[req.ID] = clone(req)
	return nil
}

func (r *TravelRequestRepository) FindByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.requests[id]
	if !ok {
		return nil, outbound.ErrTravelRequestNotFound
	}
	return clone(stored), nil
}

// UpdateApproval copies the approval fields only. Logistics stay as stored.
func (r *TravelRequestRepository) UpdateApproval(ctx context.Context, req *entity.TravelRequest, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok {
		return outbound.ErrTravelRequestNotFound
	}
	if stored.Version != expectedVersion {
		return outbound.ErrVersionConflict
	}

	stored.Status = req.Status
	stored.ApprovalChain = req.ApprovalChain.Clone()
	stored.CurrentApprovalIndex = req.CurrentApprovalIndex
	stored.ManagerApprovedBy = req.ManagerApprovedBy
	stored.ManagerApprovedAt = copyTime(req.ManagerApprovedAt)
	stored.POCApprovedBy = req.POCApprovedBy
	stored.POCApprovedAt = copyTime(req.POCApprovedAt)
	stored.UpdatedAt = req.UpdatedAt
	stored.Version = expectedVersion + 1

	req.Version = stored.Version
	return nil
}

func (r *TravelRequestRepository) UpdateLogistics(ctx context.Context, id string, logistics entity.Logistics, allowed []entity.RequestStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[id]
	if !ok {
		return outbound.ErrTravelRequestNotFound
	}
	if !statusIn(stored.Status, allowed) {
		return outbound.ErrVersionConflict
	}
	logistics.UpdatedAt = copyTime(logistics.UpdatedAt)
	stored.Logistics = logistics
	return nil
}

func (r *TravelRequestRepository) ListPendingFor(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error) {
	return r.filter(ctx, func(tr *entity.TravelRequest) bool {
		return tr.IsAwaiting(approverEmail)
	})
}

func (r *TravelRequestRepository) ListApprovedBy(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error) {
	return r.filter(ctx, func(tr *entity.TravelRequest) bool {
		return approvedBy(tr, approverEmail)
	})
}

func (r *TravelRequestRepository) ListRejectedBy(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error) {
	return r.filter(ctx, func(tr *entity.TravelRequest) bool {
		return rejectedIn(tr, approverEmail)
	})
}

func (r *TravelRequestRepository) CountsFor(ctx context.Context, approverEmail string) (entity.ApprovalCounts, error) {
	if err := ctx.Err(); err != nil {
		return entity.ApprovalCounts{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var counts entity.ApprovalCounts
	for _, tr := range r.requests {
		if tr.IsAwaiting(approverEmail) {
			counts.Pending++
		}
		if approvedBy(tr, approverEmail) {
			counts.Approved++
		}
		if rejectedIn(tr, approverEmail) {
			counts.Rejected++
		}
	}
	return counts, nil
}

func (r *TravelRequestRepository) List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, int, error) {
	all, err := r.filter(ctx, func(tr *entity.TravelRequest) bool {
		if filter.OriginatorEmail != "" && !entity.SameEmail(tr.OriginatorEmail, filter.OriginatorEmail) {
			return false
		}
		if len(filter.Statuses) > 0 && !statusIn(tr.Status, filter.Statuses) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	return paginate(all, filter.Offset, filter.Limit), len(all), nil
}

// filter returns matching copies, newest first.
func (r *TravelRequestRepository) filter(ctx context.Context, match func(*entity.TravelRequest) bool) ([]*entity.TravelRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*entity.TravelRequest, 0)
	for _, tr := range r.requests {
		if match(tr) {
			out = append(out, clone(tr))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func approvedBy(tr *entity.TravelRequest, email string) bool {
	for _, entry := range tr.ApprovalChain {
		if entry.Approved && entity.SameEmail(entry.Email, email) {
			return true
		}
	}
	return false
}

// rejectedIn matches rejected requests whose chain includes email, whoever
// issued the rejection.
func rejectedIn(tr *entity.TravelRequest, email string) bool {
	return tr.Status == entity.StatusRejected && tr.ApprovalChain.Contains(email)
}

func statusIn(status entity.RequestStatus, statuses []entity.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func clone(tr *entity.TravelRequest) *entity.TravelRequest {
	c := *tr
	c.ApprovalChain = tr.ApprovalChain.Clone()
	c.ManagerApprovedAt = copyTime(tr.ManagerApprovedAt)
	c.POCApprovedAt = copyTime(tr.POCApprovedAt)
	c.Logistics.UpdatedAt = copyTime(tr.Logistics.UpdatedAt)
	return &c
}
