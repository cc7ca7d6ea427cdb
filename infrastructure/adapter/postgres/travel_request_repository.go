package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// TravelRequestRepository stores requests in travel_requests. The approval
// chain, trip and logistics are JSONB columns; approval writes and logistics
// writes touch disjoint columns.
type TravelRequestRepository struct{ db *sql.DB }

var _ outbound.TravelRequestRepository = (*TravelRequestRepository)(nil)

func NewTravelRequestRepository(db *sql.DB) *TravelRequestRepository {
	return &TravelRequestRepository{db: db}
}

const travelRequestColumns = `
	id, originator_email, originator_name, originator_employee_number, trip,
	status, approval_chain, current_approval_index,
	manager_approved_by, manager_approved_at, poc_approved_by, poc_approved_at,
	logistics, version, created_at, updated_at`

// Predicates shared by the list and count queries. $1 is the approver email.
const (
	pendingForPredicate = `status = 'Pending'
		AND approval_chain -> current_approval_index ->> 'email' = $1
		AND COALESCE((approval_chain -> current_approval_index ->> 'approved')::boolean, false) = false`
	approvedByPredicate = `approval_chain @> jsonb_build_array(jsonb_build_object('email', $1::text, 'approved', true))`
	rejectedInPredicate = `status = 'Rejected'
		AND approval_chain @> jsonb_build_array(jsonb_build_object('email', $1::text))`
)

func (r *TravelRequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	trip, chain, logistics, err := marshalRequest(req)
	if err != nil {
		return err
	}
	if req.Version == 0 {
		req.Version = 1
	}

	query := `INSERT INTO travel_requests (` + travelRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.db.ExecContext(ctx, query,
		req.ID,
		req.OriginatorEmail,
		req.OriginatorName,
		req.OriginatorEmployeeNumber,
		string(trip),
		string(req.Status),
		string(chain),
		req.CurrentApprovalIndex,
		nullString(req.ManagerApprovedBy),
		nullTime(req.ManagerApprovedAt),
		nullString(req.POCApprovedBy),
		nullTime(req.POCApprovedAt),
		string(logistics),
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create travel request: %w", err)
	}
	return nil
}

func (r *TravelRequestRepository) FindByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests WHERE id = $1`
	req, err := scanTravelRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, outbound.ErrTravelRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find travel request: %w", err)
	}
	return req, nil
}

// UpdateApproval is a compare-and-swap on version.
func (r *TravelRequestRepository) UpdateApproval(ctx context.Context, req *entity.TravelRequest, expectedVersion int) error {
	chain, err := json.Marshal(req.ApprovalChain)
	if err != nil {
		return fmt.Errorf("failed to marshal approval chain: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE travel_requests
		SET status = $3,
			approval_chain = $4,
			current_approval_index = $5,
			manager_approved_by = $6,
			manager_approved_at = $7,
			poc_approved_by = $8,
			poc_approved_at = $9,
			updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $2
	`,
		req.ID,
		expectedVersion,
		string(req.Status),
		string(chain),
		req.CurrentApprovalIndex,
		nullString(req.ManagerApprovedBy),
		nullTime(req.ManagerApprovedAt),
		nullString(req.POCApprovedBy),
		nullTime(req.POCApprovedAt),
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update travel request approval: %w", err)
	}
	if err := r.checkAffected(ctx, result, req.ID); err != nil {
		return err
	}
	req.Version = expectedVersion + 1
	return nil
}

func (r *TravelRequestRepository) UpdateLogistics(ctx context.Context, id string, logistics entity.Logistics, allowed []entity.RequestStatus) error {
	payload, err := json.Marshal(logistics)
	if err != nil {
		return fmt.Errorf("failed to marshal logistics: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE travel_requests
		SET logistics = $2
		WHERE id = $1 AND status = ANY($3)
	`, id, string(payload), pq.Array(statusStrings(allowed)))
	if err != nil {
		return fmt.Errorf("failed to update travel request logistics: %w", err)
	}
	return r.checkAffected(ctx, result, id)
}

func (r *TravelRequestRepository) ListPendingFor(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error) {
	return r.query(ctx, `SELECT `+travelRequestColumns+` FROM travel_requests WHERE `+pendingForPredicate+` ORDER BY created_at DESC`,
		entity.NormalizeEmail(approverEmail))
}

func (r *TravelRequestRepository) ListApprovedBy(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error) {
	return r.query(ctx, `SELECT `+travelRequestColumns+` FROM travel_requests WHERE `+approvedByPredicate+` ORDER BY created_at DESC`,
		entity.NormalizeEmail(approverEmail))
}

func (r *TravelRequestRepository) ListRejectedBy(ctx context.Context, approverEmail string) ([]*entity.TravelRequest, error) {
	return r.query(ctx, `SELECT `+travelRequestColumns+` FROM travel_requests WHERE `+rejectedInPredicate+` ORDER BY created_at DESC`,
		entity.NormalizeEmail(approverEmail))
}

func (r *TravelRequestRepository) CountsFor(ctx context.Context, approverEmail string) (entity.ApprovalCounts, error) {
	var counts entity.ApprovalCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE `+pendingForPredicate+`),
			COUNT(*) FILTER (WHERE `+approvedByPredicate+`),
			COUNT(*) FILTER (WHERE `+rejectedInPredicate+`)
		FROM travel_requests
	`, entity.NormalizeEmail(approverEmail)).Scan(&counts.Pending, &counts.Approved, &counts.Rejected)
	if err != nil {
		return entity.ApprovalCounts{}, fmt.Errorf("failed to count approvals: %w", err)
	}
	return counts, nil
}

func (r *TravelRequestRepository) List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, int, error) {
	where := `($1 = '' OR originator_email = $1) AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))`
	originator := entity.NormalizeEmail(filter.OriginatorEmail)
	statuses := pq.Array(statusStrings(filter.Statuses))

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM travel_requests WHERE `+where, originator, statuses).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count travel requests: %w", err)
	}

	requests, err := r.query(ctx, `SELECT `+travelRequestColumns+` FROM travel_requests WHERE `+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		originator, statuses, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *TravelRequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.TravelRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query travel requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*entity.TravelRequest, 0)
	for rows.Next() {
		req, err := scanTravelRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan travel request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating travel requests: %w", err)
	}
	return requests, nil
}

// checkAffected tells a missing row apart from a failed guard.
func (r *TravelRequestRepository) checkAffected(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM travel_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check travel request: %w", err)
	}
	if !exists {
		return outbound.ErrTravelRequestNotFound
	}
	return outbound.ErrVersionConflict
}

func scanTravelRequest(row rowScanner) (*entity.TravelRequest, error) {
	var (
		req               entity.TravelRequest
		trip              []byte
		chain             []byte
		logistics         []byte
		managerApprovedBy sql.NullString
		managerApprovedAt sql.NullTime
		pocApprovedBy     sql.NullString
		pocApprovedAt     sql.NullTime
	)
	err := row.Scan(
		&req.ID,
		&req.OriginatorEmail,
		&req.OriginatorName,
		&req.OriginatorEmployeeNumber,
		&trip,
		&req.Status,
		&chain,
		&req.CurrentApprovalIndex,
		&managerApprovedBy,
		&managerApprovedAt,
		&pocApprovedBy,
		&pocApprovedAt,
		&logistics,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trip, &req.Trip); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trip: %w", err)
	}
	if err := json.Unmarshal(chain, &req.ApprovalChain); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval chain: %w", err)
	}
	if len(logistics) > 0 {
		if err := json.Unmarshal(logistics, &req.Logistics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal logistics: %w", err)
		}
	}
	if req.ApprovalChain == nil {
		req.ApprovalChain = entity.ApprovalChain{}
	}
	req.ManagerApprovedBy = managerApprovedBy.String
	req.ManagerApprovedAt = timePtr(managerApprovedAt)
	req.POCApprovedBy = pocApprovedBy.String
	req.POCApprovedAt = timePtr(pocApprovedAt)
	return &req, nil
}

func marshalRequest(req *entity.TravelRequest) (trip, chain, logistics []byte, err error) {
	trip, err = json.Marshal(req.Trip)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal trip: %w", err)
	}
	approvalChain := req.ApprovalChain
	if approvalChain == nil {
		approvalChain = entity.ApprovalChain{}
	}
	chain, err = json.Marshal(approvalChain)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal approval chain: %w", err)
	}
	logistics, err = json.Marshal(req.Logistics)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal logistics: %w", err)
	}
	return trip, chain, logistics, nil
}

func statusStrings(statuses []entity.RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
