package travel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/application/port/outbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

const (
	defaultMaxAttempts = 3
	defaultLockTTL     = 5 * time.Second
	defaultPageSize    = 50
	maxPageSize        = 200
)

// Dependencies wires the workflow engine. Locker is optional.
type Dependencies struct {
	Directory     outbound.OrgDirectory
	Requests      outbound.TravelRequestRepository
	Conversations outbound.ConversationRepository
	Notifier      outbound.Notifier
	Locker        outbound.RequestLocker
	Policy        valueobject.ApprovalPolicy
	Logger        logger.Logger

	Now         func() time.Time
	NewID       func() string
	MaxAttempts int
	LockTTL     time.Duration
}

// TravelRequestUseCase is the approval workflow engine. It is the only writer
// of a request's approval fields.
type TravelRequestUseCase struct {
	directory     outbound.OrgDirectory
	requests      outbound.TravelRequestRepository
	conversations outbound.ConversationRepository
	notifier      outbound.Notifier
	locker        outbound.RequestLocker
	policy        valueobject.ApprovalPolicy
	builder       *ChainBuilder
	logger        logger.Logger

	now         func() time.Time
	newID       func() string
	maxAttempts int
	lockTTL     time.Duration
}

var _ inbound.TravelRequestUseCase = (*TravelRequestUseCase)(nil)

func NewTravelRequestUseCase(deps Dependencies) *TravelRequestUseCase {
	uc := &TravelRequestUseCase{
		directory:     deps.Directory,
		requests:      deps.Requests,
		conversations: deps.Conversations,
		notifier:      deps.Notifier,
		locker:        deps.Locker,
		policy:        deps.Policy,
		logger:        deps.Logger,
		now:           deps.Now,
		newID:         deps.NewID,
		maxAttempts:   deps.MaxAttempts,
		lockTTL:       deps.LockTTL,
	}
	if uc.logger == nil {
		uc.logger = logger.NewNopLogger()
	}
	if uc.now == nil {
		uc.now = func() time.Time { return time.Now().UTC() }
	}
	if uc.newID == nil {
		uc.newID = uuid.NewString
	}
	if uc.maxAttempts <= 0 {
		uc.maxAttempts = defaultMaxAttempts
	}
	if uc.lockTTL <= 0 {
		uc.lockTTL = defaultLockTTL
	}
	uc.builder = NewChainBuilder(deps.Directory, deps.Policy, uc.logger)
	return uc
}

// Submit builds the approval chain and stores a new request.
func (uc *TravelRequestUseCase) Submit(ctx context.Context, req inbound.SubmitRequest) (*entity.TravelRequest, error) {
	email := entity.NormalizeEmail(req.RequesterEmail)
	if email == "" {
		return nil, apperror.ErrMissingField("requester_email")
	}
	if err := req.Trip.Validate(); err != nil {
		return nil, err
	}

	originator, err := uc.directory.Lookup(ctx, email)
	if errors.Is(err, outbound.ErrEmployeeNotFound) || (err == nil && originator == nil) {
		return nil, apperror.ErrEmployeeNotFound(email)
	}
	if err != nil {
		return nil, apperror.ErrDirectoryLookupFailed(email, err)
	}

	chain, err := uc.builder.Build(ctx, email)
	if err != nil {
		uc.logger.Error(ctx, "Failed to build approval chain", err, map[string]interface{}{
			"requester": email,
		})
		return nil, err
	}

	tr := entity.NewTravelRequest(uc.newID(), originator, req.Trip, chain, uc.now())
	if err := uc.requests.Create(ctx, tr); err != nil {
		return nil, apperror.ErrDatabaseError("create travel request", err)
	}

	logger.LogTransition(ctx, uc.logger, tr.ID, "", string(tr.Status), email, map[string]interface{}{
		"chain_length": len(tr.ApprovalChain),
	})

	uc.audit(ctx, tr.ID, submittedText(tr))
	for _, msg := range uc.submissionMessages(tr, originator) {
		uc.notify(ctx, msg)
	}
	return tr, nil
}

func (uc *TravelRequestUseCase) submissionMessages(tr *entity.TravelRequest, originator *entity.Employee) []outbound.Message {
	trip := fmt.Sprintf("%s to %s", tr.Trip.Origin, tr.Trip.Destination)

	if len(tr.ApprovalChain) > 0 {
		first := tr.ApprovalChain[0]
		return []outbound.Message{{
			Recipient:  first.Email,
			Kind:       entity.NotifyApprovalRequired,
			Title:      "Travel request awaiting your approval",
			Body:       fmt.Sprintf("%s requested travel from %s and is waiting for your approval.", tr.OriginatorName, trip),
			RequestRef: tr.ID,
		}}
	}

	msgs := []outbound.Message{{
		Recipient:  tr.OriginatorEmail,
		Kind:       entity.NotifyManagersApproved,
		Title:      "Your travel request is with the travel coordinator",
		Body:       fmt.Sprintf("Your request for travel from %s needs no manager approval and was forwarded to the travel coordinator.", trip),
		RequestRef: tr.ID,
	}}
	// the manager has no directory record, so nobody can approve as them; keep them informed
	if originator.HasManager() {
		msgs = append(msgs, outbound.Message{
			Recipient:  originator.ManagerEmail,
			Kind:       entity.NotifyApprovalProgress,
			Title:      "Travel request submitted by " + tr.OriginatorName,
			Body:       fmt.Sprintf("%s submitted a request for travel from %s. It was forwarded to the travel coordinator.", tr.OriginatorName, trip),
			RequestRef: tr.ID,
		})
	}
	return msgs
}

// Decide applies one approver's decision. Concurrent deciders are serialized
// by the optional lock and by the version check on write; a loser re-reads the
// request and fails against the fresh state.
func (uc *TravelRequestUseCase) Decide(ctx context.Context, req inbound.DecisionRequest) (*entity.TravelRequest, error) {
	if req.RequestID == "" {
		return nil, apperror.ErrMissingField("request_id")
	}
	outcome, err := valueobject.ParseOutcome(req.Outcome)
	if err != nil {
		return nil, apperror.ErrInvalidRequest(err.Error())
	}
	actor := uc.resolveActor(req.Actor)
	if actor.Email == "" {
		return nil, apperror.ErrMissingField("actor")
	}

	release, err := uc.lock(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		tr, err := uc.load(ctx, req.RequestID)
		if err != nil {
			return nil, err
		}

		expected := tr.Version
		transition, err := tr.Decide(actor, outcome, req.Comment, uc.now())
		if err != nil {
			uc.logger.Warn(ctx, "Decision refused", map[string]interface{}{
				"request_id": tr.ID,
				"actor":      actor.Email,
				"status":     string(tr.Status),
				"outcome":    string(outcome),
				"reason":     err.Error(),
			})
			return nil, err
		}

		err = uc.requests.UpdateApproval(ctx, tr, expected)
		if errors.Is(err, outbound.ErrVersionConflict) {
			uc.logger.Debug(ctx, "Concurrent decision detected, re-reading request", map[string]interface{}{
				"request_id": tr.ID,
				"attempt":    attempt,
			})
			continue
		}
		if err != nil {
			return nil, apperror.ErrDatabaseError("update travel request approval", err)
		}

		logger.LogTransition(ctx, uc.logger, tr.ID, string(transition.From), string(transition.To), actor.Email, map[string]interface{}{
			"transition": string(transition.Kind),
			"index":      tr.CurrentApprovalIndex,
		})
		uc.afterTransition(ctx, tr, transition)
		return tr, nil
	}

	return nil, apperror.ErrConcurrentModification(req.RequestID)
}

func (uc *TravelRequestUseCase) afterTransition(ctx context.Context, tr *entity.TravelRequest, t *entity.Transition) {
	uc.audit(ctx, tr.ID, transitionText(t))
	for _, msg := range transitionMessages(tr, t) {
		uc.notify(ctx, msg)
	}
}

// Get returns a request the actor is allowed to see.
func (uc *TravelRequestUseCase) Get(ctx context.Context, actor valueobject.Actor, id string) (*entity.TravelRequest, error) {
	tr, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tr.CanView(uc.resolveActor(actor)) {
		return nil, apperror.ErrForbidden("not a participant of this travel request")
	}
	return tr, nil
}

// ListMine returns the requests the actor submitted, newest first.
func (uc *TravelRequestUseCase) ListMine(ctx context.Context, actor valueobject.Actor, limit, offset int) (*inbound.ListRequestsResponse, error) {
	limit, offset = page(limit, offset)
	requests, total, err := uc.requests.List(ctx, entity.TravelRequestFilter{
		OriginatorEmail: entity.NormalizeEmail(actor.Email),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, apperror.ErrDatabaseError("list travel requests", err)
	}
	return &inbound.ListRequestsResponse{Requests: requests, Total: total}, nil
}

// GetPendingApprovals serves the manager dashboard. Pending uses the same
// current-approver rule as Decide.
func (uc *TravelRequestUseCase) GetPendingApprovals(ctx context.Context, approverEmail string, filter inbound.PendingFilter) (*inbound.PendingApprovalsResponse, error) {
	email := entity.NormalizeEmail(approverEmail)
	if email == "" {
		return nil, apperror.ErrMissingField("approver_email")
	}
	if filter == "" {
		filter = inbound.PendingFilterPending
	}

	var (
		requests []*entity.TravelRequest
		err      error
	)
	switch filter {
	case inbound.PendingFilterPending:
		requests, err = uc.requests.ListPendingFor(ctx, email)
	case inbound.PendingFilterApproved:
		requests, err = uc.requests.ListApprovedBy(ctx, email)
	case inbound.PendingFilterRejected:
		requests, err = uc.requests.ListRejectedBy(ctx, email)
	case inbound.PendingFilterAll:
		requests, err = uc.listAllFor(ctx, email)
	default:
		return nil, apperror.ErrInvalidRequest(fmt.Sprintf("unknown status filter %q", filter))
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError("list approvals", err)
	}

	counts, err := uc.requests.CountsFor(ctx, email)
	if err != nil {
		return nil, apperror.ErrDatabaseError("count approvals", err)
	}
	if requests == nil {
		requests = []*entity.TravelRequest{}
	}
	return &inbound.PendingApprovalsResponse{Requests: requests, Counts: counts}, nil
}

func (uc *TravelRequestUseCase) listAllFor(ctx context.Context, email string) ([]*entity.TravelRequest, error) {
	seen := make(map[string]struct{})
	var out []*entity.TravelRequest
	for _, list := range []func(context.Context, string) ([]*entity.TravelRequest, error){
		uc.requests.ListPendingFor,
		uc.requests.ListApprovedBy,
		uc.requests.ListRejectedBy,
	} {
		requests, err := list(ctx, email)
		if err != nil {
			return nil, err
		}
		for _, tr := range requests {
			if _, ok := seen[tr.ID]; ok {
				continue
			}
			seen[tr.ID] = struct{}{}
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// POCQueue lists requests waiting on the travel coordinator.
func (uc *TravelRequestUseCase) POCQueue(ctx context.Context, actor valueobject.Actor, limit, offset int) (*inbound.ListRequestsResponse, error) {
	actor = uc.resolveActor(actor)
	if !actor.POC {
		return nil, apperror.ErrNotTravelCoordinator(actor.Email)
	}
	limit, offset = page(limit, offset)
	requests, total, err := uc.requests.List(ctx, entity.TravelRequestFilter{
		Statuses: []entity.RequestStatus{entity.StatusManagerApproved},
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, apperror.ErrDatabaseError("list travel coordinator queue", err)
	}
	return &inbound.ListRequestsResponse{Requests: requests, Total: total}, nil
}

// UpdateLogistics stores booking details. Only the logistics column is
// written, and only while the request is still in an editable status.
func (uc *TravelRequestUseCase) UpdateLogistics(ctx context.Context, req inbound.UpdateLogisticsRequest) (*entity.TravelRequest, error) {
	actor := uc.resolveActor(req.Actor)
	if !actor.POC {
		return nil, apperror.ErrNotTravelCoordinator(actor.Email)
	}

	tr, err := uc.load(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	logistics := entity.Logistics{
		TravelMode:       req.TravelMode,
		CarrierDetails:   req.CarrierDetails,
		Hotel:            req.Hotel,
		BookingReference: req.BookingReference,
		VendorEmail:      req.VendorEmail,
		Notes:            req.Notes,
	}
	if err := tr.UpdateLogistics(actor, logistics, uc.now()); err != nil {
		return nil, err
	}

	editable := []entity.RequestStatus{entity.StatusManagerApproved, entity.StatusApproved}
	err = uc.requests.UpdateLogistics(ctx, tr.ID, tr.Logistics, editable)
	if errors.Is(err, outbound.ErrVersionConflict) {
		fresh, loadErr := uc.load(ctx, tr.ID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, apperror.ErrInvalidTransition(
			fmt.Sprintf("logistics can only be edited after manager approval, request is %s", fresh.Status))
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError("update travel request logistics", err)
	}

	uc.logger.Info(ctx, "Travel request logistics updated", map[string]interface{}{
		"request_id": tr.ID,
		"actor":      actor.Email,
	})
	uc.audit(ctx, tr.ID, fmt.Sprintf("Logistics updated by travel coordinator %s.", actor.Label()))
	uc.notify(ctx, outbound.Message{
		Recipient:  tr.OriginatorEmail,
		Kind:       entity.NotifyLogistics,
		Title:      "Travel logistics updated",
		Body:       fmt.Sprintf("The travel coordinator updated the booking details for your trip from %s to %s.", tr.Trip.Origin, tr.Trip.Destination),
		RequestRef: tr.ID,
	})
	return tr, nil
}

// PostMessage appends a participant message to the conversation log.
func (uc *TravelRequestUseCase) PostMessage(ctx context.Context, req inbound.PostMessageRequest) (*entity.ConversationMessage, error) {
	actor := uc.resolveActor(req.Actor)
	tr, err := uc.load(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !tr.CanParticipate(actor) {
		return nil, apperror.ErrForbidden("not a participant of this travel request")
	}

	role := entity.AuthorRoleFor(tr, actor.Email, actor.Role, actor.POC)
	msg, err := entity.NewConversationMessage(uc.newID(), tr.ID, actor.Email, actor.Name, role, req.Body, uc.now())
	if err != nil {
		return nil, err
	}
	if err := uc.conversations.Append(ctx, msg); err != nil {
		return nil, apperror.ErrDatabaseError("append conversation message", err)
	}

	switch {
	case role == entity.AuthorVendor:
		uc.notify(ctx, outbound.Message{
			Recipient:  tr.OriginatorEmail,
			Kind:       entity.NotifyMessagePosted,
			Title:      "New message from your travel vendor",
			Body:       msg.Body,
			RequestRef: tr.ID,
		})
	case role == entity.AuthorEmployee && tr.Status == entity.StatusApproved && tr.Logistics.VendorEmail != "":
		uc.notify(ctx, outbound.Message{
			Recipient:  tr.Logistics.VendorEmail,
			Kind:       entity.NotifyMessagePosted,
			Title:      "New message from " + tr.OriginatorName,
			Body:       msg.Body,
			RequestRef: tr.ID,
		})
	}
	return msg, nil
}

// ListMessages returns the conversation log oldest first.
func (uc *TravelRequestUseCase) ListMessages(ctx context.Context, actor valueobject.Actor, requestID string) ([]*entity.ConversationMessage, error) {
	tr, err := uc.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !tr.CanView(uc.resolveActor(actor)) {
		return nil, apperror.ErrForbidden("not a participant of this travel request")
	}
	msgs, err := uc.conversations.ListByRequest(ctx, tr.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError("list conversation messages", err)
	}
	return msgs, nil
}

func (uc *TravelRequestUseCase) load(ctx context.Context, id string) (*entity.TravelRequest, error) {
	if id == "" {
		return nil, apperror.ErrMissingField("request_id")
	}
	tr, err := uc.requests.FindByID(ctx, id)
	if errors.Is(err, outbound.ErrTravelRequestNotFound) {
		return nil, apperror.ErrRequestNotFound(id)
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError("find travel request", err)
	}
	return tr, nil
}

// resolveActor marks coordinators listed in the approval policy.
func (uc *TravelRequestUseCase) resolveActor(actor valueobject.Actor) valueobject.Actor {
	actor.Email = entity.NormalizeEmail(actor.Email)
	if actor.Role == entity.RolePOC || uc.policy.IsPOCEmail(actor.Email) {
		actor.POC = true
	}
	return actor
}

func (uc *TravelRequestUseCase) lock(ctx context.Context, requestID string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}
	release, err := uc.locker.Acquire(ctx, "travel-request:"+requestID, uc.lockTTL)
	if errors.Is(err, outbound.ErrLockNotAcquired) {
		return nil, apperror.ErrConcurrentModification(requestID)
	}
	if err != nil {
		// the version check still guards the write
		uc.logger.Warn(ctx, "Request lock unavailable, relying on version check", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return func() {}, nil
	}
	return release, nil
}

func (uc *TravelRequestUseCase) audit(ctx context.Context, requestID, text string) {
	if uc.conversations == nil {
		return
	}
	if err := uc.conversations.AppendSystemMessage(ctx, requestID, text); err != nil {
		uc.logger.Error(ctx, "Failed to append audit message", err, map[string]interface{}{
			"request_id": requestID,
		})
	}
}

func (uc *TravelRequestUseCase) notify(ctx context.Context, msg outbound.Message) {
	if uc.notifier == nil || msg.Recipient == "" {
		return
	}
	if err := uc.notifier.Notify(ctx, msg); err != nil {
		uc.logger.Error(ctx, "Failed to send notification", err, map[string]interface{}{
			"request_id": msg.RequestRef,
			"recipient":  msg.Recipient,
			"kind":       string(msg.Kind),
		})
	}
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
