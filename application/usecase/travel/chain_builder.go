package travel

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// ChainBuilder walks the org directory upward from a requester and produces
// the ordered list of managers who must approve.
type ChainBuilder struct {
	directory outbound.OrgDirectory
	policy    valueobject.ApprovalPolicy
	logger    logger.Logger
}

func NewChainBuilder(directory outbound.OrgDirectory, policy valueobject.ApprovalPolicy, log logger.Logger) *ChainBuilder {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ChainBuilder{
		directory: directory,
		policy:    policy,
		logger:    log,
	}
}

// Build returns an empty chain when the requester is unknown or has no
// manager. A missing manager record ends the chain at the last manager found;
// only a directory failure is returned as an error.
func (b *ChainBuilder) Build(ctx context.Context, requesterEmail string) (entity.ApprovalChain, error) {
	email := entity.NormalizeEmail(requesterEmail)
	requester, found, err := b.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found || !requester.HasManager() {
		return entity.ApprovalChain{}, nil
	}

	maxLen := b.policy.MaxChainLength()
	visited := make(map[string]struct{}, maxLen)

	chain := make(entity.ApprovalChain, 0, maxLen)
	current := entity.NormalizeEmail(requester.ManagerEmail)

	for current != "" && len(chain) < maxLen {
		if _, seen := visited[current]; seen {
			b.logger.Warn(ctx, "Manager cycle detected while building approval chain", map[string]interface{}{
				"requester": email,
				"manager":   current,
			})
			break
		}
		visited[current] = struct{}{}

		manager, found, err := b.lookup(ctx, current)
		if err != nil {
			return nil, err
		}
		if !found {
			b.logger.Warn(ctx, "Manager record missing, approval chain truncated", map[string]interface{}{
				"requester":    email,
				"manager":      current,
				"chain_length": len(chain),
			})
			break
		}

		chain = append(chain, entity.NewApprovalChainEntry(manager))
		if entity.SameEmail(manager.Email, email) {
			b.logger.Warn(ctx, "Requester is an approver in their own chain", map[string]interface{}{
				"requester": email,
				"position":  len(chain) - 1,
			})
		}

		if b.policy.IsTerminalLevel(manager.ImpactLevel) {
			break
		}
		current = entity.NormalizeEmail(manager.ManagerEmail)
	}

	return chain, nil
}

func (b *ChainBuilder) lookup(ctx context.Context, email string) (*entity.Employee, bool, error) {
	employee, err := b.directory.Lookup(ctx, email)
	if errors.Is(err, outbound.ErrEmployeeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperror.ErrDirectoryLookupFailed(email, err)
	}
	if employee == nil {
		return nil, false, nil
	}
	return employee, true, nil
}
