package directory

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/application/usecase/travel"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// DirectoryUseCase exposes the read side of the org directory.
type DirectoryUseCase struct {
	employees outbound.EmployeeRepository
	builder   *travel.ChainBuilder
}

var _ inbound.DirectoryUseCase = (*DirectoryUseCase)(nil)

func NewDirectoryUseCase(employees outbound.EmployeeRepository, builder *travel.ChainBuilder) *DirectoryUseCase {
	return &DirectoryUseCase{
		employees: employees,
		builder:   builder,
	}
}

func (uc *DirectoryUseCase) ListEmployees(ctx context.Context, req inbound.ListEmployeesRequest) (*inbound.ListEmployeesResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	offset := (req.Page - 1) * req.Limit

	employees, total, err := uc.employees.List(ctx, offset, req.Limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError("list employees", err)
	}
	if employees == nil {
		employees = []*entity.Employee{}
	}
	return &inbound.ListEmployeesResponse{
		Employees: employees,
		Pagination: inbound.PaginationInfo{
			Page:  req.Page,
			Limit: req.Limit,
			Total: total,
		},
	}, nil
}

func (uc *DirectoryUseCase) GetEmployee(ctx context.Context, email string) (*entity.Employee, error) {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.ErrMissingField("email")
	}
	employee, err := uc.employees.Lookup(ctx, email)
	if errors.Is(err, outbound.ErrEmployeeNotFound) || (err == nil && employee == nil) {
		return nil, apperror.ErrEmployeeNotFound(email)
	}
	if err != nil {
		return nil, apperror.ErrDirectoryLookupFailed(email, err)
	}
	return employee, nil
}

// PreviewChain shows who would approve a request submitted now.
func (uc *DirectoryUseCase) PreviewChain(ctx context.Context, email string) (entity.ApprovalChain, error) {
	if _, err := uc.GetEmployee(ctx, email); err != nil {
		return nil, err
	}
	return uc.builder.Build(ctx, email)
}
