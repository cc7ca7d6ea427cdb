package inbound

import (
	"context"

	"github.com/tripdesk/tripdesk/domain/entity"
)

type ListEmployeesRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type PaginationInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type ListEmployeesResponse struct {
	Employees  []*entity.Employee `json:"employees"`
	Pagination PaginationInfo     `json:"pagination"`
}

type DirectoryUseCase interface {
	ListEmployees(ctx context.Context, req ListEmployeesRequest) (*ListEmployeesResponse, error)
	GetEmployee(ctx context.Context, email string) (*entity.Employee, error)
	PreviewChain(ctx context.Context, email string) (entity.ApprovalChain, error)
}
