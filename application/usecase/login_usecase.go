package usecase

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/application/port/outbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// LoginUseCase authenticates employees against the directory.
type LoginUseCase struct {
	employees       outbound.OrgDirectory
	tokenService    outbound.TokenService
	passwordService outbound.PasswordService
	policy          valueobject.ApprovalPolicy
	logger          logger.Logger
}

var _ inbound.AuthUseCase = (*LoginUseCase)(nil)

func NewLoginUseCase(
	employees outbound.OrgDirectory,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	policy valueobject.ApprovalPolicy,
	log logger.Logger,
) *LoginUseCase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &LoginUseCase{
		employees:       employees,
		tokenService:    tokenService,
		passwordService: passwordService,
		policy:          policy,
		logger:          log,
	}
}

func (uc *LoginUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	credentials, err := valueobject.NewCredentials(entity.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		return nil, apperror.ErrInvalidRequest(err.Error())
	}

	employee, err := uc.employees.Lookup(ctx, credentials.Email())
	if errors.Is(err, outbound.ErrEmployeeNotFound) || (err == nil && employee == nil) {
		logger.LogAuthEvent(ctx, uc.logger, "login", credentials.Email(), "", false, map[string]interface{}{
			"reason": "unknown_email",
		})
		return nil, apperror.ErrInvalidCredentials("")
	}
	if err != nil {
		return nil, apperror.ErrDirectoryLookupFailed(credentials.Email(), err)
	}

	if employee.PasswordHash == "" {
		logger.LogAuthEvent(ctx, uc.logger, "login", credentials.Email(), "", false, map[string]interface{}{
			"reason": "no_password",
		})
		return nil, apperror.ErrInvalidCredentials("")
	}
	if err := uc.passwordService.ComparePassword(employee.PasswordHash, credentials.Password()); err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "login", credentials.Email(), "", false, map[string]interface{}{
			"reason": "bad_password",
		})
		return nil, apperror.ErrInvalidCredentials("")
	}

	role := uc.roleFor(employee)
	accessToken, err := uc.tokenService.GenerateAccessToken(outbound.TokenClaims{
		Email: employee.Email,
		Name:  employee.Name,
		Role:  role,
	})
	if err != nil {
		return nil, apperror.ErrInternalServerError("failed to issue access token", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "login", employee.Email, "", true, nil)

	return &inbound.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(uc.tokenService.AccessTokenTTL().Seconds()),
		Employee:    uc.me(employee, role),
	}, nil
}

func (uc *LoginUseCase) Me(ctx context.Context, email string) (*inbound.MeResponse, error) {
	employee, err := uc.employees.Lookup(ctx, entity.NormalizeEmail(email))
	if errors.Is(err, outbound.ErrEmployeeNotFound) || (err == nil && employee == nil) {
		return nil, apperror.ErrEmployeeNotFound(email)
	}
	if err != nil {
		return nil, apperror.ErrDirectoryLookupFailed(email, err)
	}
	me := uc.me(employee, uc.roleFor(employee))
	return &me, nil
}

// roleFor promotes employees listed as coordinators in the approval policy.
func (uc *LoginUseCase) roleFor(employee *entity.Employee) string {
	role := employee.Role
	if role == "" {
		role = entity.RoleEmployee
	}
	if role == entity.RoleEmployee && uc.policy.IsPOCEmail(employee.Email) {
		role = entity.RolePOC
	}
	return role
}

func (uc *LoginUseCase) me(employee *entity.Employee, role string) inbound.MeResponse {
	return inbound.MeResponse{
		Email:          employee.Email,
		Name:           employee.Name,
		Role:           role,
		EmployeeNumber: employee.EmployeeNumber,
		ImpactLevel:    employee.ImpactLevel,
		ManagerEmail:   employee.ManagerEmail,
		POC:            role == entity.RolePOC,
	}
}
