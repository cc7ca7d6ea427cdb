package inbound

import (
	"context"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`

	// CaptchaToken is checked by the transport when captcha is enabled.
	CaptchaToken string `json:"captcha_token,omitempty"`
}

type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int        `json:"expires_in"`
	Employee    MeResponse `json:"employee"`
}

type MeResponse struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	EmployeeNumber string `json:"employee_number,omitempty"`
	ImpactLevel    string `json:"impact_level,omitempty"`
	ManagerEmail   string `json:"manager_email,omitempty"`
	POC            bool   `json:"poc"`
}

type AuthUseCase interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, email string) (*MeResponse, error)
}
