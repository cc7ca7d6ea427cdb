package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
)

type MockAuthUseCase struct {
	mock.Mock
}

func (m *MockAuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*inbound.LoginResponse)
	return res, args.Error(1)
}

func (m *MockAuthUseCase) Me(ctx context.Context, email string) (*inbound.MeResponse, error) {
	args := m.Called(ctx, email)
	res, _ := args.Get(0).(*inbound.MeResponse)
	return res, args.Error(1)
}

type captchaStub struct {
	enabled bool
}

func (c captchaStub) Verify(ctx context.Context, token string) error {
	if token != "human" {
		return errors.New("robot")
	}
	return nil
}

func (c captchaStub) IsEnabled() bool { return c.enabled }

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		captcha        captchaStub
		body           string
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{
			name:           "success",
			body:           `{"email":"dina@example.com","password":"Password123!"}`,
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad credentials",
			body:           `{"email":"dina@example.com","password":"Password123!"}`,
			mockError:      apperror.ErrInvalidCredentials(""),
			expectCall:     true,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid email",
			body:           `{"email":"dina","password":"Password123!"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "captcha passed",
			captcha:        captchaStub{enabled: true},
			body:           `{"email":"dina@example.com","password":"Password123!","captcha_token":"human"}`,
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "captcha failed",
			captcha:        captchaStub{enabled: true},
			body:           `{"email":"dina@example.com","password":"Password123!","captcha_token":"bot"}`,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockAuthUseCase)
			if tt.expectCall {
				var res *inbound.LoginResponse
				if tt.mockError == nil {
					res = &inbound.LoginResponse{AccessToken: "token", ExpiresIn: 900}
				}
				uc.On("Login", mock.Anything, mock.AnythingOfType("inbound.LoginRequest")).Return(res, tt.mockError)
			}

			router := mux.NewRouter()
			NewAuthHandler(uc, middleware.NewAuthMiddleware(tokenStub{}), nil, middleware.RateLimitRule{}).
				WithCaptcha(tt.captcha).
				RegisterRoutes(router)

			rec, env := serve(t, router, http.MethodPost, "/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, env.Status)
			if tt.expectCall {
				uc.AssertExpectations(t)
			} else {
				uc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("Me", mock.Anything, "dina@example.com").Return(&inbound.MeResponse{Email: "dina@example.com", Role: "employee"}, nil)

	router := mux.NewRouter()
	NewAuthHandler(uc, middleware.NewAuthMiddleware(tokenStub{}), nil, middleware.RateLimitRule{}).RegisterRoutes(router)

	rec, env := serve(t, router, http.MethodGet, "/v1/auth/me", "dina@example.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"dina@example.com","name":"","role":"employee","poc":false}`, string(env.Data))

	rec, _ = serve(t, router, http.MethodGet, "/v1/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
