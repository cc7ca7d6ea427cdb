package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/application/port/outbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
)

// MockTravelRequestUseCase is a mock implementation of TravelRequestUseCase
type MockTravelRequestUseCase struct {
	mock.Mock
}

func (m *MockTravelRequestUseCase) Submit(ctx context.Context, req inbound.SubmitRequest) (*entity.TravelRequest, error) {
	args := m.Called(ctx, req)
	return travelRequestArg(args, 0), args.Error(1)
}

func (m *MockTravelRequestUseCase) Decide(ctx context.Context, req inbound.DecisionRequest) (*entity.TravelRequest, error) {
	args := m.Called(ctx, req)
	return travelRequestArg(args, 0), args.Error(1)
}

func (m *MockTravelRequestUseCase) Get(ctx context.Context, actor valueobject.Actor, id string) (*entity.TravelRequest, error) {
	args := m.Called(ctx, actor, id)
	return travelRequestArg(args, 0), args.Error(1)
}

func (m *MockTravelRequestUseCase) ListMine(ctx context.Context, actor valueobject.Actor, limit, offset int) (*inbound.ListRequestsResponse, error) {
	args := m.Called(ctx, actor, limit, offset)
	res, _ := args.Get(0).(*inbound.ListRequestsResponse)
	return res, args.Error(1)
}

func (m *MockTravelRequestUseCase) GetPendingApprovals(ctx context.Context, approverEmail string, filter inbound.PendingFilter) (*inbound.PendingApprovalsResponse, error) {
	args := m.Called(ctx, approverEmail, filter)
	res, _ := args.Get(0).(*inbound.PendingApprovalsResponse)
	return res, args.Error(1)
}

func (m *MockTravelRequestUseCase) POCQueue(ctx context.Context, actor valueobject.Actor, limit, offset int) (*inbound.ListRequestsResponse, error) {
	args := m.Called(ctx, actor, limit, offset)
	res, _ := args.Get(0).(*inbound.ListRequestsResponse)
	return res, args.Error(1)
}

func (m *MockTravelRequestUseCase) UpdateLogistics(ctx context.Context, req inbound.UpdateLogisticsRequest) (*entity.TravelRequest, error) {
	args := m.Called(ctx, req)
	return travelRequestArg(args, 0), args.Error(1)
}

func (m *MockTravelRequestUseCase) PostMessage(ctx context.Context, req inbound.PostMessageRequest) (*entity.ConversationMessage, error) {
	args := m.Called(ctx, req)
	msg, _ := args.Get(0).(*entity.ConversationMessage)
	return msg, args.Error(1)
}

func (m *MockTravelRequestUseCase) ListMessages(ctx context.Context, actor valueobject.Actor, requestID string) ([]*entity.ConversationMessage, error) {
	args := m.Called(ctx, actor, requestID)
	msgs, _ := args.Get(0).([]*entity.ConversationMessage)
	return msgs, args.Error(1)
}

func travelRequestArg(args mock.Arguments, i int) *entity.TravelRequest {
	req, _ := args.Get(i).(*entity.TravelRequest)
	return req
}

// tokenStub accepts "Bearer <email>" and makes the email the caller.
type tokenStub struct{}

func (tokenStub) GenerateAccessToken(c outbound.TokenClaims) (string, error) { return c.Email, nil }

func (tokenStub) ValidateAccessToken(token string) (*outbound.TokenClaims, error) {
	if token == "" || token == "expired" {
		return nil, errors.New("invalid token")
	}
	role := entity.RoleEmployee
	if token == "poc@example.com" {
		role = entity.RolePOC
	}
	return &outbound.TokenClaims{Email: token, Role: role}, nil
}

func (tokenStub) AccessTokenTTL() time.Duration { return time.Minute }

func newTravelRouter(uc inbound.TravelRequestUseCase) *mux.Router {
	router := mux.NewRouter()
	NewTravelRequestHandler(uc, middleware.NewAuthMiddleware(tokenStub{}), nil, middleware.RateLimitRule{}).RegisterRoutes(router)
	return router
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestTravelRequestHandler_Decide(t *testing.T) {
	tests := []struct {
		name           string
		token          string
		body           string
		mockResult     *entity.TravelRequest
		mockError      error
		expectCall     bool
		expectedStatus int
		expectedCode   apperror.ErrorCode
	}{
		{
			name:           "approved",
			token:          "ana@example.com",
			body:           `{"outcome":"Approved","comment":"ok"}`,
			mockResult:     &entity.TravelRequest{ID: "req-1", Status: entity.StatusPending},
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not current approver",
			token:          "bob@example.com",
			body:           `{"outcome":"Approved"}`,
			mockError:      apperror.ErrNotCurrentApprover("Ana (ana@example.com)"),
			expectCall:     true,
			expectedStatus: http.StatusForbidden,
			expectedCode:   apperror.ErrCodeNotCurrentApprover,
		},
		{
			name:           "terminal request",
			token:          "ana@example.com",
			body:           `{"outcome":"Rejected"}`,
			mockError:      apperror.ErrInvalidTransition("request is Approved"),
			expectCall:     true,
			expectedStatus: http.StatusConflict,
			expectedCode:   apperror.ErrCodeInvalidTransition,
		},
		{
			name:           "concurrent modification",
			token:          "ana@example.com",
			body:           `{"outcome":"Approved"}`,
			mockError:      apperror.ErrConcurrentModification("req-1"),
			expectCall:     true,
			expectedStatus: http.StatusConflict,
			expectedCode:   apperror.ErrCodeConcurrentModification,
		},
		{
			name:           "unknown request",
			token:          "ana@example.com",
			body:           `{"outcome":"Approved"}`,
			mockError:      apperror.ErrRequestNotFound("req-1"),
			expectCall:     true,
			expectedStatus: http.StatusNotFound,
			expectedCode:   apperror.ErrCodeRequestNotFound,
		},
		{
			name:           "invalid outcome",
			token:          "ana@example.com",
			body:           `{"outcome":"Maybe"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperror.ErrCodeInvalidRequest,
		},
		{
			name:           "malformed body",
			token:          "ana@example.com",
			body:           `{"outcome":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperror.ErrCodeInvalidRequest,
		},
		{
			name:           "missing token",
			body:           `{"outcome":"Approved"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unexpected error",
			token:          "ana@example.com",
			body:           `{"outcome":"Approved"}`,
			mockError:      errors.New("boom"),
			expectCall:     true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockTravelRequestUseCase)
			if tt.expectCall {
				uc.On("Decide", mock.Anything, mock.MatchedBy(func(req inbound.DecisionRequest) bool {
					return req.RequestID == "req-1" && req.Actor.Email == tt.token
				})).Return(tt.mockResult, tt.mockError)
			}

			rec, env := serve(t, newTravelRouter(uc), http.MethodPost, "/v1/travel-requests/req-1/decision", tt.token, tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, env.Status)
			if tt.expectedCode != "" {
				var data struct {
					Code apperror.ErrorCode `json:"code"`
				}
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, tt.expectedCode, data.Code)
			}
			uc.AssertExpectations(t)
			if !tt.expectCall {
				uc.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestTravelRequestHandler_Submit(t *testing.T) {
	uc := new(MockTravelRequestUseCase)
	created := &entity.TravelRequest{ID: "req-9", OriginatorEmail: "ana@example.com", Status: entity.StatusPending}
	uc.On("Submit", mock.Anything, mock.MatchedBy(func(req inbound.SubmitRequest) bool {
		return req.RequesterEmail == "ana@example.com" && req.Trip.Destination == "Singapore"
	})).Return(created, nil)

	body := `{"trip":{"origin":"Jakarta","destination":"Singapore","purpose":"Vendor audit",
		"departure_date":"2026-03-01T00:00:00Z","return_date":"2026-03-04T00:00:00Z"}}`
	rec, env := serve(t, newTravelRouter(uc), http.MethodPost, "/v1/travel-requests", "ana@example.com", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Status)
	var got entity.TravelRequest
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "req-9", got.ID)
	uc.AssertExpectations(t)
}

func TestTravelRequestHandler_SubmitValidation(t *testing.T) {
	uc := new(MockTravelRequestUseCase)
	rec, env := serve(t, newTravelRouter(uc), http.MethodPost, "/v1/travel-requests", "ana@example.com", `{"trip":{"origin":"Jakarta"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Status)
	uc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestTravelRequestHandler_MineRoutesBeforeID(t *testing.T) {
	uc := new(MockTravelRequestUseCase)
	uc.On("ListMine", mock.Anything, mock.Anything, 10, 0).
		Return(&inbound.ListRequestsResponse{Requests: []*entity.TravelRequest{}, Total: 0}, nil)

	rec, _ := serve(t, newTravelRouter(uc), http.MethodGet, "/v1/travel-requests/mine?limit=10", "ana@example.com", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	uc.AssertExpectations(t)
	uc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestTravelRequestHandler_PendingApprovals(t *testing.T) {
	uc := new(MockTravelRequestUseCase)
	uc.On("GetPendingApprovals", mock.Anything, "ana@example.com", inbound.PendingFilterAll).
		Return(&inbound.PendingApprovalsResponse{
			Requests: []*entity.TravelRequest{},
			Counts:   entity.ApprovalCounts{Pending: 1, Approved: 2, Rejected: 3},
		}, nil)

	rec, env := serve(t, newTravelRouter(uc), http.MethodGet, "/v1/approvals/pending?status=ALL", "ana@example.com", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requests":[],"counts":{"pending":1,"approved":2,"rejected":3}}`, string(env.Data))
	uc.AssertExpectations(t)
}

func TestTravelRequestHandler_UpdateLogistics(t *testing.T) {
	uc := new(MockTravelRequestUseCase)
	uc.On("UpdateLogistics", mock.Anything, mock.MatchedBy(func(req inbound.UpdateLogisticsRequest) bool {
		return req.RequestID == "req-1" && req.Actor.POC && req.Hotel == "Marina Bay"
	})).Return(&entity.TravelRequest{ID: "req-1", Status: entity.StatusManagerApproved}, nil)
	uc.On("UpdateLogistics", mock.Anything, mock.Anything).
		Return(nil, apperror.ErrNotTravelCoordinator("ana@example.com"))

	router := newTravelRouter(uc)

	rec, _ := serve(t, router, http.MethodPut, "/v1/travel-requests/req-1/logistics", "poc@example.com", `{"hotel":"Marina Bay"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, router, http.MethodPut, "/v1/travel-requests/req-1/logistics", "ana@example.com", `{"hotel":"Marina Bay"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTravelRequestHandler_Messages(t *testing.T) {
	uc := new(MockTravelRequestUseCase)
	uc.On("ListMessages", mock.Anything, mock.Anything, "req-1").Return(nil, nil)
	uc.On("PostMessage", mock.Anything, mock.MatchedBy(func(req inbound.PostMessageRequest) bool {
		return req.Body == "Booked?" && req.RequestID == "req-1"
	})).Return(&entity.ConversationMessage{ID: "m-1", Body: "Booked?"}, nil)

	router := newTravelRouter(uc)

	rec, env := serve(t, router, http.MethodGet, "/v1/travel-requests/req-1/messages", "ana@example.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, _ = serve(t, router, http.MethodPost, "/v1/travel-requests/req-1/messages", "ana@example.com", `{"body":"Booked?"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = serve(t, router, http.MethodPost, "/v1/travel-requests/req-1/messages", "ana@example.com", `{"body":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	uc.AssertNumberOfCalls(t, "PostMessage", 1)
}
