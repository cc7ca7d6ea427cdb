package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/tripdesk/application/usecase"
	"github.com/tripdesk/tripdesk/application/usecase/directory"
	"github.com/tripdesk/tripdesk/application/usecase/travel"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/adapter/memory"
	httpserver "github.com/tripdesk/tripdesk/infrastructure/http"
	"github.com/tripdesk/tripdesk/infrastructure/http/handler"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/orgchart"
	"github.com/tripdesk/tripdesk/infrastructure/service/jwt"
	"github.com/tripdesk/tripdesk/infrastructure/service/lock"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
	"github.com/tripdesk/tripdesk/infrastructure/service/notification"
	"github.com/tripdesk/tripdesk/infrastructure/service/password"
)

const org = `
employees:
  - {email: dina@example.com, name: Dina, manager: citra@example.com, impact_level: 5B, password: Password123!}
  - {email: citra@example.com, name: Citra, manager: budi@example.com, impact_level: 4A, password: Password123!}
  - {email: budi@example.com, name: Budi, manager: ana@example.com, impact_level: 3B, password: Password123!}
  - {email: ana@example.com, name: Ana, impact_level: 2A, password: Password123!}
  - {email: travel@example.com, name: Travel Desk, impact_level: 5A, role: poc, password: Password123!}
`

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	inbox   *memory.NotificationStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNopLogger()

	employees := memory.NewEmployeeRepository()
	hasher := password.NewBcryptPasswordService(4)
	records, err := orgchart.Parse([]byte(org))
	require.NoError(t, err)
	_, err = orgchart.Seed(ctx, employees, hasher, records, time.Now().UTC())
	require.NoError(t, err)

	inbox := memory.NewNotificationStore()
	channels, err := notification.BuildChannels([]string{"inbox"}, inbox, log)
	require.NoError(t, err)
	dispatcher, err := notification.NewDispatcher(notification.Config{PoolSize: 2}, log, channels...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dispatcher.Close() })

	tokens, err := jwt.NewJWTService("0123456789abcdef0123456789abcdef", "tripdesk-test", time.Hour)
	require.NoError(t, err)

	policy := valueobject.DefaultApprovalPolicy()
	travelUseCase := travel.NewTravelRequestUseCase(travel.Dependencies{
		Directory:     employees,
		Requests:      memory.NewTravelRequestRepository(),
		Conversations: memory.NewConversationRepository(),
		Notifier:      dispatcher,
		Locker:        lock.NewLocalLocker(time.Second),
		Policy:        policy,
		Logger:        log,
	})

	auth := middleware.NewAuthMiddleware(tokens)
	h := httpserver.NewRouter(httpserver.ServerConfig{}, log,
		handler.NewAuthHandler(usecase.NewLoginUseCase(employees, tokens, hasher, policy, log), auth, nil, middleware.RateLimitRule{}),
		handler.NewTravelRequestHandler(travelUseCase, auth, nil, middleware.RateLimitRule{}),
		handler.NewNotificationHandler(usecase.NewNotificationUseCase(inbox), auth),
		handler.NewDirectoryHandler(directory.NewDirectoryUseCase(employees, travel.NewChainBuilder(employees, policy, log)), auth),
	)
	return &testAPI{t: t, handler: h, inbox: inbox}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, apiEnvelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env apiEnvelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testAPI) login(email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": "Password123!"})
	require.Equal(a.t, http.StatusOK, code, string(env.Data))
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &res))
	return res.AccessToken
}

func decodeRequest(t *testing.T, env apiEnvelope) entity.TravelRequest {
	t.Helper()
	var tr entity.TravelRequest
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	return tr
}

func TestApprovalWorkflowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	dina := api.login("dina@example.com")
	citra := api.login("citra@example.com")
	budi := api.login("budi@example.com")
	poc := api.login("travel@example.com")

	code, env := api.do(http.MethodPost, "/v1/travel-requests", dina, map[string]interface{}{
		"trip": map[string]interface{}{
			"origin":         "Jakarta",
			"destination":    "Singapore",
			"purpose":        "Vendor audit",
			"departure_date": "2026-03-01T00:00:00Z",
			"return_date":    "2026-03-04T00:00:00Z",
		},
	})
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	created := decodeRequest(t, env)
	require.Len(t, created.ApprovalChain, 2)
	assert.Equal(t, "citra@example.com", created.ApprovalChain[0].Email)
	assert.Equal(t, "budi@example.com", created.ApprovalChain[1].Email)
	assert.Equal(t, entity.StatusPending, created.Status)

	decide := func(token, outcome string) (int, apiEnvelope) {
		return api.do(http.MethodPost, "/v1/travel-requests/"+created.ID+"/decision", token, map[string]string{"outcome": outcome})
	}

	// budi is second in line and must wait for citra.
	code, _ = decide(budi, "Approved")
	assert.Equal(t, http.StatusForbidden, code)

	code, env = decide(citra, "Approved")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decodeRequest(t, env).CurrentApprovalIndex)

	code, env = api.do(http.MethodGet, "/v1/approvals/pending", budi, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), created.ID)

	code, env = decide(budi, "Approved")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.StatusManagerApproved, decodeRequest(t, env).Status)

	code, env = api.do(http.MethodGet, "/v1/poc/queue", poc, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), created.ID)

	code, _ = api.do(http.MethodPut, "/v1/travel-requests/"+created.ID+"/logistics", poc, map[string]string{
		"hotel":        "Marina Bay",
		"vendor_email": "bookings@agency.example",
	})
	require.Equal(t, http.StatusOK, code)

	code, env = decide(poc, "Approved")
	require.Equal(t, http.StatusOK, code)
	final := decodeRequest(t, env)
	assert.Equal(t, entity.StatusApproved, final.Status)
	assert.Equal(t, "Marina Bay", final.Logistics.Hotel)

	code, _ = decide(poc, "Rejected")
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodGet, "/v1/travel-requests/"+created.ID+"/messages", dina, nil)
	require.Equal(t, http.StatusOK, code)
	var messages []entity.ConversationMessage
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	assert.GreaterOrEqual(t, len(messages), 5)

	assert.Eventually(t, func() bool {
		items, err := api.inbox.ListByRecipient(context.Background(), "dina@example.com", false, 50)
		if err != nil {
			return false
		}
		for _, n := range items {
			if n.Kind == entity.NotifyRequestApproved {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)

	code, env = api.do(http.MethodGet, "/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Status)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "dina@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Status)
}

func TestDirectoryChainPreview(t *testing.T) {
	api := newTestAPI(t)
	dina := api.login("dina@example.com")

	code, env := api.do(http.MethodGet, "/v1/employees/me/chain", dina, nil)
	require.Equal(t, http.StatusOK, code)
	var chain entity.ApprovalChain
	require.NoError(t, json.Unmarshal(env.Data, &chain))
	require.Len(t, chain, 2)
	assert.Equal(t, "budi@example.com", chain[1].Email)

	code, _ = api.do(http.MethodGet, "/v1/employees/ana@example.com", dina, nil)
	assert.Equal(t, http.StatusForbidden, code)
}
