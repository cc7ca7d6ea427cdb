package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
)

// TravelRequestHandler serves submission, decisions, logistics and the
// conversation log of travel requests.
type TravelRequestHandler struct {
	travelUseCase  inbound.TravelRequestUseCase
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimitMiddleware
	decisionLimit  middleware.RateLimitRule
}

func NewTravelRequestHandler(
	travelUseCase inbound.TravelRequestUseCase,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimitMiddleware,
	decisionLimit middleware.RateLimitRule,
) *TravelRequestHandler {
	return &TravelRequestHandler{
		travelUseCase:  travelUseCase,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		decisionLimit:  decisionLimit,
	}
}

// RegisterRoutes registers travel request routes. Literal paths come before
// the {id} patterns so "mine" is never taken for an ID.
func (h *TravelRequestHandler) RegisterRoutes(router *mux.Router) {
	auth := h.authMiddleware.RequireAuth
	decide := h.Decide
	if h.rateLimiter != nil {
		decide = h.rateLimiter.Limit(h.decisionLimit, h.Decide)
	}

	router.HandleFunc("/v1/travel-requests", auth(h.Submit)).Methods(http.MethodPost)
	router.HandleFunc("/v1/travel-requests/mine", auth(h.ListMine)).Methods(http.MethodGet)
	router.HandleFunc("/v1/travel-requests/{id}", auth(h.Get)).Methods(http.MethodGet)
	router.HandleFunc("/v1/travel-requests/{id}/decision", auth(decide)).Methods(http.MethodPost)
	router.HandleFunc("/v1/travel-requests/{id}/logistics", auth(h.UpdateLogistics)).Methods(http.MethodPut)
	router.HandleFunc("/v1/travel-requests/{id}/messages", auth(h.ListMessages)).Methods(http.MethodGet)
	router.HandleFunc("/v1/travel-requests/{id}/messages", auth(h.PostMessage)).Methods(http.MethodPost)
	router.HandleFunc("/v1/approvals/pending", auth(h.PendingApprovals)).Methods(http.MethodGet)
	router.HandleFunc("/v1/poc/queue", auth(h.POCQueue)).Methods(http.MethodGet)
}

func (h *TravelRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	var req inbound.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	req.RequesterEmail = actor.Email

	created, err := h.travelUseCase.Submit(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Travel request submitted", created)
}

func (h *TravelRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	req, err := h.travelUseCase.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", req)
}

func (h *TravelRequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	res, err := h.travelUseCase.ListMine(r.Context(), actor, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

func (h *TravelRequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	var req inbound.DecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	req.RequestID = mux.Vars(r)["id"]
	req.Actor = actor

	updated, err := h.travelUseCase.Decide(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Decision recorded", updated)
}

func (h *TravelRequestHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	filter := inbound.PendingFilter(strings.ToLower(r.URL.Query().Get("status")))
	res, err := h.travelUseCase.GetPendingApprovals(r.Context(), actor.Email, filter)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

func (h *TravelRequestHandler) POCQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	res, err := h.travelUseCase.POCQueue(r.Context(), actor, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

func (h *TravelRequestHandler) UpdateLogistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	var req inbound.UpdateLogisticsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	req.RequestID = mux.Vars(r)["id"]
	req.Actor = actor

	updated, err := h.travelUseCase.UpdateLogistics(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Logistics updated", updated)
}

func (h *TravelRequestHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	messages, err := h.travelUseCase.ListMessages(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		response.AppError(w, err)
		return
	}
	if messages == nil {
		messages = []*entity.ConversationMessage{}
	}
	response.Success(w, http.StatusOK, "success", messages)
}

func (h *TravelRequestHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	var req inbound.PostMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	req.RequestID = mux.Vars(r)["id"]
	req.Actor = actor

	msg, err := h.travelUseCase.PostMessage(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusCreated, "Message posted", msg)
}
