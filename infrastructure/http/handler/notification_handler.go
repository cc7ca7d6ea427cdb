package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
	"github.com/tripdesk/tripdesk/infrastructure/http/sse"
)

// NotificationHandler serves the caller's in-app inbox.
type NotificationHandler struct {
	notificationUseCase inbound.NotificationUseCase
	authMiddleware      *middleware.AuthMiddleware
	stream              *sse.Streamer
}

func NewNotificationHandler(notificationUseCase inbound.NotificationUseCase, authMiddleware *middleware.AuthMiddleware) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		authMiddleware:      authMiddleware,
	}
}

// WithStream enables GET /v1/notifications/stream.
func (h *NotificationHandler) WithStream(stream *sse.Streamer) *NotificationHandler {
	h.stream = stream
	return h
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/notifications", h.authMiddleware.RequireAuth(h.List)).Methods(http.MethodGet)
	if h.stream != nil {
		router.HandleFunc("/v1/notifications/stream", h.authMiddleware.RequireAuth(h.Stream)).Methods(http.MethodGet)
	}
	router.HandleFunc("/v1/notifications/{id}/read", h.authMiddleware.RequireAuth(h.MarkRead)).Methods(http.MethodPut)
}

// List accepts ?unread=true and ?limit=N.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	items, err := h.notificationUseCase.Inbox(r.Context(), actor.Email, unreadOnly, queryInt(r, "limit", 0))
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", items)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	if err := h.notificationUseCase.MarkRead(r.Context(), actor.Email, mux.Vars(r)["id"]); err != nil {
		response.AppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream keeps the connection open and pushes the caller's notifications as
// server-sent events.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}
	h.stream.HandleSSE(w, r, actor.Email)
}
