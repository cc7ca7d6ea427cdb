package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
	"github.com/tripdesk/tripdesk/infrastructure/http/validator"
)

// DirectoryHandler exposes the org directory and approval chain previews.
type DirectoryHandler struct {
	directoryUseCase inbound.DirectoryUseCase
	authMiddleware   *middleware.AuthMiddleware
}

func NewDirectoryHandler(directoryUseCase inbound.DirectoryUseCase, authMiddleware *middleware.AuthMiddleware) *DirectoryHandler {
	return &DirectoryHandler{
		directoryUseCase: directoryUseCase,
		authMiddleware:   authMiddleware,
	}
}

func (h *DirectoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/employees", h.authMiddleware.RequireAdmin(h.ListEmployees)).Methods(http.MethodGet)
	router.HandleFunc("/v1/employees/{email}", h.authMiddleware.RequireAuth(h.GetEmployee)).Methods(http.MethodGet)
	router.HandleFunc("/v1/employees/{email}/chain", h.authMiddleware.RequireAuth(h.PreviewChain)).Methods(http.MethodGet)
}

func (h *DirectoryHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	res, err := h.directoryUseCase.ListEmployees(r.Context(), inbound.ListEmployeesRequest{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
	})
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

// GetEmployee is limited to the caller's own record unless the caller is an admin.
func (h *DirectoryHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	email, ok := h.authorizedEmail(w, r)
	if !ok {
		return
	}

	employee, err := h.directoryUseCase.GetEmployee(r.Context(), email)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", employee)
}

// PreviewChain shows the approvers a submission by email would be routed to.
func (h *DirectoryHandler) PreviewChain(w http.ResponseWriter, r *http.Request) {
	email, ok := h.authorizedEmail(w, r)
	if !ok {
		return
	}

	chain, err := h.directoryUseCase.PreviewChain(r.Context(), email)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", chain)
}

func (h *DirectoryHandler) authorizedEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return "", false
	}

	email := entity.NormalizeEmail(mux.Vars(r)["email"])
	if email == "me" {
		email = actor.Email
	}
	if !validator.Email(email) {
		response.AppError(w, apperror.ErrInvalidRequest("invalid email"))
		return "", false
	}
	if email != actor.Email && actor.Role != entity.RoleAdmin {
		response.AppError(w, apperror.ErrForbidden("directory records are visible to their owner"))
		return "", false
	}
	return email, true
}
