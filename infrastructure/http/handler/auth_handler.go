package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tripdesk/tripdesk/application/port/inbound"
	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
	"github.com/tripdesk/tripdesk/infrastructure/service/recaptcha"
)

type AuthHandler struct {
	authUseCase    inbound.AuthUseCase
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimitMiddleware
	loginLimit     middleware.RateLimitRule
	captcha        recaptcha.Verifier
}

func NewAuthHandler(
	authUseCase inbound.AuthUseCase,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimitMiddleware,
	loginLimit middleware.RateLimitRule,
) *AuthHandler {
	return &AuthHandler{
		authUseCase:    authUseCase,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		loginLimit:     loginLimit,
	}
}

// WithCaptcha requires a valid captcha token on login while v is enabled.
func (h *AuthHandler) WithCaptcha(v recaptcha.Verifier) *AuthHandler {
	h.captcha = v
	return h
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	login := h.Login
	if h.rateLimiter != nil {
		login = h.rateLimiter.Limit(h.loginLimit, h.Login)
	}
	router.HandleFunc("/v1/auth/login", login).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/me", h.authMiddleware.RequireAuth(h.Me)).Methods(http.MethodGet)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.AppError(w, err)
		return
	}
	if h.captcha != nil && h.captcha.IsEnabled() {
		if err := h.captcha.Verify(r.Context(), req.CaptchaToken); err != nil {
			response.AppError(w, apperror.ErrInvalidCredentials("captcha verification failed"))
			return
		}
	}

	res, err := h.authUseCase.Login(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	res, err := h.authUseCase.Me(r.Context(), actor.Email)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", res)
}
