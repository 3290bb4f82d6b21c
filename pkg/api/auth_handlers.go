package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
)

// AuthHandlers handles signup, login, refresh, and identity resolution.
type AuthHandlers struct {
	auth   *auth.Service
	logger *observability.Logger
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(authService *auth.Service, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{auth: authService, logger: logger}
}

// RegisterPublicRoutes registers the unauthenticated auth routes.
func (h *AuthHandlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/signup", h.Signup).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)
}

// RegisterRoutes registers the authenticated auth routes.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
}

// Signup creates a new account.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, user)
}

// Login verifies credentials and issues a token pair.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

// Refresh rotates a token pair.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	session, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

// Me returns the authenticated user's profile.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	user, err := h.auth.Me(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, user)
}
