package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/storage/avatars"
	"github.com/planarhq/planar/pkg/users"
)

// UserHandlers handles profile updates and avatar uploads.
type UserHandlers struct {
	store   users.Store
	avatars *avatars.Store // nil when avatar storage is disabled
	logger  *observability.Logger
}

// NewUserHandlers creates a new UserHandlers. avatarStore may be nil.
func NewUserHandlers(store users.Store, avatarStore *avatars.Store, logger *observability.Logger) *UserHandlers {
	return &UserHandlers{store: store, avatars: avatarStore, logger: logger}
}

// RegisterRoutes registers the authenticated user routes.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/me", h.UpdateProfile).Methods(http.MethodPut)
	router.HandleFunc("/users/me/avatar", h.UploadAvatar).Methods(http.MethodPut)
}

// UpdateProfile applies profile edits for the authenticated user.
func (h *UserHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	var req users.UpdateUserRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	user, err := h.store.Update(r.Context(), identity.UserID, &req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	if user == nil {
		httputil.WriteAppError(w, h.logger, apperr.NotFound("user not found"))
		return
	}

	httputil.WriteSuccess(w, user)
}

// UploadAvatar stores the request body as the user's profile picture and
// records its URL on the profile.
func (h *UserHandlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	if h.avatars == nil {
		httputil.WriteAppError(w, h.logger, apperr.BadRequest("avatar storage is not configured"))
		return
	}

	url, err := h.avatars.Upload(r.Context(), identity.UserID, r.Body)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	user, err := h.store.Update(r.Context(), identity.UserID, &users.UpdateUserRequest{ProfilePicture: &url})
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	if user == nil {
		httputil.WriteAppError(w, h.logger, apperr.NotFound("user not found"))
		return
	}

	httputil.WriteSuccess(w, user)
}
