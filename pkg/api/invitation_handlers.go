package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
	"github.com/planarhq/planar/pkg/workspaces"
)

// InvitationHandlers handles the workspace invitation lifecycle.
type InvitationHandlers struct {
	workspaces workspaces.Service
	logger     *observability.Logger
}

// NewInvitationHandlers creates a new InvitationHandlers
func NewInvitationHandlers(workspaceService workspaces.Service, logger *observability.Logger) *InvitationHandlers {
	return &InvitationHandlers{workspaces: workspaceService, logger: logger}
}

// RegisterRoutes registers invitation routes. Sending, listing, and
// revoking require the admin or manager role. Accept and decline carry no
// workspace guard because the invitee is not a member yet; the addressee
// check happens against the invitation row itself.
func (h *InvitationHandlers) RegisterRoutes(router *mux.Router, guards *rbac.Middleware) {
	router.Handle("/workspaces/{workspaceId}/invitations",
		guards.RequireWorkspaceAdminOrManager(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	router.Handle("/workspaces/{workspaceId}/invitations",
		guards.RequireWorkspaceAdminOrManager(http.HandlerFunc(h.List))).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}/invitations/{invitationId}",
		guards.RequireWorkspaceAdminOrManager(http.HandlerFunc(h.Remove))).Methods(http.MethodDelete)

	router.HandleFunc("/workspaces/{workspaceId}/invitations/{invitationId}/accept", h.Accept).Methods(http.MethodPost)
	router.HandleFunc("/workspaces/{workspaceId}/invitations/{invitationId}/decline", h.Decline).Methods(http.MethodPost)
}

// Create sends an invitation.
func (h *InvitationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req CreateInvitationRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	invitation, err := h.workspaces.CreateInvitation(r.Context(), workspaceID, identity, req.Email, req.Role)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, invitation)
}

// List returns the workspace's pending invitations.
func (h *InvitationHandlers) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	invitations, err := h.workspaces.ListInvitations(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, invitations)
}

// Accept converts the invitation into a membership for the caller.
func (h *InvitationHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	invitationID, err := httputil.PathVar(r, "invitationId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	member, err := h.workspaces.AcceptInvitation(r.Context(), workspaceID, invitationID, identity)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, member)
}

// Decline deletes the invitation without creating a membership.
func (h *InvitationHandlers) Decline(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	invitationID, err := httputil.PathVar(r, "invitationId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.workspaces.DeclineInvitation(r.Context(), workspaceID, invitationID, identity); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteNoContent(w)
}

// Remove revokes a pending invitation.
func (h *InvitationHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	invitationID, err := httputil.PathVar(r, "invitationId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.workspaces.RemoveInvitation(r.Context(), workspaceID, invitationID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteNoContent(w)
}
