package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
	"github.com/planarhq/planar/pkg/workspaces"
)

// MemberHandlers handles workspace membership management.
type MemberHandlers struct {
	workspaces workspaces.Service
	logger     *observability.Logger
}

// NewMemberHandlers creates a new MemberHandlers
func NewMemberHandlers(workspaceService workspaces.Service, logger *observability.Logger) *MemberHandlers {
	return &MemberHandlers{workspaces: workspaceService, logger: logger}
}

// RegisterRoutes registers member routes: reads are member-gated, writes
// are owner-gated.
func (h *MemberHandlers) RegisterRoutes(router *mux.Router, guards *rbac.Middleware) {
	router.Handle("/workspaces/{workspaceId}/members",
		guards.RequireWorkspaceMember(http.HandlerFunc(h.List))).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}/members",
		guards.RequireWorkspaceOwner(http.HandlerFunc(h.Add))).Methods(http.MethodPost)
	router.Handle("/workspaces/{workspaceId}/members/{userId}",
		guards.RequireWorkspaceOwner(http.HandlerFunc(h.UpdateRole))).Methods(http.MethodPut)
	router.Handle("/workspaces/{workspaceId}/members/{userId}",
		guards.RequireWorkspaceOwner(http.HandlerFunc(h.Remove))).Methods(http.MethodDelete)
}

// List returns the workspace's members.
func (h *MemberHandlers) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	members, err := h.workspaces.ListMembers(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, members)
}

// Add inserts a membership row for an existing user.
func (h *MemberHandlers) Add(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req AddMemberRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	member, err := h.workspaces.AddMember(r.Context(), workspaceID, req.UserID, req.Role)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, member)
}

// UpdateRole changes a member's role.
func (h *MemberHandlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	userID, err := httputil.PathVar(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req UpdateMemberRoleRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	member, err := h.workspaces.UpdateMemberRole(r.Context(), workspaceID, userID, req.Role)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, member)
}

// Remove deletes a membership row.
func (h *MemberHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	userID, err := httputil.PathVar(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.workspaces.RemoveMember(r.Context(), workspaceID, userID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteNoContent(w)
}
