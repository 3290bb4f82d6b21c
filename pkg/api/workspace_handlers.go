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

// WorkspaceHandlers handles workspace CRUD and by-url lookup.
type WorkspaceHandlers struct {
	workspaces workspaces.Service
	guards     *rbac.Guards
	logger     *observability.Logger
}

// NewWorkspaceHandlers creates a new WorkspaceHandlers
func NewWorkspaceHandlers(workspaceService workspaces.Service, guards *rbac.Guards, logger *observability.Logger) *WorkspaceHandlers {
	return &WorkspaceHandlers{workspaces: workspaceService, guards: guards, logger: logger}
}

// RegisterRoutes registers workspace routes behind the given guard
// middleware.
func (h *WorkspaceHandlers) RegisterRoutes(router *mux.Router, guards *rbac.Middleware) {
	router.HandleFunc("/workspaces", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/workspaces", h.List).Methods(http.MethodGet)
	router.HandleFunc("/workspaces/by-url/{url}", h.GetByURL).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}",
		guards.RequireWorkspaceMember(http.HandlerFunc(h.Get))).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}",
		guards.RequireWorkspaceOwner(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	router.Handle("/workspaces/{workspaceId}",
		guards.RequireWorkspaceOwner(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
}

// Create creates a workspace owned by the caller.
func (h *WorkspaceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	var req CreateWorkspaceRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	workspace, err := h.workspaces.CreateWorkspace(r.Context(), identity.UserID, req.Title, req.Description, req.URL)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, workspace)
}

// List returns the workspaces the caller owns or belongs to.
func (h *WorkspaceHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	list, err := h.workspaces.ListWorkspacesForUser(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

// Get returns a single workspace. Membership is enforced by the route
// guard.
func (h *WorkspaceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	workspace, err := h.workspaces.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	if workspace == nil {
		httputil.WriteAppError(w, h.logger, apperr.NotFound("workspace not found"))
		return
	}

	httputil.WriteSuccess(w, workspace)
}

// GetByURL resolves a workspace by its url slug. The membership check runs
// here rather than in route middleware because the workspace id is only
// known after the lookup.
func (h *WorkspaceHandlers) GetByURL(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteAppError(w, h.logger, apperr.Unauthorized("authentication required"))
		return
	}

	url, err := httputil.PathVar(r, "url")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	workspace, err := h.workspaces.GetWorkspaceByURL(r.Context(), url)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	if workspace == nil {
		httputil.WriteAppError(w, h.logger, apperr.NotFound("workspace not found"))
		return
	}

	if err := h.guards.WorkspaceMember(r.Context(), workspace.ID, identity); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, workspace)
}

// Update applies workspace edits. Ownership is enforced by the route guard.
func (h *WorkspaceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req workspaces.UpdateWorkspaceRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	workspace, err := h.workspaces.UpdateWorkspace(r.Context(), workspaceID, &req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, workspace)
}

// Delete removes the workspace and its whole subtree.
func (h *WorkspaceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.workspaces.DeleteWorkspace(r.Context(), workspaceID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteNoContent(w)
}
