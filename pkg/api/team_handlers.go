package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
	"github.com/planarhq/planar/pkg/teams"
)

// TeamHandlers handles team CRUD and team membership.
type TeamHandlers struct {
	teams  teams.Service
	logger *observability.Logger
}

// NewTeamHandlers creates a new TeamHandlers
func NewTeamHandlers(teamService teams.Service, logger *observability.Logger) *TeamHandlers {
	return &TeamHandlers{teams: teamService, logger: logger}
}

// RegisterRoutes registers team routes. Creation needs the workspace admin
// or manager role; team mutation chains the workspace-member guard with
// the team admin-or-manager guard.
func (h *TeamHandlers) RegisterRoutes(router *mux.Router, guards *rbac.Middleware) {
	router.Handle("/workspaces/{workspaceId}/teams",
		guards.RequireWorkspaceAdminOrManager(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	router.Handle("/workspaces/{workspaceId}/teams",
		guards.RequireWorkspaceMember(http.HandlerFunc(h.List))).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}/teams/{teamId}",
		guards.RequireWorkspaceMember(http.HandlerFunc(h.Get))).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}/teams/{teamId}",
		guards.RequireWorkspaceMember(guards.RequireTeamAdminOrManager(http.HandlerFunc(h.Update)))).Methods(http.MethodPut)
	router.Handle("/workspaces/{workspaceId}/teams/{teamId}",
		guards.RequireWorkspaceMember(guards.RequireTeamAdminOrManager(http.HandlerFunc(h.Delete)))).Methods(http.MethodDelete)

	router.Handle("/workspaces/{workspaceId}/teams/{teamId}/members",
		guards.RequireWorkspaceMember(http.HandlerFunc(h.ListMembers))).Methods(http.MethodGet)
	router.Handle("/workspaces/{workspaceId}/teams/{teamId}/members",
		guards.RequireWorkspaceMember(guards.RequireTeamAdminOrManager(http.HandlerFunc(h.AddMember)))).Methods(http.MethodPost)
	router.Handle("/workspaces/{workspaceId}/teams/{teamId}/members/{userId}",
		guards.RequireWorkspaceMember(guards.RequireTeamAdminOrManager(http.HandlerFunc(h.UpdateMemberRole)))).Methods(http.MethodPut)
	router.Handle("/workspaces/{workspaceId}/teams/{teamId}/members/{userId}",
		guards.RequireWorkspaceMember(guards.RequireTeamAdminOrManager(http.HandlerFunc(h.RemoveMember)))).Methods(http.MethodDelete)
}

// Create creates a team; the caller becomes its first admin.
func (h *TeamHandlers) Create(w http.ResponseWriter, r *http.Request) {
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

	var req CreateTeamRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	team, err := h.teams.CreateTeam(r.Context(), workspaceID, identity.UserID, req.Name, req.Identifier, req.Description)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, team)
}

// List returns the workspace's teams.
func (h *TeamHandlers) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	list, err := h.teams.ListTeams(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

// Get returns a single team.
func (h *TeamHandlers) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.teamInWorkspace(r)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, team)
}

// Update applies team edits.
func (h *TeamHandlers) Update(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathVar(r, "teamId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req teams.UpdateTeamRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	team, err := h.teams.UpdateTeam(r.Context(), teamID, &req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, team)
}

// Delete removes the team and its memberships.
func (h *TeamHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathVar(r, "teamId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.teams.DeleteTeam(r.Context(), teamID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ListMembers returns the team's members.
func (h *TeamHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	team, err := h.teamInWorkspace(r)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	members, err := h.teams.ListMembers(r.Context(), team.ID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, members)
}

// AddMember inserts a team membership row.
func (h *TeamHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathVar(r, "teamId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req AddTeamMemberRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	member, err := h.teams.AddMember(r.Context(), teamID, req.UserID, req.Role)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteCreated(w, member)
}

// UpdateMemberRole changes a team member's role.
func (h *TeamHandlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathVar(r, "teamId")
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

	member, err := h.teams.UpdateMemberRole(r.Context(), teamID, userID, req.Role)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, member)
}

// teamInWorkspace resolves the {teamId} path variable and checks the team
// belongs to the workspace in {workspaceId}. A team that lives in another
// workspace is reported as not found.
func (h *TeamHandlers) teamInWorkspace(r *http.Request) (*teams.Team, error) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		return nil, err
	}
	teamID, err := httputil.PathVar(r, "teamId")
	if err != nil {
		return nil, err
	}

	team, err := h.teams.GetTeam(r.Context(), teamID)
	if err != nil {
		return nil, err
	}
	if team == nil || team.WorkspaceID != workspaceID {
		return nil, apperr.NotFound("team not found")
	}
	return team, nil
}

// RemoveMember deletes a team membership row.
func (h *TeamHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathVar(r, "teamId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	userID, err := httputil.PathVar(r, "userId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.teams.RemoveMember(r.Context(), teamID, userID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteNoContent(w)
}
