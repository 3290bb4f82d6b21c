package rbac

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
)

// guardFunc is a predicate over a resource id and the authenticated actor.
type guardFunc func(ctx context.Context, resourceID string, actor *auth.Identity) error

// Middleware adapts Guards into mux route middleware. Guards run strictly
// after the Authenticator; a chain of guards evaluates left to right and
// short-circuits on the first denial.
type Middleware struct {
	guards  *Guards
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewMiddleware creates the guard middleware. metrics may be nil in tests.
func NewMiddleware(guards *Guards, logger *observability.Logger, metrics *observability.Metrics) *Middleware {
	return &Middleware{guards: guards, logger: logger, metrics: metrics}
}

// RequireWorkspaceMember gates a route on workspace membership. The
// workspace id comes from the {workspaceId} path variable.
func (m *Middleware) RequireWorkspaceMember(next http.Handler) http.Handler {
	return m.guard("workspace_member", "workspaceId", m.guards.WorkspaceMember, next)
}

// RequireWorkspaceOwner gates a route on workspace ownership.
func (m *Middleware) RequireWorkspaceOwner(next http.Handler) http.Handler {
	return m.guard("workspace_owner", "workspaceId", m.guards.WorkspaceOwner, next)
}

// RequireWorkspaceAdminOrManager gates a route on the admin or manager
// workspace role.
func (m *Middleware) RequireWorkspaceAdminOrManager(next http.Handler) http.Handler {
	return m.guard("workspace_admin_or_manager", "workspaceId", m.guards.WorkspaceAdminOrManager, next)
}

// RequireTeamAdminOrManager gates a route on the admin or manager team
// role. The team comes from the {teamId} path variable and must belong to
// the workspace in the {workspaceId} path variable.
func (m *Middleware) RequireTeamAdminOrManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.GetIdentity(r)
		if actor == nil {
			httputil.WriteAppError(w, m.logger, apperr.Unauthorized("authentication required"))
			return
		}

		vars := mux.Vars(r)
		workspaceID, teamID := vars["workspaceId"], vars["teamId"]
		if workspaceID == "" || teamID == "" {
			httputil.WriteAppError(w, m.logger, apperr.BadRequest("missing workspaceId or teamId path parameter"))
			return
		}

		if err := m.guards.TeamAdminOrManager(r.Context(), workspaceID, teamID, actor); err != nil {
			if m.metrics != nil && apperr.IsKind(err, apperr.KindUnauthorized) {
				m.metrics.GuardDenialsTotal.WithLabelValues("team_admin_or_manager").Inc()
			}
			httputil.WriteAppError(w, m.logger, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) guard(name, pathVar string, check guardFunc, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.GetIdentity(r)
		if actor == nil {
			httputil.WriteAppError(w, m.logger, apperr.Unauthorized("authentication required"))
			return
		}

		resourceID := mux.Vars(r)[pathVar]
		if resourceID == "" {
			httputil.WriteAppError(w, m.logger, apperr.BadRequest("missing "+pathVar+" path parameter"))
			return
		}

		if err := check(r.Context(), resourceID, actor); err != nil {
			if m.metrics != nil && apperr.IsKind(err, apperr.KindUnauthorized) {
				m.metrics.GuardDenialsTotal.WithLabelValues(name).Inc()
			}
			httputil.WriteAppError(w, m.logger, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
