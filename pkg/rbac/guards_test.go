package rbac

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/contextkeys"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/teams"
	"github.com/planarhq/planar/pkg/workspaces"
)

// fakeWorkspaces holds one workspace with an explicit role map.
type fakeWorkspaces struct {
	workspace *workspaces.Workspace
	roles     map[string]auth.Role
}

func (f *fakeWorkspaces) GetWorkspace(_ context.Context, id string) (*workspaces.Workspace, error) {
	if f.workspace != nil && f.workspace.ID == id {
		return f.workspace, nil
	}
	return nil, nil
}

func (f *fakeWorkspaces) GetMember(_ context.Context, workspaceID, userID string) (*workspaces.Member, error) {
	if f.workspace == nil || f.workspace.ID != workspaceID {
		return nil, nil
	}
	role, ok := f.roles[userID]
	if !ok {
		return nil, nil
	}
	return &workspaces.Member{
		ID: "m-" + userID, WorkspaceID: workspaceID, UserID: userID,
		Role: role, CreatedAt: time.Now(),
	}, nil
}

type fakeTeams struct {
	team  *teams.Team
	roles map[string]auth.Role
}

func (f *fakeTeams) GetTeam(_ context.Context, id string) (*teams.Team, error) {
	if f.team != nil && f.team.ID == id {
		return f.team, nil
	}
	return nil, nil
}

func (f *fakeTeams) GetMember(_ context.Context, teamID, userID string) (*teams.Member, error) {
	if f.team == nil || f.team.ID != teamID {
		return nil, nil
	}
	role, ok := f.roles[userID]
	if !ok {
		return nil, nil
	}
	return &teams.Member{
		ID: "tm-" + userID, TeamID: teamID, UserID: userID,
		Role: role, CreatedAt: time.Now(),
	}, nil
}

func actor(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Email: id + "@example.com"}
}

func newTestGuards() *Guards {
	ws := &fakeWorkspaces{
		workspace: &workspaces.Workspace{ID: "w1", Title: "Acme", URL: "acme", OwnerID: "owner"},
		roles: map[string]auth.Role{
			"owner":   auth.RoleAdmin,
			"admin":   auth.RoleAdmin,
			"manager": auth.RoleManager,
			"plain":   auth.RoleMember,
		},
	}
	ts := &fakeTeams{
		team: &teams.Team{ID: "t1", WorkspaceID: "w1", Name: "Engineering", Identifier: "ENG"},
		roles: map[string]auth.Role{
			"admin": auth.RoleAdmin,
			"plain": auth.RoleMember,
		},
	}
	return NewGuards(ws, ts)
}

func TestWorkspaceMember(t *testing.T) {
	ctx := context.Background()
	guards := newTestGuards()

	t.Run("member passes", func(t *testing.T) {
		assert.NoError(t, guards.WorkspaceMember(ctx, "w1", actor("plain")))
	})

	t.Run("outsider is unauthorized", func(t *testing.T) {
		err := guards.WorkspaceMember(ctx, "w1", actor("stranger"))
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})

	t.Run("missing workspace is not found even for outsiders", func(t *testing.T) {
		err := guards.WorkspaceMember(ctx, "ghost", actor("stranger"))
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestWorkspaceOwner(t *testing.T) {
	ctx := context.Background()
	guards := newTestGuards()

	t.Run("owner passes", func(t *testing.T) {
		assert.NoError(t, guards.WorkspaceOwner(ctx, "w1", actor("owner")))
	})

	t.Run("admin who is not the owner is unauthorized", func(t *testing.T) {
		err := guards.WorkspaceOwner(ctx, "w1", actor("admin"))
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})
}

func TestWorkspaceAdminOrManager(t *testing.T) {
	ctx := context.Background()
	guards := newTestGuards()

	t.Run("admin and manager pass", func(t *testing.T) {
		assert.NoError(t, guards.WorkspaceAdminOrManager(ctx, "w1", actor("admin")))
		assert.NoError(t, guards.WorkspaceAdminOrManager(ctx, "w1", actor("manager")))
	})

	t.Run("plain member is denied on role", func(t *testing.T) {
		err := guards.WorkspaceAdminOrManager(ctx, "w1", actor("plain"))
		require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
		assert.Contains(t, err.Error(), "role")
	})

	t.Run("non-member is denied on membership, not role", func(t *testing.T) {
		err := guards.WorkspaceAdminOrManager(ctx, "w1", actor("stranger"))
		require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
		assert.Contains(t, err.Error(), "member")
	})
}

func TestTeamAdminOrManager(t *testing.T) {
	ctx := context.Background()
	guards := newTestGuards()

	t.Run("team admin passes", func(t *testing.T) {
		assert.NoError(t, guards.TeamAdminOrManager(ctx, "w1", "t1", actor("admin")))
	})

	t.Run("plain team member is denied", func(t *testing.T) {
		err := guards.TeamAdminOrManager(ctx, "w1", "t1", actor("plain"))
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})

	t.Run("workspace admin without team membership is denied", func(t *testing.T) {
		err := guards.TeamAdminOrManager(ctx, "w1", "t1", actor("manager"))
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
	})

	t.Run("missing team is not found", func(t *testing.T) {
		err := guards.TeamAdminOrManager(ctx, "w1", "ghost", actor("admin"))
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("team in another workspace is not found, even for its admin", func(t *testing.T) {
		err := guards.TeamAdminOrManager(ctx, "w-other", "t1", actor("admin"))
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestGuardMiddleware(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	mw := NewMiddleware(newTestGuards(), logger, nil)

	newRouter := func(wrap func(http.Handler) http.Handler) *mux.Router {
		r := mux.NewRouter()
		ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Handle("/workspaces/{workspaceId}", wrap(ok)).Methods(http.MethodGet)
		r.Handle("/teams/{teamId}", wrap(ok)).Methods(http.MethodGet)
		return r
	}

	do := func(router *mux.Router, path string, identity *auth.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if identity != nil {
			req = req.WithContext(contextkeys.WithIdentity(req.Context(), identity))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("member passes through", func(t *testing.T) {
		router := newRouter(mw.RequireWorkspaceMember)
		rec := do(router, "/workspaces/w1", actor("plain"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("outsider gets 401", func(t *testing.T) {
		router := newRouter(mw.RequireWorkspaceMember)
		rec := do(router, "/workspaces/w1", actor("stranger"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing workspace gets 404", func(t *testing.T) {
		router := newRouter(mw.RequireWorkspaceMember)
		rec := do(router, "/workspaces/ghost", actor("plain"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no identity gets 401", func(t *testing.T) {
		router := newRouter(mw.RequireWorkspaceMember)
		rec := do(router, "/workspaces/w1", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("chained guards short-circuit on the first denial", func(t *testing.T) {
		r := mux.NewRouter()
		ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		chained := mw.RequireWorkspaceMember(mw.RequireTeamAdminOrManager(ok))
		r.Handle("/workspaces/{workspaceId}/teams/{teamId}", chained).Methods(http.MethodGet)

		rec := do(r, "/workspaces/w1/teams/t1", actor("plain"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(r, "/workspaces/w1/teams/t1", actor("admin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
