package audit

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/contextkeys"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
)

// routeActions maps mutating routes to their audit action. Routes not
// listed here are not recorded.
var routeActions = map[string]Action{
	"PUT /users/me":        ActionUserProfileUpdate,
	"PUT /users/me/avatar": ActionUserAvatarUpload,

	"POST /workspaces":                  ActionWorkspaceCreate,
	"PUT /workspaces/{workspaceId}":     ActionWorkspaceUpdate,
	"DELETE /workspaces/{workspaceId}":  ActionWorkspaceDelete,

	"POST /workspaces/{workspaceId}/members":            ActionMemberAdd,
	"PUT /workspaces/{workspaceId}/members/{userId}":    ActionMemberRoleChange,
	"DELETE /workspaces/{workspaceId}/members/{userId}": ActionMemberRemove,

	"POST /workspaces/{workspaceId}/invitations":                            ActionInvitationCreate,
	"DELETE /workspaces/{workspaceId}/invitations/{invitationId}":           ActionInvitationRevoke,
	"POST /workspaces/{workspaceId}/invitations/{invitationId}/accept":      ActionInvitationAccept,
	"POST /workspaces/{workspaceId}/invitations/{invitationId}/decline":     ActionInvitationDecline,

	"POST /workspaces/{workspaceId}/teams":              ActionTeamCreate,
	"PUT /workspaces/{workspaceId}/teams/{teamId}":      ActionTeamUpdate,
	"DELETE /workspaces/{workspaceId}/teams/{teamId}":   ActionTeamDelete,

	"POST /workspaces/{workspaceId}/teams/{teamId}/members":            ActionTeamMemberAdd,
	"PUT /workspaces/{workspaceId}/teams/{teamId}/members/{userId}":    ActionTeamMemberRoleChange,
	"DELETE /workspaces/{workspaceId}/teams/{teamId}/members/{userId}": ActionTeamMemberRemove,
}

// Middleware records mutating API requests to the audit trail.
type Middleware struct {
	sink   Logger
	logger *observability.Logger
}

// NewMiddleware creates a new Middleware
func NewMiddleware(sink Logger, logger *observability.Logger) *Middleware {
	return &Middleware{sink: sink, logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.status = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Handler wraps next so that successful mutations are recorded after the
// response is written. Recording failures never fail the request.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		action, ok := m.actionFor(r)
		if !ok || rec.status >= 400 {
			return
		}

		event := &Event{
			OccurredAt: time.Now().UTC(),
			Action:     action,
			RequestID:  contextkeys.GetRequestID(r.Context()),
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: rec.status,
		}
		if identity := middleware.GetIdentity(r); identity != nil {
			event.ActorID = identity.UserID
			event.ActorEmail = identity.Email
		}

		vars := mux.Vars(r)
		event.WorkspaceID = vars["workspaceId"]
		switch {
		case vars["userId"] != "":
			event.ResourceID = vars["userId"]
		case vars["invitationId"] != "":
			event.ResourceID = vars["invitationId"]
		case vars["teamId"] != "":
			event.ResourceID = vars["teamId"]
		}

		if err := m.sink.Record(r.Context(), event); err != nil {
			m.logger.WithError(err).Warn("failed to record audit event")
		}
	})
}

func (m *Middleware) actionFor(r *http.Request) (Action, bool) {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "", false
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return "", false
	}
	action, ok := routeActions[r.Method+" "+template]
	return action, ok
}
