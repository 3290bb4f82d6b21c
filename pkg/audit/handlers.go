package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
)

// Handlers serves the audit trail query endpoint.
type Handlers struct {
	store  *DBLogger
	logger *observability.Logger
}

// NewHandlers creates a new Handlers
func NewHandlers(store *DBLogger, logger *observability.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

// RegisterRoutes registers the audit routes. Reading the trail needs the
// workspace admin or manager role.
func (h *Handlers) RegisterRoutes(router *mux.Router, guards *rbac.Middleware) {
	router.Handle("/workspaces/{workspaceId}/audit",
		guards.RequireWorkspaceAdminOrManager(http.HandlerFunc(h.List))).Methods(http.MethodGet)
}

// List returns the workspace's audit events, newest first. Supports
// action, since, until, limit, and offset query parameters.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := httputil.PathVar(r, "workspaceId")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	filter := Filter{WorkspaceID: workspaceID}

	query := r.URL.Query()
	for _, a := range query["action"] {
		filter.Actions = append(filter.Actions, Action(a))
	}
	if v := query.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteAppError(w, h.logger, apperr.BadRequest("invalid since timestamp"))
			return
		}
		filter.Since = &since
	}
	if v := query.Get("until"); v != "" {
		until, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteAppError(w, h.logger, apperr.BadRequest("invalid until timestamp"))
			return
		}
		filter.Until = &until
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			httputil.WriteAppError(w, h.logger, apperr.BadRequest("invalid limit"))
			return
		}
		filter.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			httputil.WriteAppError(w, h.logger, apperr.BadRequest("invalid offset"))
			return
		}
		filter.Offset = offset
	}

	events, err := h.store.List(r.Context(), filter)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteSuccess(w, events)
}
