package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/planarhq/planar/pkg/audit"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/config"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/middleware"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
	"github.com/planarhq/planar/pkg/storage/avatars"
	"github.com/planarhq/planar/pkg/teams"
	"github.com/planarhq/planar/pkg/users"
	"github.com/planarhq/planar/pkg/workspaces"
)

const maxRequestBytes = 4 << 20 // 4 MiB, avatars are the largest bodies

// Server wires handlers, middleware, and guards into the public HTTP API.
type Server struct {
	cfg     config.ServerConfig
	logger  *observability.Logger
	metrics *observability.Metrics
	tracing bool

	authenticator *middleware.Authenticator
	guardMw       *rbac.Middleware

	authHandlers       *AuthHandlers
	userHandlers       *UserHandlers
	workspaceHandlers  *WorkspaceHandlers
	memberHandlers     *MemberHandlers
	invitationHandlers *InvitationHandlers
	teamHandlers       *TeamHandlers

	auditMw       *audit.Middleware
	auditHandlers *audit.Handlers

	httpServer *http.Server
}

// Deps are the services the server is built from.
type Deps struct {
	AuthService      *auth.Service
	UserStore        users.Store
	WorkspaceService workspaces.Service
	TeamService      teams.Service
	Guards           *rbac.Guards
	AvatarStore      *avatars.Store // nil disables avatar uploads
	AuditSink        audit.Logger   // nil disables the audit trail
	AuditStore       *audit.DBLogger
	Logger           *observability.Logger
	Metrics          *observability.Metrics
	TracingEnabled   bool
}

// NewServer creates the API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	server := &Server{
		cfg:                cfg,
		logger:             deps.Logger,
		metrics:            deps.Metrics,
		tracing:            deps.TracingEnabled,
		authenticator:      middleware.NewAuthenticator(deps.AuthService, deps.Logger),
		guardMw:            rbac.NewMiddleware(deps.Guards, deps.Logger, deps.Metrics),
		authHandlers:       NewAuthHandlers(deps.AuthService, deps.Logger),
		userHandlers:       NewUserHandlers(deps.UserStore, deps.AvatarStore, deps.Logger),
		workspaceHandlers:  NewWorkspaceHandlers(deps.WorkspaceService, deps.Guards, deps.Logger),
		memberHandlers:     NewMemberHandlers(deps.WorkspaceService, deps.Logger),
		invitationHandlers: NewInvitationHandlers(deps.WorkspaceService, deps.Logger),
		teamHandlers:       NewTeamHandlers(deps.TeamService, deps.Logger),
	}
	if deps.AuditSink != nil {
		server.auditMw = audit.NewMiddleware(deps.AuditSink, deps.Logger)
	}
	if deps.AuditStore != nil {
		server.auditHandlers = audit.NewHandlers(deps.AuditStore, deps.Logger)
	}
	return server
}

// Router builds the route tree: public auth routes, then an authenticated
// subrouter behind the bearer-token middleware, with per-route guards on
// top of that.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(s.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)

	s.authHandlers.RegisterPublicRoutes(router)

	authed := router.NewRoute().Subrouter()
	authed.Use(s.authenticator.Handler)
	if s.auditMw != nil {
		authed.Use(s.auditMw.Handler)
	}
	s.authHandlers.RegisterRoutes(authed)
	s.userHandlers.RegisterRoutes(authed)
	s.workspaceHandlers.RegisterRoutes(authed, s.guardMw)
	s.memberHandlers.RegisterRoutes(authed, s.guardMw)
	s.invitationHandlers.RegisterRoutes(authed, s.guardMw)
	s.teamHandlers.RegisterRoutes(authed, s.guardMw)
	if s.auditHandlers != nil {
		s.auditHandlers.RegisterRoutes(authed, s.guardMw)
	}

	chain := httputil.Chain(
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.CORSMiddleware(s.cfg.AllowedOrigins),
		httputil.MaxBytesMiddleware(maxRequestBytes),
	)

	var handler http.Handler = chain(router)
	if s.metrics != nil {
		handler = s.metrics.InstrumentHandler("api", handler)
	}
	if s.tracing {
		handler = otelhttp.NewHandler(handler, "planar.api")
	}
	return handler
}

// ListenAndServe runs the API server until the context is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
		Error:   "NotFoundError",
		Message: "route not found",
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
		Error:   "BadRequestError",
		Message: "method not allowed",
	})
}
