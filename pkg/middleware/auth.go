package middleware

import (
	"net/http"
	"strings"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/contextkeys"
	"github.com/planarhq/planar/pkg/httputil"
	"github.com/planarhq/planar/pkg/observability"
)

// Authenticator verifies the bearer token on each request and attaches the
// resolved identity to the request context. The subject is re-resolved from
// the user store on every request, so deleting an account immediately
// revokes its outstanding tokens.
type Authenticator struct {
	auth   *auth.Service
	logger *observability.Logger
}

// NewAuthenticator creates the authentication middleware
func NewAuthenticator(authService *auth.Service, logger *observability.Logger) *Authenticator {
	return &Authenticator{auth: authService, logger: logger}
}

// Handler wraps an HTTP handler with authentication. The header must be
// exactly "Authorization: Bearer <token>"; any other scheme is treated the
// same as a missing header.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httputil.WriteAppError(w, a.logger, apperr.Unauthorized("missing or malformed authorization header"))
			return
		}

		identity, err := a.auth.VerifyAccess(r.Context(), token)
		if err != nil {
			httputil.WriteAppError(w, a.logger, err)
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header.
// Format: "Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetIdentity extracts the authenticated identity from the request context.
// Returns nil on routes that did not pass through the Authenticator.
func GetIdentity(r *http.Request) *auth.Identity {
	value := r.Context().Value(contextkeys.IdentityKey)
	if value == nil {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
