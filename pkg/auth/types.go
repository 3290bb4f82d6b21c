package auth

import "github.com/planarhq/planar/pkg/users"

// Role is the role a member holds within a workspace or team.
type Role string

const (
	RoleAdmin   Role = "admin"   // Full control over the resource
	RoleManager Role = "manager" // Can manage members and settings
	RoleMember  Role = "member"  // Regular member
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may mutate the resource it is scoped
// to (admin or manager).
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

// Identity is the resolved caller attached to the request context by the
// authentication middleware. It is constructed once per request and never
// mutated afterwards.
type Identity struct {
	UserID string
	Email  string
	User   *users.User
}

// Session is the token pair issued on login and refresh. ExpiresAt is the
// absolute expiry instant of the access token in unix seconds; the service
// deliberately never reports a relative "expiresIn" duration.
type Session struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    int64       `json:"expiresAt"`
	User         *users.User `json:"user,omitempty"`
}
