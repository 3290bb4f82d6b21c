package api

import "github.com/planarhq/planar/pkg/auth"

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	FullName string `json:"fullName" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// CreateWorkspaceRequest is the body of POST /workspaces.
type CreateWorkspaceRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	URL         string `json:"url" validate:"required,min=1,max=100,lowercase"`
}

// AddMemberRequest is the body of POST /workspaces/{workspaceId}/members.
type AddMemberRequest struct {
	UserID string    `json:"userId" validate:"required"`
	Role   auth.Role `json:"role" validate:"required,oneof=admin manager member"`
}

// UpdateMemberRoleRequest is the body of member role updates.
type UpdateMemberRoleRequest struct {
	Role auth.Role `json:"role" validate:"required,oneof=admin manager member"`
}

// CreateInvitationRequest is the body of POST /workspaces/{workspaceId}/invitations.
type CreateInvitationRequest struct {
	Email string    `json:"email" validate:"required,email"`
	Role  auth.Role `json:"role" validate:"required,oneof=admin manager member"`
}

// CreateTeamRequest is the body of POST /workspaces/{workspaceId}/teams.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Identifier  string `json:"identifier" validate:"required,min=1,max=10"`
	Description string `json:"description" validate:"max=2000"`
}

// AddTeamMemberRequest is the body of POST .../teams/{teamId}/members.
type AddTeamMemberRequest struct {
	UserID string    `json:"userId" validate:"required"`
	Role   auth.Role `json:"role" validate:"required,oneof=admin manager member"`
}
