package teams

import (
	"time"

	"github.com/planarhq/planar/pkg/auth"
)

// Team is a named group scoped under a workspace. Identifier is the short
// code (e.g. "ENG") unique within its workspace.
type Team struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Identifier  string    `json:"identifier"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Member is a user's membership row in a team.
type Member struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	UserID    string    `json:"userId"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`

	// Denormalized for list responses; not always populated.
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UpdateTeamRequest carries the optional fields of a team update; nil
// means leave unchanged.
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Identifier  *string `json:"identifier,omitempty" validate:"omitempty,min=1,max=10"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}
