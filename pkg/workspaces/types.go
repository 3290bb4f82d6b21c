package workspaces

import (
	"time"

	"github.com/planarhq/planar/pkg/auth"
)

// DefaultInvitationTTL is how long a new invitation stays acceptable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Workspace is the top-level collaboration container. URL is the unique
// human-readable slug used for by-url lookup.
type Workspace struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Member is a user's membership row in a workspace.
type Member struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	UserID      string    `json:"userId"`
	Role        auth.Role `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`

	// Denormalized for list responses; not always populated.
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Invitation is a pending offer to join a workspace. Terminal transitions
// (accept, decline, remove) delete the row; expiry is detected lazily by
// comparing ExpiresAt at read time.
type Invitation struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Email       string    `json:"email"`
	Role        auth.Role `json:"role"`
	InvitedBy   string    `json:"invitedBy"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Expired reports whether the invitation's deadline has passed.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// UpdateWorkspaceRequest carries the optional fields of a workspace
// update; nil means leave unchanged.
type UpdateWorkspaceRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	URL         *string `json:"url,omitempty" validate:"omitempty,min=1,max=100,lowercase"`
}
