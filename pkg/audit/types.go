package audit

import (
	"encoding/json"
	"time"
)

// Action is the category of a recorded event.
type Action string

const (
	ActionUserProfileUpdate Action = "user.profile_update"
	ActionUserAvatarUpload  Action = "user.avatar_upload"

	ActionWorkspaceCreate Action = "workspace.create"
	ActionWorkspaceUpdate Action = "workspace.update"
	ActionWorkspaceDelete Action = "workspace.delete"

	ActionMemberAdd        Action = "workspace.member_add"
	ActionMemberRoleChange Action = "workspace.member_role_change"
	ActionMemberRemove     Action = "workspace.member_remove"

	ActionInvitationCreate  Action = "workspace.invitation_create"
	ActionInvitationAccept  Action = "workspace.invitation_accept"
	ActionInvitationDecline Action = "workspace.invitation_decline"
	ActionInvitationRevoke  Action = "workspace.invitation_revoke"

	ActionTeamCreate           Action = "team.create"
	ActionTeamUpdate           Action = "team.update"
	ActionTeamDelete           Action = "team.delete"
	ActionTeamMemberAdd        Action = "team.member_add"
	ActionTeamMemberRoleChange Action = "team.member_role_change"
	ActionTeamMemberRemove     Action = "team.member_remove"
)

// Event is a single audit log entry.
type Event struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
	Action     Action    `json:"action"`

	ActorID    string `json:"actorId,omitempty"`
	ActorEmail string `json:"actorEmail,omitempty"`

	WorkspaceID string `json:"workspaceId,omitempty"`
	ResourceID  string `json:"resourceId,omitempty"`

	RequestID  string `json:"requestId,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses a serialized event.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Filter narrows an audit log query.
type Filter struct {
	WorkspaceID string
	ActorID     string
	Actions     []Action
	Since       *time.Time
	Until       *time.Time

	Limit  int
	Offset int
}

// DefaultQueryLimit caps unbounded audit listings.
const DefaultQueryLimit = 100
