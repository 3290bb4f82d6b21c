package rbac

import (
	"context"
	"fmt"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/teams"
	"github.com/planarhq/planar/pkg/workspaces"
)

// WorkspaceReader is the slice of the workspace service the guards need.
type WorkspaceReader interface {
	GetWorkspace(ctx context.Context, id string) (*workspaces.Workspace, error)
	GetMember(ctx context.Context, workspaceID, userID string) (*workspaces.Member, error)
}

// TeamReader is the slice of the team service the guards need.
type TeamReader interface {
	GetTeam(ctx context.Context, id string) (*teams.Team, error)
	GetMember(ctx context.Context, teamID, userID string) (*teams.Member, error)
}

// Guards evaluates resource-scoped authorization predicates. Each guard is
// a single read; existence is checked before membership so an outsider
// probing a real workspace gets 401, not 404, and a missing workspace is
// 404 for everyone.
type Guards struct {
	workspaces WorkspaceReader
	teams      TeamReader
}

// NewGuards creates the guard evaluator
func NewGuards(workspaceReader WorkspaceReader, teamReader TeamReader) *Guards {
	return &Guards{workspaces: workspaceReader, teams: teamReader}
}

// WorkspaceMember passes when the actor has any membership row in the
// workspace.
func (g *Guards) WorkspaceMember(ctx context.Context, workspaceID string, actor *auth.Identity) error {
	if _, err := g.requireWorkspace(ctx, workspaceID); err != nil {
		return err
	}

	member, err := g.workspaces.GetMember(ctx, workspaceID, actor.UserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.Unauthorized("you are not a member of this workspace")
	}
	return nil
}

// WorkspaceOwner passes only for the workspace's owner. Ownership is the
// owner_id column, independent of membership rows.
func (g *Guards) WorkspaceOwner(ctx context.Context, workspaceID string, actor *auth.Identity) error {
	workspace, err := g.requireWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if workspace.OwnerID != actor.UserID {
		return apperr.Unauthorized("only the workspace owner can do this")
	}
	return nil
}

// WorkspaceAdminOrManager passes when the actor is a workspace member with
// the admin or manager role. Membership is checked before role so a
// non-member gets the membership error, not the role error.
func (g *Guards) WorkspaceAdminOrManager(ctx context.Context, workspaceID string, actor *auth.Identity) error {
	if _, err := g.requireWorkspace(ctx, workspaceID); err != nil {
		return err
	}

	member, err := g.workspaces.GetMember(ctx, workspaceID, actor.UserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.Unauthorized("you are not a member of this workspace")
	}
	if !member.Role.CanManage() {
		return apperr.Unauthorized("admin or manager role required")
	}
	return nil
}

// TeamAdminOrManager passes when the actor is a team member with the admin
// or manager role. A team that exists but belongs to a different workspace
// than the one in the request path is treated as not found, so team ids
// cannot be reached through another workspace's routes.
func (g *Guards) TeamAdminOrManager(ctx context.Context, workspaceID, teamID string, actor *auth.Identity) error {
	team, err := g.teams.GetTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil || team.WorkspaceID != workspaceID {
		return apperr.NotFound("team not found")
	}

	member, err := g.teams.GetMember(ctx, teamID, actor.UserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.Unauthorized("you are not a member of this team")
	}
	if !member.Role.CanManage() {
		return apperr.Unauthorized("admin or manager role required")
	}
	return nil
}

func (g *Guards) requireWorkspace(ctx context.Context, workspaceID string) (*workspaces.Workspace, error) {
	workspace, err := g.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if workspace == nil {
		return nil, apperr.NotFound("workspace not found")
	}
	return workspace, nil
}
