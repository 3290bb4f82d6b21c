package workspaces

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/storage/postgres"
)

// Service is the workspace domain interface the API layer depends on.
type Service interface {
	CreateWorkspace(ctx context.Context, ownerID, title, description, url string) (*Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	GetWorkspaceByURL(ctx context.Context, url string) (*Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]*Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, req *UpdateWorkspaceRequest) (*Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error

	ListMembers(ctx context.Context, workspaceID string) ([]*Member, error)
	GetMember(ctx context.Context, workspaceID, userID string) (*Member, error)
	AddMember(ctx context.Context, workspaceID, userID string, role auth.Role) (*Member, error)
	UpdateMemberRole(ctx context.Context, workspaceID, userID string, role auth.Role) (*Member, error)
	RemoveMember(ctx context.Context, workspaceID, userID string) error

	CreateInvitation(ctx context.Context, workspaceID string, sender *auth.Identity, email string, role auth.Role) (*Invitation, error)
	ListInvitations(ctx context.Context, workspaceID string) ([]*Invitation, error)
	AcceptInvitation(ctx context.Context, workspaceID, invitationID string, actor *auth.Identity) (*Member, error)
	DeclineInvitation(ctx context.Context, workspaceID, invitationID string, actor *auth.Identity) error
	RemoveInvitation(ctx context.Context, workspaceID, invitationID string) error
	DeleteInvitationsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresService implements Service over database/sql.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new workspace service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

const workspaceColumns = `id, title, description, url, owner_id, created_at, updated_at`

// CreateWorkspace inserts the workspace and the owner's admin membership in
// one transaction, so the owner passes member-gated reads from the first
// moment the workspace is visible.
func (s *PostgresService) CreateWorkspace(ctx context.Context, ownerID, title, description, url string) (*Workspace, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	workspace := &Workspace{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		URL:         url,
		OwnerID:     ownerID,
	}

	query := `
		INSERT INTO workspaces (id, title, description, url, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		workspace.ID, workspace.Title, workspace.Description, workspace.URL, workspace.OwnerID).
		Scan(&workspace.CreatedAt, &workspace.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("workspace url already taken")
		}
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), workspace.ID, ownerID, auth.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return workspace, nil
}

// GetWorkspace retrieves a workspace by id. Returns nil, nil when absent.
func (s *PostgresService) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	return scanWorkspace(s.db.QueryRowContext(ctx, query, id))
}

// GetWorkspaceByURL retrieves a workspace by its url slug. Returns nil, nil
// when absent.
func (s *PostgresService) GetWorkspaceByURL(ctx context.Context, url string) (*Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE url = $1`
	return scanWorkspace(s.db.QueryRowContext(ctx, query, url))
}

// ListWorkspacesForUser returns every workspace the user owns or belongs
// to, newest first.
func (s *PostgresService) ListWorkspacesForUser(ctx context.Context, userID string) ([]*Workspace, error) {
	query := `
		SELECT DISTINCT w.id, w.title, w.description, w.url, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		LEFT JOIN workspace_members wm ON w.id = wm.workspace_id
		WHERE w.owner_id = $1 OR wm.user_id = $1
		ORDER BY w.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := []*Workspace{}
	for rows.Next() {
		workspace := &Workspace{}
		if err := rows.Scan(
			&workspace.ID, &workspace.Title, &workspace.Description, &workspace.URL,
			&workspace.OwnerID, &workspace.CreatedAt, &workspace.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, workspace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}

	return workspaces, nil
}

// UpdateWorkspace applies the provided fields and bumps updated_at.
func (s *PostgresService) UpdateWorkspace(ctx context.Context, id string, req *UpdateWorkspaceRequest) (*Workspace, error) {
	query := `
		UPDATE workspaces
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    url = COALESCE($4, url),
		    updated_at = $5
		WHERE id = $1
		RETURNING ` + workspaceColumns
	workspace, err := scanWorkspace(s.db.QueryRowContext(ctx, query, id, req.Title, req.Description, req.URL, time.Now()))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("workspace url already taken")
		}
		return nil, err
	}
	if workspace == nil {
		return nil, apperr.NotFound("workspace not found")
	}
	return workspace, nil
}

// DeleteWorkspace removes the workspace and everything under it in one
// transaction. Members, invitations, teams, and team members go through
// explicit deletes rather than relying on FK cascade alone, so the whole
// subtree disappears atomically even if a cascade is missing.
func (s *PostgresService) DeleteWorkspace(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM team_members WHERE team_id IN (SELECT id FROM teams WHERE workspace_id = $1)`,
		`DELETE FROM teams WHERE workspace_id = $1`,
		`DELETE FROM workspace_invitations WHERE workspace_id = $1`,
		`DELETE FROM workspace_members WHERE workspace_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete workspace contents: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("workspace not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanWorkspace(row *sql.Row) (*Workspace, error) {
	workspace := &Workspace{}
	err := row.Scan(
		&workspace.ID, &workspace.Title, &workspace.Description, &workspace.URL,
		&workspace.OwnerID, &workspace.CreatedAt, &workspace.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	return workspace, nil
}
