package workspaces

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/storage/postgres"
	"github.com/planarhq/planar/pkg/users"
)

// ListMembers returns the workspace's members joined with their user
// profile, oldest first.
func (s *PostgresService) ListMembers(ctx context.Context, workspaceID string) ([]*Member, error) {
	query := `
		SELECT wm.id, wm.workspace_id, wm.user_id, wm.role, wm.created_at, u.full_name, u.email
		FROM workspace_members wm
		JOIN users u ON wm.user_id = u.id
		WHERE wm.workspace_id = $1
		ORDER BY wm.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(
			&member.ID, &member.WorkspaceID, &member.UserID, &member.Role,
			&member.CreatedAt, &member.FullName, &member.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// GetMember retrieves a single membership row. Returns nil, nil when the
// user is not a member.
func (s *PostgresService) GetMember(ctx context.Context, workspaceID, userID string) (*Member, error) {
	query := `
		SELECT id, workspace_id, user_id, role, created_at
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2
	`
	member := &Member{}
	err := s.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(
		&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan member: %w", err)
	}
	return member, nil
}

// AddMember inserts a membership row. The unique constraint turns a
// concurrent duplicate add into a conflict; the user_id foreign key turns
// a nonexistent user into not found.
func (s *PostgresService) AddMember(ctx context.Context, workspaceID, userID string, role auth.Role) (*Member, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown role %q", role))
	}

	member := &Member{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}
	query := `
		INSERT INTO workspace_members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, member.ID, member.WorkspaceID, member.UserID, member.Role).
		Scan(&member.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("user is already a member of this workspace")
		}
		if postgres.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// UpdateMemberRole changes a member's role.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, workspaceID, userID string, role auth.Role) (*Member, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown role %q", role))
	}

	query := `
		UPDATE workspace_members
		SET role = $3
		WHERE workspace_id = $1 AND user_id = $2
		RETURNING id, workspace_id, user_id, role, created_at
	`
	member := &Member{}
	err := s.db.QueryRowContext(ctx, query, workspaceID, userID, role).Scan(
		&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("member not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}
	return member, nil
}

// RemoveMember deletes a membership row.
func (s *PostgresService) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("member not found")
	}
	return nil
}

// isMemberByEmail reports whether the workspace already has a member whose
// account uses the given (normalized) email.
func (s *PostgresService) isMemberByEmail(ctx context.Context, workspaceID, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM workspace_members wm
			JOIN users u ON wm.user_id = u.id
			WHERE wm.workspace_id = $1 AND u.email = $2
		)
	`, workspaceID, users.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership by email: %w", err)
	}
	return exists, nil
}
