package teams

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/storage/postgres"
)

// ListMembers returns the team's members joined with their user profile,
// oldest first.
func (s *PostgresService) ListMembers(ctx context.Context, teamID string) ([]*Member, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.created_at, u.full_name, u.email
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1
		ORDER BY tm.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role,
			&member.CreatedAt, &member.FullName, &member.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team members: %w", err)
	}

	return members, nil
}

// GetMember retrieves a single team membership row. Returns nil, nil when
// the user is not a member.
func (s *PostgresService) GetMember(ctx context.Context, teamID, userID string) (*Member, error) {
	query := `
		SELECT id, team_id, user_id, role, created_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2
	`
	member := &Member{}
	err := s.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan team member: %w", err)
	}
	return member, nil
}

// AddMember inserts a team membership row.
func (s *PostgresService) AddMember(ctx context.Context, teamID, userID string, role auth.Role) (*Member, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown role %q", role))
	}

	member := &Member{
		ID:     uuid.NewString(),
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
	query := `
		INSERT INTO team_members (id, team_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, member.ID, member.TeamID, member.UserID, member.Role).
		Scan(&member.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("user is already a member of this team")
		}
		if postgres.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	return member, nil
}

// UpdateMemberRole changes a team member's role.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, teamID, userID string, role auth.Role) (*Member, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown role %q", role))
	}

	query := `
		UPDATE team_members
		SET role = $3
		WHERE team_id = $1 AND user_id = $2
		RETURNING id, team_id, user_id, role, created_at
	`
	member := &Member{}
	err := s.db.QueryRowContext(ctx, query, teamID, userID, role).Scan(
		&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("team member not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update team member role: %w", err)
	}
	return member, nil
}

// RemoveMember deletes a team membership row.
func (s *PostgresService) RemoveMember(ctx context.Context, teamID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("team member not found")
	}
	return nil
}
