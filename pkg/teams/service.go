package teams

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

// Service is the team domain interface the API layer depends on.
type Service interface {
	CreateTeam(ctx context.Context, workspaceID, creatorID, name, identifier, description string) (*Team, error)
	GetTeam(ctx context.Context, id string) (*Team, error)
	ListTeams(ctx context.Context, workspaceID string) ([]*Team, error)
	UpdateTeam(ctx context.Context, id string, req *UpdateTeamRequest) (*Team, error)
	DeleteTeam(ctx context.Context, id string) error

	ListMembers(ctx context.Context, teamID string) ([]*Member, error)
	GetMember(ctx context.Context, teamID, userID string) (*Member, error)
	AddMember(ctx context.Context, teamID, userID string, role auth.Role) (*Member, error)
	UpdateMemberRole(ctx context.Context, teamID, userID string, role auth.Role) (*Member, error)
	RemoveMember(ctx context.Context, teamID, userID string) error
}

// PostgresService implements Service over database/sql.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new team service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

const teamColumns = `id, workspace_id, name, identifier, description, created_at, updated_at`

// CreateTeam inserts the team and the creator's admin membership in one
// transaction. The identifier is unique per workspace; a duplicate yields
// a conflict.
func (s *PostgresService) CreateTeam(ctx context.Context, workspaceID, creatorID, name, identifier, description string) (*Team, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	team := &Team{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		Identifier:  identifier,
		Description: description,
	}
	query := `
		INSERT INTO teams (id, workspace_id, name, identifier, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		team.ID, team.WorkspaceID, team.Name, team.Identifier, team.Description).
		Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("team identifier already used in this workspace")
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), team.ID, creatorID, auth.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return team, nil
}

// GetTeam retrieves a team by id. Returns nil, nil when absent.
func (s *PostgresService) GetTeam(ctx context.Context, id string) (*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team := &Team{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.WorkspaceID, &team.Name, &team.Identifier, &team.Description,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	return team, nil
}

// ListTeams returns the workspace's teams, oldest first.
func (s *PostgresService) ListTeams(ctx context.Context, workspaceID string) ([]*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE workspace_id = $1 ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []*Team{}
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(
			&team.ID, &team.WorkspaceID, &team.Name, &team.Identifier, &team.Description,
			&team.CreatedAt, &team.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

// UpdateTeam applies the provided fields and bumps updated_at.
func (s *PostgresService) UpdateTeam(ctx context.Context, id string, req *UpdateTeamRequest) (*Team, error) {
	query := `
		UPDATE teams
		SET name = COALESCE($2, name),
		    identifier = COALESCE($3, identifier),
		    description = COALESCE($4, description),
		    updated_at = $5
		WHERE id = $1
		RETURNING ` + teamColumns
	team := &Team{}
	err := s.db.QueryRowContext(ctx, query, id, req.Name, req.Identifier, req.Description, time.Now()).Scan(
		&team.ID, &team.WorkspaceID, &team.Name, &team.Identifier, &team.Description,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("team not found")
	}
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("team identifier already used in this workspace")
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// DeleteTeam removes the team and its memberships in one transaction.
func (s *PostgresService) DeleteTeam(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete team members: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("team not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
