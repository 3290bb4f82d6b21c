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
	"github.com/planarhq/planar/pkg/users"
)

const invitationColumns = `id, workspace_id, email, role, invited_by, expires_at, created_at`

func expiredInvitationError() *apperr.Error {
	return apperr.BadRequest("invitation has expired",
		apperr.Issue{Field: "expiresAt", Message: "Invitation expired", Code: "expired"})
}

// CreateInvitation creates a pending invitation. Preconditions: the sender
// cannot invite themselves, the invitee must not already be a member, and
// there must be no pending invitation for the same email. The unique index
// on (workspace_id, email) backstops the last check under concurrency.
func (s *PostgresService) CreateInvitation(ctx context.Context, workspaceID string, sender *auth.Identity, email string, role auth.Role) (*Invitation, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown role %q", role))
	}

	email = users.NormalizeEmail(email)
	if email == users.NormalizeEmail(sender.Email) {
		return nil, apperr.BadRequest("you cannot invite yourself")
	}

	alreadyMember, err := s.isMemberByEmail(ctx, workspaceID, email)
	if err != nil {
		return nil, err
	}
	if alreadyMember {
		return nil, apperr.Conflict("user is already a member of this workspace")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// An expired row for the same address still occupies the unique index
	// until the sweep collects it. Clear it in the same transaction so
	// re-inviting after expiry succeeds immediately.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM workspace_invitations
		WHERE workspace_id = $1 AND email = $2 AND expires_at <= $3
	`, workspaceID, email, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to clear expired invitation: %w", err)
	}

	invitation := &Invitation{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        role,
		InvitedBy:   sender.UserID,
		ExpiresAt:   time.Now().Add(DefaultInvitationTTL),
	}
	query := `
		INSERT INTO workspace_invitations (id, workspace_id, email, role, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRowContext(ctx, query,
		invitation.ID, invitation.WorkspaceID, invitation.Email, invitation.Role,
		invitation.InvitedBy, invitation.ExpiresAt).
		Scan(&invitation.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("an invitation for this email is already pending")
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return invitation, nil
}

// ListInvitations returns the workspace's pending invitations, newest
// first. Rows past their deadline are excluded; they are garbage the sweep
// will collect.
func (s *PostgresService) ListInvitations(ctx context.Context, workspaceID string) ([]*Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM workspace_invitations
		WHERE workspace_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []*Invitation{}
	for rows.Next() {
		invitation := &Invitation{}
		if err := rows.Scan(
			&invitation.ID, &invitation.WorkspaceID, &invitation.Email, &invitation.Role,
			&invitation.InvitedBy, &invitation.ExpiresAt, &invitation.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}

	return invitations, nil
}

// AcceptInvitation converts an invitation into a membership. The row is
// locked FOR UPDATE so two concurrent accepts (or an accept racing a
// decline) serialize; exactly one wins and the row is gone afterwards.
// The workspace id scopes the lookup the same way RemoveInvitation scopes
// its delete.
func (s *PostgresService) AcceptInvitation(ctx context.Context, workspaceID, invitationID string, actor *auth.Identity) (*Member, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invitation, err := lockInvitation(ctx, tx, workspaceID, invitationID)
	if err != nil {
		return nil, err
	}
	if err := checkInvitationClaim(invitation, actor); err != nil {
		return nil, err
	}

	member := &Member{
		ID:          uuid.NewString(),
		WorkspaceID: invitation.WorkspaceID,
		UserID:      actor.UserID,
		Role:        invitation.Role,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, member.ID, member.WorkspaceID, member.UserID, member.Role).Scan(&member.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("user is already a member of this workspace")
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workspace_invitations WHERE id = $1`, invitationID); err != nil {
		return nil, fmt.Errorf("failed to delete invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return member, nil
}

// DeclineInvitation deletes the invitation after the same existence,
// expiry, and identity checks as accept. No membership is created.
func (s *PostgresService) DeclineInvitation(ctx context.Context, workspaceID, invitationID string, actor *auth.Identity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invitation, err := lockInvitation(ctx, tx, workspaceID, invitationID)
	if err != nil {
		return err
	}
	if err := checkInvitationClaim(invitation, actor); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workspace_invitations WHERE id = $1`, invitationID); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveInvitation is the admin-side revocation: delete-only, no identity
// check beyond the route guard. The workspace id scopes the delete so an
// invitation cannot be revoked through another workspace's route.
func (s *PostgresService) RemoveInvitation(ctx context.Context, workspaceID, invitationID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM workspace_invitations WHERE id = $1 AND workspace_id = $2`,
		invitationID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to remove invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("invitation not found")
	}
	return nil
}

// DeleteInvitationsExpiredBefore removes invitation rows whose deadline
// passed before the cutoff. Housekeeping only; expiry is already enforced
// at read and claim time.
func (s *PostgresService) DeleteInvitationsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM workspace_invitations WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return result.RowsAffected()
}

// lockInvitation loads and row-locks an invitation inside tx. The lookup
// is scoped by workspace id, so an invitation reached through another
// workspace's route reads as absent.
func lockInvitation(ctx context.Context, tx *sql.Tx, workspaceID, invitationID string) (*Invitation, error) {
	invitation := &Invitation{}
	err := tx.QueryRowContext(ctx, `
		SELECT `+invitationColumns+`
		FROM workspace_invitations
		WHERE id = $1 AND workspace_id = $2
		FOR UPDATE
	`, invitationID, workspaceID).Scan(
		&invitation.ID, &invitation.WorkspaceID, &invitation.Email, &invitation.Role,
		&invitation.InvitedBy, &invitation.ExpiresAt, &invitation.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock invitation: %w", err)
	}
	return invitation, nil
}

// checkInvitationClaim enforces the expiry and addressee checks shared by
// accept and decline.
func checkInvitationClaim(invitation *Invitation, actor *auth.Identity) error {
	if invitation.Expired(time.Now()) {
		return expiredInvitationError()
	}
	if invitation.Email != users.NormalizeEmail(actor.Email) {
		return apperr.Unauthorized("this invitation was sent to a different email address")
	}
	return nil
}
