package workspaces

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
)

var invitationCols = []string{
	"id", "workspace_id", "email", "role", "invited_by", "expires_at", "created_at",
}

func sender() *auth.Identity {
	return &auth.Identity{UserID: "u1", Email: "alice@example.com"}
}

func TestCreateInvitation(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending invitation with default lifetime", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("w1", "bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM workspace_invitations`).
			WithArgs("w1", "bob@example.com", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO workspace_invitations`).
			WithArgs(sqlmock.AnyArg(), "w1", "bob@example.com", auth.RoleMember, "u1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		invitation, err := svc.CreateInvitation(ctx, "w1", sender(), "Bob@Example.COM", auth.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", invitation.Email)
		assert.WithinDuration(t, time.Now().Add(DefaultInvitationTTL), invitation.ExpiresAt, 5*time.Second)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("re-inviting after expiry clears the stale row first", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("w1", "bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM workspace_invitations`).
			WithArgs("w1", "bob@example.com", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO workspace_invitations`).
			WithArgs(sqlmock.AnyArg(), "w1", "bob@example.com", auth.RoleMember, "u1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		invitation, err := svc.CreateInvitation(ctx, "w1", sender(), "bob@example.com", auth.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", invitation.Email)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self invitation is a bad request", func(t *testing.T) {
		svc, _, db := newMockService(t)
		defer db.Close()

		_, err := svc.CreateInvitation(ctx, "w1", sender(), "ALICE@example.com", auth.RoleMember)
		assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
	})

	t.Run("existing member conflicts", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("w1", "bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.CreateInvitation(ctx, "w1", sender(), "bob@example.com", auth.RoleMember)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate pending invitation conflicts via unique index", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("w1", "bob@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM workspace_invitations`).
			WithArgs("w1", "bob@example.com", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO workspace_invitations`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "workspace_invitations_workspace_id_email_key"})
		mock.ExpectRollback()

		_, err := svc.CreateInvitation(ctx, "w1", sender(), "bob@example.com", auth.RoleMember)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()
	bob := &auth.Identity{UserID: "u2", Email: "bob@example.com"}

	t.Run("accept creates membership and deletes invitation atomically", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w1").
			WillReturnRows(sqlmock.NewRows(invitationCols).
				AddRow("inv1", "w1", "bob@example.com", "member", "u1", time.Now().Add(time.Hour), time.Now()))
		mock.ExpectQuery(`INSERT INTO workspace_members`).
			WithArgs(sqlmock.AnyArg(), "w1", "u2", auth.RoleMember).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectExec(`DELETE FROM workspace_invitations`).
			WithArgs("inv1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		member, err := svc.AcceptInvitation(ctx, "w1", "inv1", bob)
		require.NoError(t, err)
		assert.Equal(t, "w1", member.WorkspaceID)
		assert.Equal(t, auth.RoleMember, member.Role)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing invitation is not found", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("ghost", "w1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := svc.AcceptInvitation(ctx, "w1", "ghost", bob)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invitation in another workspace is not found", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w2").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := svc.AcceptInvitation(ctx, "w2", "inv1", bob)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired invitation carries the expiresAt issue", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w1").
			WillReturnRows(sqlmock.NewRows(invitationCols).
				AddRow("inv1", "w1", "bob@example.com", "member", "u1", time.Now().Add(-time.Hour), time.Now()))
		mock.ExpectRollback()

		_, err := svc.AcceptInvitation(ctx, "w1", "inv1", bob)
		require.True(t, apperr.IsKind(err, apperr.KindBadRequest))

		appErr := apperr.From(err)
		require.Len(t, appErr.Issues, 1)
		assert.Equal(t, "expiresAt", appErr.Issues[0].Field)
		assert.Equal(t, "Invitation expired", appErr.Issues[0].Message)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong addressee is unauthorized", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w1").
			WillReturnRows(sqlmock.NewRows(invitationCols).
				AddRow("inv1", "w1", "carol@example.com", "member", "u1", time.Now().Add(time.Hour), time.Now()))
		mock.ExpectRollback()

		_, err := svc.AcceptInvitation(ctx, "w1", "inv1", bob)
		assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already a member conflicts and rolls back", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w1").
			WillReturnRows(sqlmock.NewRows(invitationCols).
				AddRow("inv1", "w1", "bob@example.com", "member", "u1", time.Now().Add(time.Hour), time.Now()))
		mock.ExpectQuery(`INSERT INTO workspace_members`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "workspace_members_workspace_id_user_id_key"})
		mock.ExpectRollback()

		_, err := svc.AcceptInvitation(ctx, "w1", "inv1", bob)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeclineInvitation(t *testing.T) {
	ctx := context.Background()
	bob := &auth.Identity{UserID: "u2", Email: "bob@example.com"}

	t.Run("decline deletes the row without creating membership", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w1").
			WillReturnRows(sqlmock.NewRows(invitationCols).
				AddRow("inv1", "w1", "bob@example.com", "member", "u1", time.Now().Add(time.Hour), time.Now()))
		mock.ExpectExec(`DELETE FROM workspace_invitations`).
			WithArgs("inv1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.DeclineInvitation(ctx, "w1", "inv1", bob))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired invitation cannot be declined", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("inv1", "w1").
			WillReturnRows(sqlmock.NewRows(invitationCols).
				AddRow("inv1", "w1", "bob@example.com", "member", "u1", time.Now().Add(-time.Hour), time.Now()))
		mock.ExpectRollback()

		err := svc.DeclineInvitation(ctx, "w1", "inv1", bob)
		assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveInvitation(t *testing.T) {
	ctx := context.Background()
	svc, mock, db := newMockService(t)
	defer db.Close()

	t.Run("scoped to the workspace", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM workspace_invitations WHERE id = \$1 AND workspace_id = \$2`).
			WithArgs("inv1", "w2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := svc.RemoveInvitation(ctx, "w2", "inv1")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteInvitationsExpiredBefore(t *testing.T) {
	ctx := context.Background()
	svc, mock, db := newMockService(t)
	defer db.Close()

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectExec(`DELETE FROM workspace_invitations WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := svc.DeleteInvitationsExpiredBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	require.NoError(t, mock.ExpectationsWereMet())
}
