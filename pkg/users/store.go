package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/storage/postgres"
)

// Store is the credential store interface the auth layer depends on.
type Store interface {
	Create(ctx context.Context, fullName, email, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest) (*User, error)
	Delete(ctx context.Context, id string) error
}

// PostgresStore implements Store over database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new user store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, full_name, email, password_hash, profile_picture, created_at, updated_at`

// NormalizeEmail lowercases and trims an email address. All storage and
// comparison of emails goes through this so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user. The email is stored lowercase; a duplicate
// yields ConflictError via the unique constraint.
func (s *PostgresStore) Create(ctx context.Context, fullName, email, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
	}

	query := `
		INSERT INTO users (id, full_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, user.ID, user.FullName, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by id. Returns nil, nil when absent.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by case-normalized email. Returns nil, nil
// when absent.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

// ExistsByEmail checks whether an email is already registered.
func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// Update applies the provided profile fields and bumps updated_at.
func (s *PostgresStore) Update(ctx context.Context, id string, req *UpdateUserRequest) (*User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
		    profile_picture = COALESCE($3, profile_picture),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns
	return s.scanOne(s.db.QueryRowContext(ctx, query, id, req.FullName, req.ProfilePicture, time.Now()))
}

// Delete removes a user; memberships cascade at the schema level.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("user not found")
	}

	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	var profilePicture sql.NullString
	err := row.Scan(
		&user.ID, &user.FullName, &user.Email, &user.PasswordHash,
		&profilePicture, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if profilePicture.Valid {
		user.ProfilePicture = &profilePicture.String
	}
	return user, nil
}
