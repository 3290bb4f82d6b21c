package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/users"
)

// invalidCredentials is returned for every login failure, whether the
// email is unknown or the password is wrong. Distinguishing the two would
// leak which emails are registered.
func invalidCredentials() *apperr.Error {
	return apperr.Unauthorized("invalid email or password")
}

// Service implements signup, login, and token refresh over a user store.
type Service struct {
	store      users.Store
	hasher     *PasswordHasher
	codec      *TokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewService creates the auth service. metrics may be nil in tests.
func NewService(store users.Store, hasher *PasswordHasher, codec *TokenCodec, accessTTL, refreshTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:      store,
		hasher:     hasher,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Signup registers a new account. The email is normalized to lowercase
// before the existence check and the insert, so signups differing only in
// case collide.
func (s *Service) Signup(ctx context.Context, fullName, email, password string) (*users.User, error) {
	email = users.NormalizeEmail(email)

	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	user, err := s.store.Create(ctx, fullName, email, hash)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user signed up")
	return user, nil
}

// Login verifies the credentials and issues a token pair. All failure
// modes collapse into the same unauthorized error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.countLogin("failure")
		return nil, invalidCredentials()
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.countLogin("success")
	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return session, nil
}

// Refresh rotates a token pair. The subject is re-resolved from the store
// so tokens for deleted accounts stop working immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		s.countRefresh("failure")
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.store.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil {
		s.countRefresh("failure")
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.countRefresh("success")
	return session, nil
}

// Me returns the account for an authenticated subject.
func (s *Service) Me(ctx context.Context, userID string) (*users.User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

// VerifyAccess validates an access token and re-resolves its subject. Used
// by the authentication middleware; a deleted account invalidates every
// outstanding token.
func (s *Service) VerifyAccess(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		s.countAuthFailure("invalid_token")
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	user, err := s.store.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil {
		s.countAuthFailure("unknown_subject")
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	return &Identity{UserID: user.ID, Email: user.Email, User: user}, nil
}

func (s *Service) issueSession(user *users.User) (*Session, error) {
	accessToken, expiresAt, err := s.codec.Issue(user.ID, user.Email, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, _, err := s.codec.Issue(user.ID, user.Email, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Unix(),
		User:         user,
	}, nil
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.TokenRefreshTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countAuthFailure(reason string) {
	if s.metrics != nil {
		s.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
}
