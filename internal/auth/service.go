// Package auth issues and validates access tokens for API users.
package auth

import (
	"context"
	"fmt"
	"time"

	"nebula/internal/objects"
	"nebula/internal/platform/database"
	dErrors "nebula/pkg/domain-errors"
)

// Service authenticates users against the users table.
type Service struct {
	db          database.DB
	tokens      *TokenService
	revocations RevocationList
	now         func() time.Time
	check       func(hash, password string) bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPasswordCheck replaces CheckPassword.
func WithPasswordCheck(check func(hash, password string) bool) Option {
	return func(s *Service) { s.check = check }
}

// NewService creates the authentication service.
func NewService(db database.DB, tokens *TokenService, revocations RevocationList, opts ...Option) *Service {
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	s := &Service{db: db, tokens: tokens, revocations: revocations, now: time.Now, check: CheckPassword}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	User      *objects.User
}

// Login checks credentials and issues a token. Unknown logins and wrong
// passwords produce the same error and both run a bcrypt comparison.
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid login or password")
	user, err := objects.FindUserByLogin(ctx, s.db, login)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.check(dummyHash(), password)
			return nil, invalid
		}
		return nil, err
	}
	hash := user.PasswordHash()
	if hash == "" {
		s.check(dummyHash(), password)
		return nil, invalid
	}
	if !s.check(hash, password) {
		return nil, invalid
	}
	token, claims, err := s.tokens.Issue(user.ID, user.Login(), s.now())
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// Authenticate validates a bearer token and loads its user. It returns the
// user and the token ID.
func (s *Service) Authenticate(ctx context.Context, token string) (*objects.User, string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, "", err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "token revocation check failed")
	}
	if revoked {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "token revoked")
	}
	user, err := objects.LoadUser(ctx, s.db, claims.UserID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, "", dErrors.New(dErrors.CodeUnauthorized, "user no longer exists")
		}
		return nil, "", fmt.Errorf("load token user: %w", err)
	}
	return user, claims.ID, nil
}

// Revoke invalidates a token ID for the rest of its lifetime.
func (s *Service) Revoke(ctx context.Context, jti string) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeBadRequest, "no token to revoke")
	}
	return s.revocations.Revoke(ctx, jti, s.tokens.TTL())
}
