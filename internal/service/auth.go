// Package service holds the business logic between the UI bridge and the
// repositories.
//
// AuthService owns email/password identities and server-side sessions:
//
//	AuthHandler / session.Machine → AuthService → UserRepository
//	                                            ↘ SessionRepository
//
// KEY RESPONSIBILITIES:
//   - Validate signup and login payloads and turn failures into field messages
//   - Hash passwords (argon2id) and verify them
//   - Issue opaque session tokens and resolve them back to users
//
// FAILING QUIETLY:
// LoadSession, Logout and CleanupExpiredSessions never surface storage
// failures to the caller. A broken database must not crash the app shell
// or keep a user "logged in" locally; those paths log at Warn and degrade.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// invalidLogin is the one message for "no such user" and "wrong password".
// The codes differ; the text does not, so the UI does not reveal
// which emails are registered.
const invalidLogin = "Invalid email or password"

// DemoAccount is a login seeded on demand when demo seeding is enabled.
type DemoAccount struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     model.Role
}

// DemoAccounts are the two accounts the login screen advertises.
var DemoAccounts = []DemoAccount{
	{ID: "admin-demo-user", Email: "admin@newsapp.com", Password: "Admin123", Name: "Admin User", Role: model.RoleAdmin},
	{ID: "demo-user", Email: "user@newsapp.com", Password: "Password123", Name: "Demo User", Role: model.RoleUser},
}

// AuthService handles signup, login and session resolution.
//
// DEPENDENCIES (injected via NewAuthService):
//   - repos     repository.Provider    → users and sessions collections
//   - hasher    *auth.PasswordHasher   → argon2id hashing
//   - logger    *slog.Logger           → structured logging
type AuthService struct {
	repos     repository.Provider
	hasher    *auth.PasswordHasher
	validator *auth.Validator
	logger    *slog.Logger

	now      func() time.Time
	latency  latency
	seedDemo bool
	seedOnce sync.Once
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithDemoSeeding enables creating DemoAccounts on the first login.
func WithDemoSeeding(enabled bool) AuthOption {
	return func(s *AuthService) { s.seedDemo = enabled }
}

// WithLatency makes every signup and login sleep a random duration in
// [min, max] first.
func WithLatency(min, max time.Duration) AuthOption {
	return func(s *AuthService) { s.latency = latency{min: min, max: max} }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	repos repository.Provider,
	hasher *auth.PasswordHasher,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		repos:     repos,
		hasher:    hasher,
		validator: auth.NewValidator(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an account and signs it in.
//
// The first account ever created becomes an admin; every later one is a
// regular user. Emails are unique case-insensitively.
func (s *AuthService) Signup(ctx context.Context, data model.SignupData) (*model.AuthResponse, error) {
	if err := s.latency.wait(ctx); err != nil {
		return nil, err
	}

	data.Name = strings.TrimSpace(data.Name)
	if fields := s.validator.Struct(data); fields != nil {
		var also []error
		if _, bad := fields["email"]; bad {
			also = append(also, apperror.ErrInvalidEmailFormat)
		}
		if _, bad := fields["password"]; bad {
			also = append(also, apperror.ErrPasswordTooWeak)
		}
		return nil, apperror.ValidationErrors(fields, also...)
	}

	users, err := s.repos.Users(ctx)
	if err != nil {
		return nil, storageErr("Failed to create account", err)
	}

	exists, err := users.EmailExists(ctx, data.Email)
	if err != nil {
		return nil, storageErr("Failed to create account", err)
	}
	if exists {
		return nil, apperror.EmailAlreadyExists()
	}

	count, err := users.Count(ctx)
	if err != nil {
		return nil, storageErr("Failed to create account", err)
	}
	role := model.RoleUser
	if count == 0 {
		role = model.RoleAdmin
	}

	hash, err := s.hasher.HashPasswordSecure(data.Password)
	if err != nil {
		return nil, apperror.Unknown("Failed to create account", err)
	}

	now := s.now()
	stored := model.StoredUser{
		User: model.User{
			ID:          uuid.NewString(),
			Email:       model.NormalizeEmail(data.Email),
			Name:        data.Name,
			Role:        role,
			CreatedAt:   now,
			LastLoginAt: &now,
		},
		PasswordHash: hash.Hash,
		Salt:         hash.Salt,
	}
	if _, err := users.Create(ctx, stored); err != nil {
		// Lost a race with another signup for the same address.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperror.EmailAlreadyExists()
		}
		return nil, storageErr("Failed to create account", err)
	}

	resp, err := s.issueSession(ctx, stored.Public(), false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up",
		slog.String("userID", stored.ID),
		slog.String("role", string(role)),
	)
	return resp, nil
}

// Login verifies credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, creds model.LoginCredentials) (*model.AuthResponse, error) {
	if err := s.latency.wait(ctx); err != nil {
		return nil, err
	}

	if fields := s.validator.Struct(creds); fields != nil {
		return nil, apperror.InvalidCredentials(fields)
	}

	if s.seedDemo {
		s.seedOnce.Do(func() { s.seedDemoAccounts(ctx) })
	}

	users, err := s.repos.Users(ctx)
	if err != nil {
		return nil, storageErr("Failed to sign in", err)
	}

	stored, err := users.FindByEmail(ctx, creds.Email)
	if err != nil {
		return nil, storageErr("Failed to sign in", err)
	}
	if stored == nil {
		return nil, apperror.UserNotFound(invalidLogin)
	}
	if !s.hasher.VerifyPassword(creds.Password, stored.PasswordHash, stored.Salt) {
		return nil, apperror.InvalidCredentials(nil)
	}

	now := s.now()
	user := stored.Public()
	if updated, err := users.Update(ctx, stored.ID, model.UserPatch{LastLoginAt: &now}); err != nil {
		s.logger.Warn("recording last login failed",
			slog.String("userID", stored.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user = updated.Public()
	}

	resp, err := s.issueSession(ctx, user, creds.RememberMe)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return resp, nil
}

// LoadSession resolves token to its user, or nil. It never fails: any
// storage error is logged and reads as "no session". A session whose user
// no longer exists is deleted.
func (s *AuthService) LoadSession(ctx context.Context, token string) *model.AuthSession {
	if token == "" {
		return nil
	}

	sessions, err := s.repos.Sessions(ctx)
	if err != nil {
		s.warn("loading session failed", err)
		return nil
	}
	session, err := sessions.FindValidSession(ctx, token)
	if err != nil {
		s.warn("loading session failed", err)
		return nil
	}
	if session == nil {
		return nil
	}

	users, err := s.repos.Users(ctx)
	if err != nil {
		s.warn("loading session user failed", err)
		return nil
	}
	stored, err := users.FindByID(ctx, session.UserID)
	if err != nil {
		s.warn("loading session user failed", err)
		return nil
	}
	if stored == nil {
		if err := sessions.Delete(ctx, token); err != nil {
			s.warn("deleting orphaned session failed", err)
		}
		s.logger.Info("deleted orphaned session", slog.String("userID", session.UserID))
		return nil
	}

	return &model.AuthSession{User: stored.Public(), ExpiresAt: session.ExpiresAt}
}

// ValidateSession reports whether token resolves to a live session.
func (s *AuthService) ValidateSession(ctx context.Context, token string) bool {
	return s.LoadSession(ctx, token) != nil
}

// Logout deletes the server-side session. The delete is best-effort: a
// failure is logged and returned, and callers treat the user as signed out
// either way.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessions, err := s.repos.Sessions(ctx)
	if err == nil {
		err = sessions.Delete(ctx, token)
	}
	if err != nil {
		s.warn("deleting session on logout failed", err)
		return storageErr("Failed to end session", err)
	}
	return nil
}

// CleanupExpiredSessions sweeps expired sessions and returns how many were
// removed. Failures count as zero.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) int {
	sessions, err := s.repos.Sessions(ctx)
	if err != nil {
		s.warn("session cleanup failed", err)
		return 0
	}
	n, err := sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		s.warn("session cleanup failed", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", slog.Int("count", n))
	}
	return n
}

func (s *AuthService) issueSession(ctx context.Context, user model.User, rememberMe bool) (*model.AuthResponse, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, apperror.Unknown("Failed to create session", err)
	}

	now := s.now()
	session := model.Session{
		ID:        token,
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: auth.SessionExpiry(now, rememberMe),
		CreatedAt: now,
	}

	sessions, err := s.repos.Sessions(ctx)
	if err != nil {
		return nil, storageErr("Failed to create session", err)
	}
	if _, err := sessions.Create(ctx, session); err != nil {
		return nil, storageErr("Failed to create session", err)
	}

	return &model.AuthResponse{User: user, SessionToken: token, ExpiresAt: session.ExpiresAt}, nil
}

// seedDemoAccounts creates any missing DemoAccounts. Every failure is
// logged and ignored; it must never block the login that triggered it.
func (s *AuthService) seedDemoAccounts(ctx context.Context) {
	users, err := s.repos.Users(ctx)
	if err != nil {
		s.warn("demo seeding skipped", err)
		return
	}

	for _, demo := range DemoAccounts {
		if err := s.seedDemoAccount(ctx, users, demo); err != nil {
			s.logger.Warn("demo seeding failed",
				slog.String("email", demo.Email),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *AuthService) seedDemoAccount(ctx context.Context, users repository.UserRepository, demo DemoAccount) error {
	exists, err := users.EmailExists(ctx, demo.Email)
	if err != nil || exists {
		return err
	}

	hash, err := s.hasher.HashPasswordSecure(demo.Password)
	if err != nil {
		return err
	}
	_, err = users.Create(ctx, model.StoredUser{
		User: model.User{
			ID:        demo.ID,
			Email:     demo.Email,
			Name:      demo.Name,
			Role:      demo.Role,
			CreatedAt: s.now(),
		},
		PasswordHash: hash.Hash,
		Salt:         hash.Salt,
	})
	if err != nil {
		return fmt.Errorf("service/auth: creating demo account: %w", err)
	}
	s.logger.Info("demo account created", slog.String("email", demo.Email))
	return nil
}

func (s *AuthService) warn(msg string, err error) {
	s.logger.Warn(msg, slog.String("error", err.Error()))
}
