package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/repository"
	"github.com/sakif/newsdesk/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestRepos returns repositories over a private in-memory database.
func newTestRepos(t *testing.T) *sqlite.Factory {
	t.Helper()
	conn := sqlite.Open(sqlite.MemoryPath, sqlite.DefaultSchema, sqlite.WithLogger(testLogger()))
	t.Cleanup(func() { conn.Close() })
	return sqlite.NewFactory(conn, testLogger())
}

// failingProvider wraps a real provider. Set an error field to make the
// matching getter fail, simulating an unavailable database.
type failingProvider struct {
	repository.Provider

	usersErr       error
	sessionsErr    error
	newsCacheErr   error
	preferencesErr error
	articlesErr    error
}

func (f *failingProvider) Users(ctx context.Context) (repository.UserRepository, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.Provider.Users(ctx)
}

func (f *failingProvider) Sessions(ctx context.Context) (repository.SessionRepository, error) {
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return f.Provider.Sessions(ctx)
}

func (f *failingProvider) NewsCache(ctx context.Context) (repository.NewsCacheRepository, error) {
	if f.newsCacheErr != nil {
		return nil, f.newsCacheErr
	}
	return f.Provider.NewsCache(ctx)
}

func (f *failingProvider) Preferences(ctx context.Context) (repository.PreferencesRepository, error) {
	if f.preferencesErr != nil {
		return nil, f.preferencesErr
	}
	return f.Provider.Preferences(ctx)
}

func (f *failingProvider) Articles(ctx context.Context) (repository.ArticleRepository, error) {
	if f.articlesErr != nil {
		return nil, f.articlesErr
	}
	return f.Provider.Articles(ctx)
}

// storageDown is what a failed Initialize looks like to a service.
var storageDown = &repository.StorageError{
	Kind:    repository.ErrConnectionFailed,
	Op:      "Connection.initialize",
	Message: "Database connection failed during Connection.initialize",
}

// newTestAuthService uses the real clock: sessions are checked for expiry
// against time.Now by the repository.
func newTestAuthService(t *testing.T, repos repository.Provider, opts ...AuthOption) *AuthService {
	t.Helper()
	return NewAuthService(repos, auth.NewPasswordHasherForTest(), testLogger(), opts...)
}
