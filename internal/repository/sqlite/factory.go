package sqlite

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/newsdesk/internal/repository"
)

// compile-time check that *Factory implements repository.Provider
var _ repository.Provider = (*Factory)(nil)

// lazy builds a value once, after a successful initialization step. A
// failed attempt is not remembered.
type lazy[T any] struct {
	mu  sync.Mutex
	val T
	ok  bool
}

func (l *lazy[T]) get(ctx context.Context, init func(context.Context) error, build func() T) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ok {
		return l.val, nil
	}
	if err := init(ctx); err != nil {
		var zero T
		return zero, err
	}
	l.val = build()
	l.ok = true
	return l.val, nil
}

// Factory hands out one instance of each repository per process. The first
// call to any getter waits for the database to open; later calls return the
// memoized instance without touching the connection.
type Factory struct {
	conn   *Conn
	logger *slog.Logger

	users       lazy[*UserRepo]
	sessions    lazy[*SessionRepo]
	newsCache   lazy[*NewsCacheRepo]
	preferences lazy[*PreferencesRepo]
	articles    lazy[*ArticleRepo]
}

func NewFactory(conn *Conn, logger *slog.Logger) *Factory {
	return &Factory{conn: conn, logger: logger}
}

// Conn returns the connection the repositories share.
func (f *Factory) Conn() *Conn { return f.conn }

func (f *Factory) initialize(ctx context.Context) error {
	if _, err := f.conn.Initialize(ctx); err != nil {
		f.logger.Error("repository initialization failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (f *Factory) Users(ctx context.Context) (repository.UserRepository, error) {
	r, err := f.users.get(ctx, f.initialize, func() *UserRepo { return NewUserRepository(f.conn) })
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f *Factory) Sessions(ctx context.Context) (repository.SessionRepository, error) {
	r, err := f.sessions.get(ctx, f.initialize, func() *SessionRepo { return NewSessionRepository(f.conn) })
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f *Factory) NewsCache(ctx context.Context) (repository.NewsCacheRepository, error) {
	r, err := f.newsCache.get(ctx, f.initialize, func() *NewsCacheRepo { return NewNewsCacheRepository(f.conn) })
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f *Factory) Preferences(ctx context.Context) (repository.PreferencesRepository, error) {
	r, err := f.preferences.get(ctx, f.initialize, func() *PreferencesRepo { return NewPreferencesRepository(f.conn) })
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f *Factory) Articles(ctx context.Context) (repository.ArticleRepository, error) {
	r, err := f.articles.get(ctx, f.initialize, func() *ArticleRepo { return NewArticleRepository(f.conn) })
	if err != nil {
		return nil, err
	}
	return r, nil
}
