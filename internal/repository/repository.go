// Package repository defines the storage contracts the services depend on.
// Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/newsdesk/internal/model"
)

// Record is anything stored in a collection: it knows its primary key.
type Record interface {
	Key() string
}

// Patch is a typed partial update, merged field by field over the stored
// record.
type Patch[T any] interface {
	Apply(*T)
}

// PatchFunc adapts a plain function to Patch.
type PatchFunc[T any] func(*T)

func (f PatchFunc[T]) Apply(t *T) { f(t) }

// Repository is the CRUD contract shared by every collection.
//
// FindByID returns (nil, nil) when the id does not exist. Delete succeeds
// whether or not the id existed. Create never overwrites: an existing key
// fails with ErrDuplicateKey.
type Repository[T Record] interface {
	Create(ctx context.Context, item T) (string, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, id string, patch Patch[T]) (*T, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type UserRepository interface {
	Repository[model.StoredUser]
	FindByEmail(ctx context.Context, email string) (*model.StoredUser, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	FindByRole(ctx context.Context, role model.Role) ([]model.StoredUser, error)
	CountByRole(ctx context.Context, role model.Role) (int, error)
	// DeleteCascade removes a user and all of their sessions atomically and
	// returns how many sessions were removed.
	DeleteCascade(ctx context.Context, userID string) (int, error)
}

type SessionRepository interface {
	Repository[model.Session]
	FindByUserID(ctx context.Context, userID string) ([]model.Session, error)
	// FindValidSession returns nil for unknown or expired tokens. Expired
	// sessions are deleted on the way out.
	FindValidSession(ctx context.Context, token string) (*model.Session, error)
	CleanupExpiredSessions(ctx context.Context) (int, error)
	InvalidateUserSessions(ctx context.Context, userID string) (int, error)
}

type NewsCacheRepository interface {
	Repository[model.CachedNewsItem]
	Get(ctx context.Context, key string) (*model.CachedNewsItem, error)
	Set(ctx context.Context, item model.CachedNewsItem) error
	GetValidCache(ctx context.Context) ([]model.CachedNewsItem, error)
	CleanupExpiredCache(ctx context.Context) (int, error)
}

type PreferencesRepository interface {
	Repository[model.UserPreferences]
	GetPreferencesWithDefaults(ctx context.Context, userID string) (*model.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.UserPreferences, error)
	GetNewsPreferences(ctx context.Context, userID string) (*model.NewsPreferences, error)
	SetNewsPreferences(ctx context.Context, userID string, prefs model.NewsPreferences) error
}

type ArticleRepository interface {
	Repository[model.Article]
	FindByAuthorID(ctx context.Context, authorID string) ([]model.Article, error)
	FindByCategory(ctx context.Context, category model.NewsCategory) ([]model.Article, error)
	FindPublishedArticles(ctx context.Context) ([]model.Article, error)
	SearchArticles(ctx context.Context, query string, publishedOnly bool) ([]model.Article, error)
	CanUserEditArticle(ctx context.Context, articleID, userID string) (bool, error)
	FindWithPagination(ctx context.Context, page, pageSize int, publishedOnly bool) (*model.ArticlePage, error)
	GetAuthorArticleCount(ctx context.Context, authorID string) (int, error)
	GetRecentArticles(ctx context.Context, limit int) ([]model.Article, error)
	GetRecentlyUpdatedArticles(ctx context.Context, limit int) ([]model.Article, error)
	GetTopAuthors(ctx context.Context, limit int) ([]model.AuthorStats, error)
	GetActivityStats(ctx context.Context) (*model.ActivityStats, error)
}

// Provider hands out the repositories, initializing storage on first use.
type Provider interface {
	Users(ctx context.Context) (UserRepository, error)
	Sessions(ctx context.Context) (SessionRepository, error)
	NewsCache(ctx context.Context) (NewsCacheRepository, error)
	Preferences(ctx context.Context) (PreferencesRepository, error)
	Articles(ctx context.Context) (ArticleRepository, error)
}
