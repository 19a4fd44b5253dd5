package sqlite

import (
	"context"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// compile-time check that *NewsCacheRepo implements repository.NewsCacheRepository
var _ repository.NewsCacheRepository = (*NewsCacheRepo)(nil)

type NewsCacheRepo struct {
	*Store[model.CachedNewsItem]
}

func NewNewsCacheRepository(conn *Conn) *NewsCacheRepo {
	return &NewsCacheRepo{Store: newStore[model.CachedNewsItem](conn, CollectionNewsCache, "NewsCacheRepository")}
}

// Get returns the entry for key, or nil if it is missing or expired.
// Expired entries are deleted on the way out.
func (r *NewsCacheRepo) Get(ctx context.Context, key string) (*model.CachedNewsItem, error) {
	item, err := r.FindByID(ctx, key)
	if err != nil || item == nil {
		return nil, err
	}
	if item.Expired(r.now()) {
		_ = r.Delete(ctx, key)
		return nil, nil
	}
	return item, nil
}

// Set writes item, replacing any entry with the same key.
func (r *NewsCacheRepo) Set(ctx context.Context, item model.CachedNewsItem) error {
	return r.put(ctx, r.op("set"), item.ID, item)
}

// GetValidCache returns every entry that has not expired yet.
func (r *NewsCacheRepo) GetValidCache(ctx context.Context) ([]model.CachedNewsItem, error) {
	return r.findAfter(ctx, r.op("getValidCache"), "expiresAt", r.now())
}

func (r *NewsCacheRepo) CleanupExpiredCache(ctx context.Context) (int, error) {
	return r.deleteUpTo(ctx, r.op("cleanupExpiredCache"), "expiresAt", r.now())
}
