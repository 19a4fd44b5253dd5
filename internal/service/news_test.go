package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
)

// countingSource records how often the service went past the cache.
type countingSource struct {
	Source
	articles atomic.Int32
	sources  atomic.Int32
	err      error
}

func (c *countingSource) Articles(ctx context.Context, p model.NewsSearchParams) (*model.NewsResponse, error) {
	c.articles.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Source.Articles(ctx, p)
}

func (c *countingSource) Sources(ctx context.Context, category model.NewsCategory) (*model.SourcesResponse, error) {
	c.sources.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Source.Sources(ctx, category)
}

func newCountingSource() *countingSource {
	return &countingSource{Source: CatalogSource{Now: func() time.Time { return fixedNow }}}
}

// =========================================================================
// CACHING
// =========================================================================

func TestFetchArticlesCachesResponses(t *testing.T) {
	src := newCountingSource()
	svc := NewNewsService(newTestRepos(t), src, testLogger())
	ctx := context.Background()

	params := model.NewsSearchParams{Category: model.CategorySports, PageSize: 5}
	first, err := svc.FetchArticles(ctx, params)
	require.NoError(t, err)
	second, err := svc.FetchArticles(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.articles.Load())
	assert.Equal(t, first, second)
	assert.Len(t, first.Articles, 5)

	_, err = svc.FetchArticles(ctx, model.NewsSearchParams{Category: model.CategoryHealth, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.articles.Load())
}

func TestFetchArticlesExpiredEntryRefetches(t *testing.T) {
	src := newCountingSource()
	svc := NewNewsService(newTestRepos(t), src, testLogger(), WithCacheTTL(time.Minute))
	ctx := context.Background()

	_, err := svc.FetchArticles(ctx, model.NewsSearchParams{})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.FetchArticles(ctx, model.NewsSearchParams{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.articles.Load())
}

func TestFetchArticlesPageSizeLimit(t *testing.T) {
	src := newCountingSource()
	svc := NewNewsService(newTestRepos(t), src, testLogger())

	_, err := svc.FetchArticles(context.Background(), model.NewsSearchParams{PageSize: 101})
	require.ErrorIs(t, err, apperror.ErrInvalidParameter)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Page size cannot exceed 100", appErr.Message)
	assert.Equal(t, int32(0), src.articles.Load())

	resp, err := svc.FetchArticles(context.Background(), model.NewsSearchParams{PageSize: 100})
	require.NoError(t, err)
	assert.Len(t, resp.Articles, 100)
}

func TestFetchWithoutCache(t *testing.T) {
	src := newCountingSource()
	repos := &failingProvider{Provider: newTestRepos(t), newsCacheErr: storageDown}
	svc := NewNewsService(repos, src, testLogger())

	for range 2 {
		resp, err := svc.FetchArticles(context.Background(), model.NewsSearchParams{PageSize: 3})
		require.NoError(t, err)
		assert.Len(t, resp.Articles, 3)
	}
	assert.Equal(t, int32(2), src.articles.Load())

	require.ErrorIs(t, svc.ClearCache(context.Background()), apperror.ErrStorage)
	assert.Equal(t, 0, svc.CleanupExpiredCache(context.Background()))
}

func TestFetchSourceFailure(t *testing.T) {
	src := newCountingSource()
	src.err = errors.New("upstream down")
	svc := NewNewsService(newTestRepos(t), src, testLogger())

	_, err := svc.FetchArticles(context.Background(), model.NewsSearchParams{})
	require.ErrorIs(t, err, apperror.ErrUnknown)

	_, err = svc.FetchSources(context.Background(), "")
	require.ErrorIs(t, err, apperror.ErrUnknown)
}

func TestClearAndCleanupCache(t *testing.T) {
	repos := newTestRepos(t)
	src := newCountingSource()
	svc := NewNewsService(repos, src, testLogger())
	ctx := context.Background()

	_, err := svc.FetchSources(ctx, model.CategorySports)
	require.NoError(t, err)
	require.NoError(t, svc.ClearCache(ctx))
	_, err = svc.FetchSources(ctx, model.CategorySports)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.sources.Load())

	cache, err := repos.NewsCache(ctx)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, cache.Set(ctx, model.CachedNewsItem{ID: "stale", CachedAt: past, ExpiresAt: past}))

	assert.Equal(t, 1, svc.CleanupExpiredCache(ctx))
}

func TestCacheKey(t *testing.T) {
	params := model.NewsSearchParams{SortBy: model.SortByPopularity, Category: model.CategoryScience, PageSize: 10}
	assert.Equal(t,
		`articles_{"category":"science","pageSize":10,"sortBy":"popularity"}`,
		cacheKey("articles", articleParams(params)))
	assert.Equal(t, `sources_{}`, cacheKey("sources", map[string]any{}))
}

// =========================================================================
// CATALOG
// =========================================================================

func TestCatalogArticles(t *testing.T) {
	src := CatalogSource{Now: func() time.Time { return fixedNow }}
	ctx := context.Background()

	tests := []struct {
		name   string
		params model.NewsSearchParams
		check  func(t *testing.T, resp *model.NewsResponse)
	}{
		{
			name:   "default page size",
			params: model.NewsSearchParams{},
			check: func(t *testing.T, resp *model.NewsResponse) {
				assert.Len(t, resp.Articles, DefaultNewsPageSize)
				assert.Equal(t, 200, resp.TotalResults)
			},
		},
		{
			name:   "category",
			params: model.NewsSearchParams{Category: model.CategoryBusiness, PageSize: 4},
			check: func(t *testing.T, resp *model.NewsResponse) {
				require.Len(t, resp.Articles, 4)
				for _, a := range resp.Articles {
					assert.Equal(t, model.CategoryBusiness, a.Category)
				}
			},
		},
		{
			name:   "general has no samples",
			params: model.NewsSearchParams{Category: model.CategoryGeneral},
			check: func(t *testing.T, resp *model.NewsResponse) {
				assert.Empty(t, resp.Articles)
				assert.Equal(t, 0, resp.TotalResults)
			},
		},
		{
			name:   "query matches description",
			params: model.NewsSearchParams{Query: "CLINICAL", PageSize: 12},
			check: func(t *testing.T, resp *model.NewsResponse) {
				require.Len(t, resp.Articles, 2)
				assert.Equal(t, model.CategoryHealth, resp.Articles[0].Category)
			},
		},
		{
			name:   "sources",
			params: model.NewsSearchParams{Sources: []string{"espn"}, PageSize: 8},
			check: func(t *testing.T, resp *model.NewsResponse) {
				require.Len(t, resp.Articles, 2)
				for _, a := range resp.Articles {
					assert.Equal(t, "espn", a.Source.ID)
				}
			},
		},
		{
			name:   "newest first",
			params: model.NewsSearchParams{SortBy: model.SortByPublishedAt, PageSize: 6},
			check: func(t *testing.T, resp *model.NewsResponse) {
				assert.True(t, resp.Articles[0].PublishedAt.Equal(fixedNow))
				for i := 1; i < len(resp.Articles); i++ {
					assert.False(t, resp.Articles[i].PublishedAt.After(resp.Articles[i-1].PublishedAt))
				}
			},
		},
		{
			name:   "popularity",
			params: model.NewsSearchParams{SortBy: model.SortByPopularity, PageSize: 6},
			check: func(t *testing.T, resp *model.NewsResponse) {
				assert.Equal(t, 6, resp.Articles[0].ReadingTime)
				assert.Equal(t, 2, resp.Articles[5].ReadingTime)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := src.Articles(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, "ok", resp.Status)
			tt.check(t, resp)
		})
	}
}

func TestCatalogSources(t *testing.T) {
	src := CatalogSource{}

	all, err := src.Sources(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all.Sources, 4)

	tech, err := src.Sources(context.Background(), model.CategoryTechnology)
	require.NoError(t, err)
	var ids []string
	for _, s := range tech.Sources {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"bbc-news", "cnn", "techcrunch"}, ids)
}
