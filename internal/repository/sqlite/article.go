package sqlite

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// compile-time check that *ArticleRepo implements repository.ArticleRepository
var _ repository.ArticleRepository = (*ArticleRepo)(nil)

const (
	DefaultPageSize   = 20
	DefaultStatsLimit = 5
)

// ArticleRepo stores user-written articles.
//
// isPublished is a boolean and its index is scan-only: every "published"
// query loads the whole collection, filters and sorts in memory. Authors
// and categories are plain strings and go through their indexes. The
// aggregate queries reduce in memory too, which is fine for the volume of
// a single local user.
type ArticleRepo struct {
	*Store[model.Article]
}

func NewArticleRepository(conn *Conn) *ArticleRepo {
	return &ArticleRepo{Store: newStore[model.Article](conn, CollectionArticles, "NewsArticleRepository")}
}

// FindByAuthorID returns the author's articles, most recently updated first.
func (r *ArticleRepo) FindByAuthorID(ctx context.Context, authorID string) ([]model.Article, error) {
	articles, err := r.findBy(ctx, r.op("findByAuthorId"), "authorId", authorID)
	if err != nil {
		return nil, err
	}
	sortByUpdatedDesc(articles)
	return articles, nil
}

// FindByCategory returns the category's articles, newest first.
func (r *ArticleRepo) FindByCategory(ctx context.Context, category model.NewsCategory) ([]model.Article, error) {
	articles, err := r.findBy(ctx, r.op("findByCategory"), "category", string(category))
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(articles)
	return articles, nil
}

// FindPublishedArticles returns published articles, most recently updated
// first.
func (r *ArticleRepo) FindPublishedArticles(ctx context.Context) ([]model.Article, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	published := slices.DeleteFunc(all, func(a model.Article) bool { return !a.IsPublished })
	sortByUpdatedDesc(published)
	return published, nil
}

// SearchArticles matches query case-insensitively against title and intro.
func (r *ArticleRepo) SearchArticles(ctx context.Context, query string, publishedOnly bool) ([]model.Article, error) {
	var (
		articles []model.Article
		err      error
	)
	if publishedOnly {
		articles, err = r.FindPublishedArticles(ctx)
	} else {
		articles, err = r.FindAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(query))
	return slices.DeleteFunc(articles, func(a model.Article) bool {
		return !strings.Contains(strings.ToLower(a.Title), term) &&
			!strings.Contains(strings.ToLower(a.Intro), term)
	}), nil
}

func (r *ArticleRepo) CanUserEditArticle(ctx context.Context, articleID, userID string) (bool, error) {
	a, err := r.FindByID(ctx, articleID)
	if err != nil || a == nil {
		return false, err
	}
	return a.AuthorID == userID, nil
}

// FindWithPagination pages through published articles, or all articles
// when publishedOnly is false. Pages start at 1.
func (r *ArticleRepo) FindWithPagination(ctx context.Context, page, pageSize int, publishedOnly bool) (*model.ArticlePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	var (
		articles []model.Article
		err      error
	)
	if publishedOnly {
		articles, err = r.FindPublishedArticles(ctx)
	} else {
		articles, err = r.FindAll(ctx)
		sortByUpdatedDesc(articles)
	}
	if err != nil {
		return nil, err
	}

	start := min((page-1)*pageSize, len(articles))
	end := min(start+pageSize, len(articles))
	return &model.ArticlePage{
		Articles:   articles[start:end],
		TotalCount: len(articles),
		HasMore:    end < len(articles),
	}, nil
}

func (r *ArticleRepo) GetAuthorArticleCount(ctx context.Context, authorID string) (int, error) {
	return r.countBy(ctx, r.op("getAuthorArticleCount"), "authorId", authorID)
}

// Update stamps UpdatedAt and recomputes ReadingTime when the description
// changed.
func (r *ArticleRepo) Update(ctx context.Context, id string, patch repository.Patch[model.Article]) (*model.Article, error) {
	now := r.now()
	return r.Store.Update(ctx, id, repository.PatchFunc[model.Article](func(a *model.Article) {
		before := a.Description
		patch.Apply(a)
		a.UpdatedAt = now
		if a.Description != before {
			a.ReadingTime = model.ReadingTime(a.Description)
		}
	}))
}

// GetRecentArticles returns the newest published articles.
func (r *ArticleRepo) GetRecentArticles(ctx context.Context, limit int) ([]model.Article, error) {
	articles, err := r.FindPublishedArticles(ctx)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(articles)
	return head(articles, limit), nil
}

// GetRecentlyUpdatedArticles returns published articles that were edited
// after creation, most recently updated first.
func (r *ArticleRepo) GetRecentlyUpdatedArticles(ctx context.Context, limit int) ([]model.Article, error) {
	articles, err := r.FindPublishedArticles(ctx)
	if err != nil {
		return nil, err
	}
	edited := slices.DeleteFunc(articles, func(a model.Article) bool {
		return a.UpdatedAt.Equal(a.CreatedAt)
	})
	return head(edited, limit), nil
}

// GetTopAuthors ranks authors of published articles by article count.
func (r *ArticleRepo) GetTopAuthors(ctx context.Context, limit int) ([]model.AuthorStats, error) {
	articles, err := r.FindPublishedArticles(ctx)
	if err != nil {
		return nil, err
	}

	byAuthor := make(map[string]*model.AuthorStats)
	for _, a := range articles {
		stats, ok := byAuthor[a.AuthorID]
		if !ok {
			byAuthor[a.AuthorID] = &model.AuthorStats{
				AuthorID:          a.AuthorID,
				AuthorName:        a.AuthorName,
				ArticleCount:      1,
				LatestArticleDate: a.CreatedAt,
			}
			continue
		}
		stats.ArticleCount++
		if a.CreatedAt.After(stats.LatestArticleDate) {
			stats.LatestArticleDate = a.CreatedAt
		}
	}

	authors := make([]model.AuthorStats, 0, len(byAuthor))
	for _, stats := range byAuthor {
		authors = append(authors, *stats)
	}
	slices.SortFunc(authors, func(a, b model.AuthorStats) int {
		if a.ArticleCount != b.ArticleCount {
			return b.ArticleCount - a.ArticleCount
		}
		if c := b.LatestArticleDate.Compare(a.LatestArticleDate); c != 0 {
			return c
		}
		return strings.Compare(a.AuthorID, b.AuthorID)
	})
	return head(authors, limit), nil
}

// GetActivityStats counts published articles overall and over the last 7
// and 30 days.
func (r *ArticleRepo) GetActivityStats(ctx context.Context) (*model.ActivityStats, error) {
	articles, err := r.FindPublishedArticles(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	stats := &model.ActivityStats{TotalArticles: len(articles)}
	authors := make(map[string]struct{})
	for _, a := range articles {
		authors[a.AuthorID] = struct{}{}
		if a.CreatedAt.After(weekAgo) {
			stats.ArticlesThisWeek++
		}
		if a.CreatedAt.After(monthAgo) {
			stats.ArticlesThisMonth++
		}
	}
	stats.TotalAuthors = len(authors)
	return stats, nil
}

func sortByUpdatedDesc(articles []model.Article) {
	slices.SortStableFunc(articles, func(a, b model.Article) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

func sortByCreatedDesc(articles []model.Article) {
	slices.SortStableFunc(articles, func(a, b model.Article) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func head[T any](items []T, limit int) []T {
	if limit <= 0 {
		limit = DefaultStatsLimit
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
