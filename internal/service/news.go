package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

const (
	// DefaultNewsCacheTTL is how long a fetched feed page stays cached.
	DefaultNewsCacheTTL = 15 * time.Minute

	DefaultNewsPageSize = 20
	MaxNewsPageSize     = 100

	cacheSourceURL = "internal-cache"
)

// Source produces feed content. NewsService caches whatever it returns.
type Source interface {
	Articles(ctx context.Context, params model.NewsSearchParams) (*model.NewsResponse, error)
	Sources(ctx context.Context, category model.NewsCategory) (*model.SourcesResponse, error)
}

// NewsService serves the news feed through the news cache.
type NewsService struct {
	repos   repository.Provider
	source  Source
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time
	latency latency
}

type NewsOption func(*NewsService)

func WithCacheTTL(ttl time.Duration) NewsOption {
	return func(s *NewsService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFetchLatency makes every fetch sleep a random duration in [min, max]
// before the cache is consulted.
func WithFetchLatency(min, max time.Duration) NewsOption {
	return func(s *NewsService) { s.latency = latency{min: min, max: max} }
}

func NewNewsService(repos repository.Provider, source Source, logger *slog.Logger, opts ...NewsOption) *NewsService {
	s := &NewsService{
		repos:  repos,
		source: source,
		logger: logger,
		ttl:    DefaultNewsCacheTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *NewsService) FetchArticles(ctx context.Context, params model.NewsSearchParams) (*model.NewsResponse, error) {
	if params.PageSize > MaxNewsPageSize {
		return nil, apperror.InvalidParameter("pageSize", "Page size cannot exceed 100")
	}
	if err := s.latency.wait(ctx); err != nil {
		return nil, err
	}

	key := cacheKey("articles", articleParams(params))
	return getCachedOrFetch(ctx, s, key, func() (*model.NewsResponse, error) {
		if params.PageSize <= 0 {
			params.PageSize = DefaultNewsPageSize
		}
		resp, err := s.source.Articles(ctx, params)
		if err != nil {
			return nil, sourceErr("Failed to fetch articles", err)
		}
		return resp, nil
	})
}

// FetchSources lists sources, narrowed to category plus the general ones
// when category is set.
func (s *NewsService) FetchSources(ctx context.Context, category model.NewsCategory) (*model.SourcesResponse, error) {
	if err := s.latency.wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]any{}
	if category != "" {
		params["category"] = category
	}
	key := cacheKey("sources", params)
	return getCachedOrFetch(ctx, s, key, func() (*model.SourcesResponse, error) {
		resp, err := s.source.Sources(ctx, category)
		if err != nil {
			return nil, sourceErr("Failed to fetch sources", err)
		}
		return resp, nil
	})
}

func (s *NewsService) ClearCache(ctx context.Context) error {
	cache, err := s.repos.NewsCache(ctx)
	if err != nil {
		return storageErr("Failed to clear news cache", err)
	}
	if err := cache.Clear(ctx); err != nil {
		return storageErr("Failed to clear news cache", err)
	}
	return nil
}

// CleanupExpiredCache sweeps lapsed entries. Failures are logged and count
// as zero removed.
func (s *NewsService) CleanupExpiredCache(ctx context.Context) int {
	cache, err := s.repos.NewsCache(ctx)
	if err != nil {
		s.logger.Warn("news cache cleanup skipped", slog.String("error", err.Error()))
		return 0
	}
	n, err := cache.CleanupExpiredCache(ctx)
	if err != nil {
		s.logger.Warn("news cache cleanup failed", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		s.logger.Info("expired news cache removed", slog.Int("count", n))
	}
	return n
}

// getCachedOrFetch returns the cached payload under key, or calls fetch
// and caches its result. The cache is an optimization: read failures fall
// through to fetch and write failures are only logged.
func getCachedOrFetch[T any](ctx context.Context, s *NewsService, key string, fetch func() (*T, error)) (*T, error) {
	cache, err := s.repos.NewsCache(ctx)
	if err != nil {
		s.logger.Warn("news cache unavailable", slog.String("error", err.Error()))
		cache = nil
	}

	now := s.now()
	if cache != nil {
		if hit, ok := s.readCache(ctx, cache, key, now); ok {
			var out T
			if err := json.Unmarshal([]byte(hit.Content), &out); err == nil {
				return &out, nil
			}
			s.logger.Warn("discarding unreadable cache entry", slog.String("key", key))
		}
	}

	data, err := fetch()
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return data, nil
	}

	content, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("news cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return data, nil
	}
	item := model.CachedNewsItem{
		ID:          key,
		Title:       "Cache: " + key,
		Content:     string(content),
		SourceURL:   cacheSourceURL,
		PublishedAt: now,
		CachedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := cache.Set(ctx, item); err != nil {
		s.logger.Warn("news cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return data, nil
}

func (s *NewsService) readCache(ctx context.Context, cache repository.NewsCacheRepository, key string, now time.Time) (*model.CachedNewsItem, bool) {
	hit, err := cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("news cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if hit == nil || hit.Expired(now) {
		return nil, false
	}
	return hit, true
}

// cacheKey is endpoint followed by the JSON of params. encoding/json
// writes map keys sorted, so equal params always give equal keys.
func cacheKey(endpoint string, params map[string]any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return endpoint + "_" + fmt.Sprint(params)
	}
	return endpoint + "_" + string(raw)
}

// articleParams drops unset fields so they do not show up in the key.
func articleParams(p model.NewsSearchParams) map[string]any {
	m := map[string]any{}
	if p.Query != "" {
		m["query"] = p.Query
	}
	if p.Category != "" {
		m["category"] = p.Category
	}
	if len(p.Sources) > 0 {
		m["sources"] = p.Sources
	}
	if p.SortBy != "" {
		m["sortBy"] = p.SortBy
	}
	if p.PageSize > 0 {
		m["pageSize"] = p.PageSize
	}
	return m
}

func sourceErr(message string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Unknown(message, err)
}

// =========================================================================
// BUILT-IN CATALOG
// =========================================================================

type catalogEntry struct {
	title       string
	description string
	author      string
	category    model.NewsCategory
	readingTime int
}

var catalogEntries = []catalogEntry{
	{
		title:       "Revolutionary AI Breakthrough Changes Everything",
		description: "Scientists have developed a new AI system that can understand and generate human-level content with unprecedented accuracy.",
		author:      "Dr. Sarah Chen",
		category:    model.CategoryTechnology,
		readingTime: 4,
	},
	{
		title:       "Global Climate Summit Reaches Historic Agreement",
		description: "World leaders unite on ambitious climate action plan with binding commitments for carbon neutrality by 2050.",
		author:      "Michael Rodriguez",
		category:    model.CategoryScience,
		readingTime: 6,
	},
	{
		title:       "Stock Markets Rally on Economic Recovery News",
		description: "Major indices surge as unemployment drops to lowest levels in decades, signaling strong economic recovery.",
		author:      "Emma Thompson",
		category:    model.CategoryBusiness,
		readingTime: 3,
	},
	{
		title:       "Breakthrough in Cancer Research Offers New Hope",
		description: "Researchers discover novel treatment approach that shows remarkable success in clinical trials for aggressive cancers.",
		author:      "Prof. David Kim",
		category:    model.CategoryHealth,
		readingTime: 5,
	},
	{
		title:       "Championship Game Breaks Viewership Records",
		description: "Historic matchup draws largest audience in sports broadcasting history as underdog team claims victory.",
		author:      "Sports Desk",
		category:    model.CategorySports,
		readingTime: 2,
	},
	{
		title:       "New Streaming Platform Disrupts Entertainment Industry",
		description: "Innovative content delivery service challenges established players with unique creator revenue sharing model.",
		author:      "Alex Johnson",
		category:    model.CategoryEntertainment,
		readingTime: 4,
	},
}

// CatalogSources is the fixed source list of the built-in catalog.
var CatalogSources = []model.NewsSource{
	{ID: "bbc-news", Name: "BBC News", Description: "The BBC is the world's largest broadcasting corporation", URL: "https://www.bbc.com", Category: model.CategoryGeneral, Language: "en", Country: "gb"},
	{ID: "cnn", Name: "CNN", Description: "View the latest news and breaking news today", URL: "https://www.cnn.com", Category: model.CategoryGeneral, Language: "en", Country: "us"},
	{ID: "techcrunch", Name: "TechCrunch", Description: "TechCrunch is a leading technology media property", URL: "https://techcrunch.com", Category: model.CategoryTechnology, Language: "en", Country: "us"},
	{ID: "espn", Name: "ESPN", Description: "ESPN.com provides comprehensive sports coverage", URL: "https://www.espn.com", Category: model.CategorySports, Language: "en", Country: "us"},
}

// catalogTotal is the pretend size of the upstream archive.
const catalogTotal = 500

// CatalogSource generates a deterministic feed from a small sample set.
// Item i of a page cycles through the matching samples, is attributed to
// source i mod 4 and was published i hours before now.
type CatalogSource struct {
	Now func() time.Time
}

func (c CatalogSource) clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c CatalogSource) Articles(_ context.Context, params model.NewsSearchParams) (*model.NewsResponse, error) {
	templates := catalogEntries
	if params.Category != "" {
		templates = slices.DeleteFunc(slices.Clone(catalogEntries), func(e catalogEntry) bool {
			return e.category != params.Category
		})
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = DefaultNewsPageSize
	}

	now := c.clock().UTC().Truncate(time.Second)
	items := []model.NewsItem{}
	for i := 0; len(templates) > 0 && i < pageSize; i++ {
		items = append(items, catalogItem(templates[i%len(templates)], i, now))
	}

	if q := strings.ToLower(params.Query); q != "" {
		items = slices.DeleteFunc(items, func(n model.NewsItem) bool {
			return !strings.Contains(strings.ToLower(n.Title), q) &&
				!strings.Contains(strings.ToLower(n.Description), q)
		})
	}
	if len(params.Sources) > 0 {
		items = slices.DeleteFunc(items, func(n model.NewsItem) bool {
			return !slices.Contains(params.Sources, n.Source.ID)
		})
	}

	switch params.SortBy {
	case model.SortByPublishedAt:
		slices.SortStableFunc(items, func(a, b model.NewsItem) int {
			return b.PublishedAt.Compare(a.PublishedAt)
		})
	case model.SortByPopularity:
		slices.SortStableFunc(items, func(a, b model.NewsItem) int {
			return cmp.Compare(b.ReadingTime, a.ReadingTime)
		})
	}

	return &model.NewsResponse{
		Status:       "ok",
		TotalResults: min(catalogTotal, len(items)*10),
		Articles:     items,
	}, nil
}

func (c CatalogSource) Sources(_ context.Context, category model.NewsCategory) (*model.SourcesResponse, error) {
	sources := slices.Clone(CatalogSources)
	if category != "" {
		sources = slices.DeleteFunc(sources, func(s model.NewsSource) bool {
			return s.Category != category && s.Category != model.CategoryGeneral
		})
	}
	return &model.SourcesResponse{Status: "ok", Sources: sources}, nil
}

func catalogItem(e catalogEntry, i int, now time.Time) model.NewsItem {
	src := CatalogSources[i%len(CatalogSources)]
	author := e.author

	var image *string
	if i%3 != 0 {
		url := fmt.Sprintf("https://picsum.photos/800/400?random=%d", i)
		image = &url
	}

	return model.NewsItem{
		ID:          fmt.Sprintf("article-%s-%d", e.category, i),
		Title:       e.title,
		Description: e.description,
		Content:     e.description + " This is the full content of the article with much more detail and information that would typically be found in a real news article.",
		URL:         fmt.Sprintf("https://example.com/article/%d", i),
		URLToImage:  image,
		PublishedAt: now.Add(-time.Duration(i) * time.Hour),
		Author:      &author,
		Source:      model.SourceRef{ID: src.ID, Name: src.Name},
		Category:    e.category,
		ReadingTime: e.readingTime,
	}
}
