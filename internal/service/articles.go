package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// Dashboard is the landing page summary of user-written articles.
type Dashboard struct {
	Recent          []model.Article     `json:"recent"`
	RecentlyUpdated []model.Article     `json:"recentlyUpdated"`
	TopAuthors      []model.AuthorStats `json:"topAuthors"`
	Activity        model.ActivityStats `json:"activity"`
}

// ArticleService is the editor backend: users write articles, publish
// them, and read each other's published work. Drafts are visible only to
// their author.
type ArticleService struct {
	repos     repository.Provider
	validator *auth.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewArticleService(repos repository.Provider, logger *slog.Logger) *ArticleService {
	return &ArticleService{repos: repos, validator: auth.NewValidator(), logger: logger, now: time.Now}
}

// CalculateReadingTime is the reading-time estimate stored on articles.
func CalculateReadingTime(html string) int {
	return model.ReadingTime(html)
}

func (s *ArticleService) Create(ctx context.Context, author model.User, in model.ArticleInput) (*model.Article, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Intro = strings.TrimSpace(in.Intro)
	if err := s.validate(in, in.Description); err != nil {
		return nil, err
	}

	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, storageErr("Failed to save article", err)
	}

	now := s.now()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	a := model.Article{
		ID:          xid.New().String(),
		Title:       in.Title,
		Intro:       in.Intro,
		Description: in.Description,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		IsPublished: in.IsPublished,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
		ReadingTime: CalculateReadingTime(in.Description),
	}
	if _, err := articles.Create(ctx, a); err != nil {
		return nil, storageErr("Failed to save article", err)
	}

	s.logger.Info("article created",
		slog.String("articleID", a.ID),
		slog.String("authorID", author.ID),
		slog.Bool("published", a.IsPublished),
	)
	return &a, nil
}

// Update applies patch to the caller's own article.
func (s *ArticleService) Update(ctx context.Context, user model.User, id string, patch model.ArticlePatch) (*model.Article, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}
	if patch.Intro != nil {
		trimmed := strings.TrimSpace(*patch.Intro)
		patch.Intro = &trimmed
	}
	description := "x"
	if patch.Description != nil {
		description = *patch.Description
	}
	if err := s.validate(patch, description); err != nil {
		return nil, err
	}

	articles, existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != user.ID {
		return nil, apperror.Forbidden("You can only edit your own articles")
	}

	updated, err := articles.Update(ctx, id, patch)
	if err != nil {
		return nil, storageErr("Failed to save article", err)
	}
	return updated, nil
}

// Delete removes an article. Authors may delete their own; admins may
// delete any.
func (s *ArticleService) Delete(ctx context.Context, user model.User, id string) error {
	articles, existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != user.ID && !user.IsAdmin() {
		return apperror.Forbidden("You can only delete your own articles")
	}
	if err := articles.Delete(ctx, id); err != nil {
		return storageErr("Failed to delete article", err)
	}
	s.logger.Info("article deleted", slog.String("articleID", id), slog.String("by", user.ID))
	return nil
}

// Get returns a published article, or a draft to its author.
func (s *ArticleService) Get(ctx context.Context, user model.User, id string) (*model.Article, error) {
	_, a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished && a.AuthorID != user.ID {
		return nil, apperror.NotFound("Article", id)
	}
	return a, nil
}

// ListMine returns the caller's articles, drafts included.
func (s *ArticleService) ListMine(ctx context.Context, user model.User) ([]model.Article, error) {
	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, storageErr("Failed to load articles", err)
	}
	list, err := articles.FindByAuthorID(ctx, user.ID)
	if err != nil {
		return nil, storageErr("Failed to load articles", err)
	}
	return list, nil
}

func (s *ArticleService) ListPublished(ctx context.Context, page, pageSize int) (*model.ArticlePage, error) {
	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, storageErr("Failed to load articles", err)
	}
	result, err := articles.FindWithPagination(ctx, page, pageSize, true)
	if err != nil {
		return nil, storageErr("Failed to load articles", err)
	}
	return result, nil
}

// Search matches published articles by title or intro.
func (s *ArticleService) Search(ctx context.Context, query string) ([]model.Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.InvalidParameter("q", "Search query is required")
	}
	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, storageErr("Failed to search articles", err)
	}
	list, err := articles.SearchArticles(ctx, query, true)
	if err != nil {
		return nil, storageErr("Failed to search articles", err)
	}
	return list, nil
}

// ByCategory returns the category's published articles, newest first.
func (s *ArticleService) ByCategory(ctx context.Context, category model.NewsCategory) ([]model.Article, error) {
	if !category.Valid() {
		return nil, apperror.InvalidParameter("category", "Unknown category "+string(category))
	}
	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, storageErr("Failed to load articles", err)
	}
	list, err := articles.FindByCategory(ctx, category)
	if err != nil {
		return nil, storageErr("Failed to load articles", err)
	}
	return slices.DeleteFunc(list, func(a model.Article) bool { return !a.IsPublished }), nil
}

func (s *ArticleService) Dashboard(ctx context.Context) (*Dashboard, error) {
	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, storageErr("Failed to load dashboard", err)
	}

	var d Dashboard
	if d.Recent, err = articles.GetRecentArticles(ctx, 0); err != nil {
		return nil, storageErr("Failed to load dashboard", err)
	}
	if d.RecentlyUpdated, err = articles.GetRecentlyUpdatedArticles(ctx, 0); err != nil {
		return nil, storageErr("Failed to load dashboard", err)
	}
	if d.TopAuthors, err = articles.GetTopAuthors(ctx, 0); err != nil {
		return nil, storageErr("Failed to load dashboard", err)
	}
	activity, err := articles.GetActivityStats(ctx)
	if err != nil {
		return nil, storageErr("Failed to load dashboard", err)
	}
	d.Activity = *activity
	return &d, nil
}

func (s *ArticleService) find(ctx context.Context, id string) (repository.ArticleRepository, *model.Article, error) {
	articles, err := s.repos.Articles(ctx)
	if err != nil {
		return nil, nil, storageErr("Failed to load article", err)
	}
	a, err := articles.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storageErr("Failed to load article", err)
	}
	if a == nil {
		return nil, nil, apperror.NotFound("Article", id)
	}
	return articles, a, nil
}

// validate runs the struct tags and then the rule tags cannot express:
// an editor body of only empty markup counts as missing.
func (s *ArticleService) validate(payload any, description string) error {
	fields := s.validator.Struct(payload)
	if _, reported := fields["description"]; !reported && model.BlankHTML(description) {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["description"] = "Article content is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return apperror.ValidationErrors(fields)
}
