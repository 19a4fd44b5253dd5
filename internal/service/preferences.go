package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/repository"
)

// PreferencesService manages per-user settings: the general preferences
// record and the news feed blob.
type PreferencesService struct {
	repos     repository.Provider
	validator *auth.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewPreferencesService(repos repository.Provider, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{repos: repos, validator: auth.NewValidator(), logger: logger, now: time.Now}
}

// Get returns the user's preferences, creating the defaults on first use.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*model.UserPreferences, error) {
	prefs, err := s.repos.Preferences(ctx)
	if err != nil {
		return nil, storageErr("Failed to load preferences", err)
	}
	p, err := prefs.GetPreferencesWithDefaults(ctx, userID)
	if err != nil {
		return nil, storageErr("Failed to load preferences", err)
	}
	return p, nil
}

func (s *PreferencesService) Update(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.UserPreferences, error) {
	if fields := s.validator.Struct(patch); fields != nil {
		return nil, apperror.ValidationErrors(fields)
	}

	prefs, err := s.repos.Preferences(ctx)
	if err != nil {
		return nil, storageErr("Failed to save preferences", err)
	}
	p, err := prefs.UpdatePreferences(ctx, userID, patch)
	if err != nil {
		return nil, storageErr("Failed to save preferences", err)
	}
	return p, nil
}

// GetNews returns the user's news preferences merged over the defaults.
func (s *PreferencesService) GetNews(ctx context.Context, userID string) (*model.NewsPreferences, error) {
	prefs, err := s.repos.Preferences(ctx)
	if err != nil {
		return nil, storageErr("Failed to load news preferences", err)
	}
	n, err := s.loadNews(ctx, prefs, userID)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PreferencesService) UpdateNews(ctx context.Context, userID string, patch model.NewsPreferencesPatch) (*model.NewsPreferences, error) {
	if fields := s.validator.Struct(patch); fields != nil {
		return nil, apperror.ValidationErrors(fields)
	}
	prefs, err := s.repos.Preferences(ctx)
	if err != nil {
		return nil, storageErr("Failed to save news preferences", err)
	}
	return s.saveNews(ctx, prefs, userID, patch.Apply)
}

// MarkAsRead records articleID as read. Marking twice is a no-op.
func (s *PreferencesService) MarkAsRead(ctx context.Context, userID, articleID string) error {
	prefs, err := s.repos.Preferences(ctx)
	if err != nil {
		return storageErr("Failed to save news preferences", err)
	}
	current, err := s.loadNews(ctx, prefs, userID)
	if err != nil {
		return err
	}
	if slices.Contains(current.ReadArticles, articleID) {
		return nil
	}
	_, err = s.saveNews(ctx, prefs, userID, func(n *model.NewsPreferences) {
		n.ReadArticles = append(n.ReadArticles, articleID)
	})
	return err
}

// ToggleBookmark flips the bookmark on articleID and reports whether it is
// now bookmarked.
func (s *PreferencesService) ToggleBookmark(ctx context.Context, userID, articleID string) (bool, error) {
	prefs, err := s.repos.Preferences(ctx)
	if err != nil {
		return false, storageErr("Failed to save news preferences", err)
	}

	var bookmarked bool
	_, err = s.saveNews(ctx, prefs, userID, func(n *model.NewsPreferences) {
		if i := slices.Index(n.BookmarkedArticles, articleID); i >= 0 {
			n.BookmarkedArticles = slices.Delete(n.BookmarkedArticles, i, i+1)
			return
		}
		n.BookmarkedArticles = append(n.BookmarkedArticles, articleID)
		bookmarked = true
	})
	if err != nil {
		return false, err
	}
	return bookmarked, nil
}

func (s *PreferencesService) loadNews(ctx context.Context, prefs repository.PreferencesRepository, userID string) (model.NewsPreferences, error) {
	stored, err := prefs.GetNewsPreferences(ctx, userID)
	if err != nil {
		return model.NewsPreferences{}, storageErr("Failed to load news preferences", err)
	}
	return mergeNews(userID, stored), nil
}

func (s *PreferencesService) saveNews(
	ctx context.Context,
	prefs repository.PreferencesRepository,
	userID string,
	change func(*model.NewsPreferences),
) (*model.NewsPreferences, error) {
	n, err := s.loadNews(ctx, prefs, userID)
	if err != nil {
		return nil, err
	}
	change(&n)
	n.UpdatedAt = s.now()
	if err := prefs.SetNewsPreferences(ctx, userID, n); err != nil {
		return nil, storageErr("Failed to save news preferences", err)
	}
	return &n, nil
}

// mergeNews fills every unset field of stored from the defaults.
func mergeNews(userID string, stored *model.NewsPreferences) model.NewsPreferences {
	n := model.DefaultNewsPreferences(userID)
	if stored == nil {
		return n
	}
	if stored.FavoriteCategories != nil {
		n.FavoriteCategories = stored.FavoriteCategories
	}
	if stored.FavoriteSources != nil {
		n.FavoriteSources = stored.FavoriteSources
	}
	if stored.DefaultSortBy != "" {
		n.DefaultSortBy = stored.DefaultSortBy
	}
	if stored.ArticlesPerPage > 0 {
		n.ArticlesPerPage = stored.ArticlesPerPage
	}
	if stored.AutoRefreshInterval > 0 {
		n.AutoRefreshInterval = stored.AutoRefreshInterval
	}
	if stored.ReadArticles != nil {
		n.ReadArticles = stored.ReadArticles
	}
	if stored.BookmarkedArticles != nil {
		n.BookmarkedArticles = stored.BookmarkedArticles
	}
	n.UpdatedAt = stored.UpdatedAt
	return n
}
