package model

import "time"

const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type NotificationSettings struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	InApp bool `json:"inApp"`
}

type PrivacySettings struct {
	ProfileVisible   bool `json:"profileVisible"`
	AnalyticsEnabled bool `json:"analyticsEnabled"`
}

// UserPreferences is keyed by the owning user's id.
type UserPreferences struct {
	ID            string               `json:"id"`
	UserID        string               `json:"userId"`
	Theme         string               `json:"theme"`
	Language      string               `json:"language"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func (p UserPreferences) Key() string { return p.ID }

// DefaultPreferences returns the settings a user starts with.
func DefaultPreferences(userID string, now time.Time) UserPreferences {
	return UserPreferences{
		ID:            userID,
		UserID:        userID,
		Theme:         ThemeAuto,
		Language:      "en",
		Notifications: NotificationSettings{Email: true, Push: false, InApp: true},
		Privacy:       PrivacySettings{ProfileVisible: true, AnalyticsEnabled: true},
		UpdatedAt:     now,
	}
}

// PreferencesPatch replaces whole groups; a non-nil Notifications overwrites
// all three flags.
type PreferencesPatch struct {
	Theme         *string               `json:"theme,omitempty" validate:"omitnil,oneof=auto light dark"`
	Language      *string               `json:"language,omitempty" validate:"omitnil,min=1"`
	Notifications *NotificationSettings `json:"notifications,omitempty"`
	Privacy       *PrivacySettings      `json:"privacy,omitempty"`
}

func (p PreferencesPatch) Apply(u *UserPreferences) {
	if p.Theme != nil {
		u.Theme = *p.Theme
	}
	if p.Language != nil {
		u.Language = *p.Language
	}
	if p.Notifications != nil {
		u.Notifications = *p.Notifications
	}
	if p.Privacy != nil {
		u.Privacy = *p.Privacy
	}
}

// NewsPreferencesKey derives the document key of a user's news preferences.
// They live in the preferences collection next to UserPreferences.
func NewsPreferencesKey(userID string) string {
	return "news_" + userID
}

// NewsPreferences is the loosely-structured news feed settings blob.
type NewsPreferences struct {
	ID                  string         `json:"id"`
	UserID              string         `json:"userId"`
	FavoriteCategories  []NewsCategory `json:"favoriteCategories"`
	FavoriteSources     []string       `json:"favoriteSources"`
	DefaultSortBy       NewsSortBy     `json:"defaultSortBy"`
	ArticlesPerPage     int            `json:"articlesPerPage"`
	AutoRefreshInterval int            `json:"autoRefreshInterval"`
	ReadArticles        []string       `json:"readArticles"`
	BookmarkedArticles  []string       `json:"bookmarkedArticles"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// DefaultNewsPreferences is what an empty blob is merged over.
func DefaultNewsPreferences(userID string) NewsPreferences {
	return NewsPreferences{
		ID:                  NewsPreferencesKey(userID),
		UserID:              userID,
		FavoriteCategories:  []NewsCategory{},
		FavoriteSources:     []string{},
		DefaultSortBy:       SortByPublishedAt,
		ArticlesPerPage:     20,
		AutoRefreshInterval: 30,
		ReadArticles:        []string{},
		BookmarkedArticles:  []string{},
	}
}

// NewsPreferencesPatch bounds ArticlesPerPage by the feed's largest page.
type NewsPreferencesPatch struct {
	FavoriteCategories  []NewsCategory `json:"favoriteCategories,omitempty" validate:"omitempty,dive,news_category"`
	FavoriteSources     []string       `json:"favoriteSources,omitempty"`
	DefaultSortBy       *NewsSortBy    `json:"defaultSortBy,omitempty" validate:"omitnil,oneof=publishedAt popularity relevancy"`
	ArticlesPerPage     *int           `json:"articlesPerPage,omitempty" validate:"omitnil,min=1,max=100"`
	AutoRefreshInterval *int           `json:"autoRefreshInterval,omitempty" validate:"omitnil,min=1"`
	ReadArticles        []string       `json:"readArticles,omitempty"`
	BookmarkedArticles  []string       `json:"bookmarkedArticles,omitempty"`
}

// Apply merges p into n. A nil slice means "unchanged"; an empty non-nil
// slice clears the list.
func (p NewsPreferencesPatch) Apply(n *NewsPreferences) {
	if p.FavoriteCategories != nil {
		n.FavoriteCategories = p.FavoriteCategories
	}
	if p.FavoriteSources != nil {
		n.FavoriteSources = p.FavoriteSources
	}
	if p.DefaultSortBy != nil {
		n.DefaultSortBy = *p.DefaultSortBy
	}
	if p.ArticlesPerPage != nil {
		n.ArticlesPerPage = *p.ArticlesPerPage
	}
	if p.AutoRefreshInterval != nil {
		n.AutoRefreshInterval = *p.AutoRefreshInterval
	}
	if p.ReadArticles != nil {
		n.ReadArticles = p.ReadArticles
	}
	if p.BookmarkedArticles != nil {
		n.BookmarkedArticles = p.BookmarkedArticles
	}
}
