package model

import "time"

// NewsCategory groups feed items and user articles alike.
type NewsCategory string

const (
	CategoryGeneral       NewsCategory = "general"
	CategoryBusiness      NewsCategory = "business"
	CategoryEntertainment NewsCategory = "entertainment"
	CategoryHealth        NewsCategory = "health"
	CategoryScience       NewsCategory = "science"
	CategorySports        NewsCategory = "sports"
	CategoryTechnology    NewsCategory = "technology"
)

// Categories lists every category in display order.
var Categories = []NewsCategory{
	CategoryGeneral,
	CategoryBusiness,
	CategoryEntertainment,
	CategoryHealth,
	CategoryScience,
	CategorySports,
	CategoryTechnology,
}

func (c NewsCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type NewsSortBy string

const (
	SortByPublishedAt NewsSortBy = "publishedAt"
	SortByPopularity  NewsSortBy = "popularity"
	SortByRelevancy   NewsSortBy = "relevancy"
)

type SourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewsItem is one entry of the news feed.
type NewsItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Content     string       `json:"content"`
	URL         string       `json:"url"`
	URLToImage  *string      `json:"urlToImage"`
	PublishedAt time.Time    `json:"publishedAt"`
	Author      *string      `json:"author"`
	Source      SourceRef    `json:"source"`
	Category    NewsCategory `json:"category"`
	ReadingTime int          `json:"readingTime"`
}

type NewsSource struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Category    NewsCategory `json:"category"`
	Language    string       `json:"language"`
	Country     string       `json:"country"`
}

// NewsSearchParams filters a feed request. Zero values mean "any".
type NewsSearchParams struct {
	Query    string       `json:"query,omitempty"`
	Category NewsCategory `json:"category,omitempty"`
	Sources  []string     `json:"sources,omitempty"`
	SortBy   NewsSortBy   `json:"sortBy,omitempty"`
	PageSize int          `json:"pageSize,omitempty"`
}

type NewsResponse struct {
	Status       string     `json:"status"`
	TotalResults int        `json:"totalResults"`
	Articles     []NewsItem `json:"articles"`
}

type SourcesResponse struct {
	Status  string       `json:"status"`
	Sources []NewsSource `json:"sources"`
}
