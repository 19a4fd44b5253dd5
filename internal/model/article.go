package model

import (
	"regexp"
	"strings"
	"time"
)

// Article is a piece written by a user in the editor.
type Article struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Intro       string       `json:"intro"`
	Description string       `json:"description"` // rich HTML
	Category    NewsCategory `json:"category"`
	ImageURL    *string      `json:"imageUrl,omitempty"`
	AuthorID    string       `json:"authorId"`
	AuthorName  string       `json:"authorName"`
	IsPublished bool         `json:"isPublished"`
	Tags        []string     `json:"tags"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ReadingTime int          `json:"readingTime"` // minutes
}

func (a Article) Key() string { return a.ID }

// ArticleInput is the editor payload for a new article.
type ArticleInput struct {
	Title       string       `json:"title"       validate:"required,max=200"`
	Intro       string       `json:"intro"       validate:"required,max=500"`
	Description string       `json:"description" validate:"required"`
	Category    NewsCategory `json:"category"    validate:"required,news_category"`
	ImageURL    *string      `json:"imageUrl"    validate:"omitempty,url"`
	IsPublished bool         `json:"isPublished"`
	Tags        []string     `json:"tags"        validate:"max=10,dive,required,max=30"`
}

// ArticlePatch is a partial article update. Nil fields are left alone.
type ArticlePatch struct {
	Title       *string       `json:"title,omitempty"       validate:"omitempty,min=1,max=200"`
	Intro       *string       `json:"intro,omitempty"       validate:"omitempty,min=1,max=500"`
	Description *string       `json:"description,omitempty" validate:"omitempty,min=1"`
	Category    *NewsCategory `json:"category,omitempty"    validate:"omitempty,news_category"`
	ImageURL    *string       `json:"imageUrl,omitempty"    validate:"omitempty,url"`
	IsPublished *bool         `json:"isPublished,omitempty"`
	Tags        []string      `json:"tags,omitempty"        validate:"omitempty,max=10,dive,required,max=30"`
}

func (p ArticlePatch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Intro != nil {
		a.Intro = *p.Intro
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.ImageURL != nil {
		url := *p.ImageURL
		a.ImageURL = &url
	}
	if p.IsPublished != nil {
		a.IsPublished = *p.IsPublished
	}
	if p.Tags != nil {
		a.Tags = p.Tags
	}
}

// ArticlePage is one page of a paginated listing.
type ArticlePage struct {
	Articles   []Article `json:"articles"`
	TotalCount int       `json:"totalCount"`
	HasMore    bool      `json:"hasMore"`
}

type AuthorStats struct {
	AuthorID          string    `json:"authorId"`
	AuthorName        string    `json:"authorName"`
	ArticleCount      int       `json:"articleCount"`
	LatestArticleDate time.Time `json:"latestArticleDate"`
}

type ActivityStats struct {
	TotalArticles     int `json:"totalArticles"`
	TotalAuthors      int `json:"totalAuthors"`
	ArticlesThisWeek  int `json:"articlesThisWeek"`
	ArticlesThisMonth int `json:"articlesThisMonth"`
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// WordsPerMinute is the reading speed ReadingTime assumes.
const WordsPerMinute = 200

// ReadingTime estimates minutes to read an HTML body: tags are stripped,
// words counted, and the result is never below one minute.
func ReadingTime(html string) int {
	words := len(strings.Fields(htmlTag.ReplaceAllString(html, " ")))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return max(1, minutes)
}

// BlankHTML reports whether html has no visible text, e.g. "<p></p>" or
// "<p><br></p>" from an empty editor.
func BlankHTML(html string) bool {
	return strings.TrimSpace(htmlTag.ReplaceAllString(html, " ")) == ""
}
