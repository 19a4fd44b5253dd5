package model

import "time"

// CachedNewsItem is one cached response. Content holds the JSON-encoded
// payload, whatever its shape.
type CachedNewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SourceURL   string    `json:"sourceUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	CachedAt    time.Time `json:"cachedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (c CachedNewsItem) Key() string { return c.ID }

// Expired reports whether the entry has lapsed at now.
func (c CachedNewsItem) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
