package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/service"
)

// NewsHandler serves the cached news feed.
type NewsHandler struct {
	news   *service.NewsService
	logger *slog.Logger
}

func NewNewsHandler(news *service.NewsService, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{news: news, logger: logger}
}

// HTTP: GET /api/news?q=&category=&sortBy=&pageSize=&sources=bbc-news,cnn
func (h *NewsHandler) HandleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageSize, err := queryInt(r, "pageSize", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	params := model.NewsSearchParams{
		Query:    q.Get("q"),
		Category: model.NewsCategory(q.Get("category")),
		SortBy:   model.NewsSortBy(q.Get("sortBy")),
		PageSize: pageSize,
	}
	if raw := q.Get("sources"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				params.Sources = append(params.Sources, s)
			}
		}
	}

	resp, err := h.news.FetchArticles(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HTTP: GET /api/news/sources?category=sports
func (h *NewsHandler) HandleSources(w http.ResponseWriter, r *http.Request) {
	resp, err := h.news.FetchSources(r.Context(), model.NewsCategory(r.URL.Query().Get("category")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HTTP: DELETE /api/news/cache
func (h *NewsHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.news.ClearCache(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("news cache cleared")
	w.WriteHeader(http.StatusNoContent)
}
