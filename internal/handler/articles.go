package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/service"
)

// ArticlesHandler serves the editor: user-written articles.
type ArticlesHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewArticlesHandler(articles *service.ArticleService, logger *slog.Logger) *ArticlesHandler {
	return &ArticlesHandler{articles: articles, logger: logger}
}

// HandleList pages through published articles, or lists one category.
//
// HTTP: GET /api/articles?page=1&pageSize=20
// HTTP: GET /api/articles?category=science
func (h *ArticlesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		list, err := h.articles.ByCategory(r.Context(), model.NewsCategory(category))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.articles.ListPublished(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HTTP: GET /api/articles/mine
func (h *ArticlesHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	list, err := h.articles.ListMine(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: GET /api/articles/search?q=go
func (h *ArticlesHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	list, err := h.articles.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HTTP: GET /api/articles/dashboard
func (h *ArticlesHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.articles.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HTTP: GET /api/articles/{id}
func (h *ArticlesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	a, err := h.articles.Get(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HTTP: POST /api/articles
func (h *ArticlesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var in model.ArticleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.articles.Create(r.Context(), user, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HTTP: PATCH /api/articles/{id}
func (h *ArticlesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var patch model.ArticlePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.articles.Update(r.Context(), user, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HTTP: DELETE /api/articles/{id}
func (h *ArticlesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.articles.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
