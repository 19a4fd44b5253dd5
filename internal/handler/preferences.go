package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/service"
)

// PreferencesHandler reads and writes the signed-in user's settings.
type PreferencesHandler struct {
	prefs  *service.PreferencesService
	logger *slog.Logger
}

func NewPreferencesHandler(prefs *service.PreferencesService, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, logger: logger}
}

// HTTP: GET /api/preferences
func (h *PreferencesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	p, err := h.prefs.Get(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: PATCH /api/preferences
func (h *PreferencesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var patch model.PreferencesPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.prefs.Update(r.Context(), user.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: GET /api/preferences/news
func (h *PreferencesHandler) HandleGetNews(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	n, err := h.prefs.GetNews(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HTTP: PATCH /api/preferences/news
func (h *PreferencesHandler) HandleUpdateNews(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var patch model.NewsPreferencesPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.prefs.UpdateNews(r.Context(), user.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HTTP: POST /api/preferences/news/read/{articleId}
func (h *PreferencesHandler) HandleMarkAsRead(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.prefs.MarkAsRead(r.Context(), user.ID, chi.URLParam(r, "articleId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/preferences/news/bookmark/{articleId}
// RESPONSE: {"bookmarked": true}
func (h *PreferencesHandler) HandleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	on, err := h.prefs.ToggleBookmark(r.Context(), user.ID, chi.URLParam(r, "articleId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": on})
}
