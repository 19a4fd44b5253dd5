package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/service"
)

// UsersHandler is the admin console. Routes are mounted behind
// auth.RequireAdmin; the service checks the requester's role again
// against storage.
type UsersHandler struct {
	users  *service.UserManagementService
	logger *slog.Logger
}

func NewUsersHandler(users *service.UserManagementService, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: logger}
}

// HandleList returns the filtered, sorted user list.
//
// HTTP: GET /api/users?role=admin&q=ann&sort=name&dir=asc
//
// Without sort the newest accounts come first.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.UserFromContext(r.Context())
	q := r.URL.Query()

	filter := service.DefaultUserFilter
	if role := model.Role(q.Get("role")); role != "" {
		if !role.Valid() {
			writeError(w, apperror.InvalidParameter("role", "Unknown role "+string(role)))
			return
		}
		filter.Role = role
	}
	filter.Search = q.Get("q")
	if sort := q.Get("sort"); sort != "" {
		switch field := service.UserSortField(sort); field {
		case service.SortByName, service.SortByEmail, service.SortByRole,
			service.SortByCreatedAt, service.SortByLastLoginAt:
			filter.SortField = field
			filter.SortDesc = false
		default:
			writeError(w, apperror.InvalidParameter("sort", "Unknown sort field "+sort))
			return
		}
	}
	switch q.Get("dir") {
	case "":
	case "asc":
		filter.SortDesc = false
	case "desc":
		filter.SortDesc = true
	default:
		writeError(w, apperror.InvalidParameter("dir", "dir must be asc or desc"))
		return
	}

	users, err := h.users.ListUsers(r.Context(), requester.ID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HTTP: GET /api/users/stats
func (h *UsersHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.UserFromContext(r.Context())
	stats, err := h.users.GetUserStatistics(r.Context(), requester.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HTTP: PUT /api/users/{id}/role
// REQUEST BODY: {"role": "admin"}
func (h *UsersHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.UserFromContext(r.Context())

	var req model.RoleUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateUserRole(r.Context(), requester.ID, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HTTP: DELETE /api/users/{id}
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.UserFromContext(r.Context())
	if err := h.users.DeleteUser(r.Context(), requester.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
