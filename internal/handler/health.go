package handler

import (
	"net/http"

	"github.com/sakif/newsdesk/internal/session"
)

// HealthHandler reports that the bridge is up and how far the session got.
type HealthHandler struct {
	machine *session.Machine
}

func NewHealthHandler(machine *session.Machine) *HealthHandler {
	return &HealthHandler{machine: machine}
}

type healthResponse struct {
	Status        string         `json:"status"`
	Session       session.Status `json:"session"`
	IsInitialized bool           `json:"isInitialized"`
}

// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.machine.State()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Session:       state.Status,
		IsInitialized: state.IsInitialized,
	})
}
