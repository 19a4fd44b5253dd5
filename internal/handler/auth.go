package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
	"github.com/sakif/newsdesk/internal/session"
)

// AuthHandler exposes the session state machine to the local UI.
//
// HANDLER RESPONSIBILITIES:
//   - HandleState      → the current state shape
//   - HandleInitialize → restore the remembered session
//   - HandleLogin / HandleSignup → authenticate and remember the session
//   - HandleLogout     → forget the session, whatever the server says
//
// Every success returns the state. Failures return the error payload; the
// state (with the same error in it) is available from HandleState.
type AuthHandler struct {
	machine *session.Machine
	logger  *slog.Logger
}

func NewAuthHandler(machine *session.Machine, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{machine: machine, logger: logger}
}

// HandleState returns {currentUser, status, error, isInitialized, sessionExpiresAt}.
//
// HTTP: GET /api/auth/state
func (h *AuthHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.machine.State())
}

// HTTP: POST /api/auth/initialize
func (h *AuthHandler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.machine.InitializeSession(r.Context()))
}

// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "...", "rememberMe": false}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.LoginCredentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	state, err := h.machine.Login(r.Context(), creds)
	if err != nil {
		h.logger.Info("login rejected", slog.String("code", string(apperror.PayloadOf(err).Code)))
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "...", "password": "...", "name": "...", "acceptTerms": true}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var data model.SignupData
	if err := decodeJSON(w, r, &data); err != nil {
		writeError(w, err)
		return
	}

	state, err := h.machine.Signup(r.Context(), data)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// HandleLogout always answers 200: the local session is gone even when the
// server-side delete failed, and the state says so.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.machine.Logout(r.Context()))
}

// HTTP: DELETE /api/auth/error
func (h *AuthHandler) HandleClearError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.machine.ClearError())
}

// writeAuthError answers an unknown email like a wrong password, so the
// status does not tell the two apart.
func writeAuthError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if errors.Is(err, apperror.ErrUserNotFound) {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, ErrorResponse{Error: apperror.PayloadOf(err)})
}
