// Package session holds the client-side authentication state of the local
// app and the background tasks that keep it honest.
//
// STATE MACHINE
//
//	idle → loading → authenticated | unauthenticated
//
// authenticated falls back to unauthenticated on logout or when the
// session monitor sees the expiry coming. IsInitialized is a separate flag:
// it turns true once, after the first InitializeSession resolves, so the UI
// can tell "not checked yet" from "checked, logged out".
//
// Every change goes through Reduce, a pure function of (State, Action).
// Machine owns the current State and performs the side effects around it.
package session

import (
	"time"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
)

type Status string

const (
	StatusIdle            Status = "idle"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is what the UI reads back.
type State struct {
	CurrentUser      *model.User       `json:"currentUser"`
	Status           Status            `json:"status"`
	Error            *apperror.Payload `json:"error"`
	IsInitialized    bool              `json:"isInitialized"`
	SessionExpiresAt *time.Time        `json:"sessionExpiresAt"`
}

// InitialState is the state before anything was checked.
func InitialState() State {
	return State{Status: StatusIdle}
}

// Action is one of the types below.
type Action interface {
	action()
}

type (
	InitializeRequest struct{}
	// InitializeSuccess with a nil User means there was no usable session.
	InitializeSuccess struct {
		User      *model.User
		ExpiresAt time.Time
	}
	InitializeFailure struct{ Err apperror.Payload }

	LoginRequest struct{}
	LoginSuccess struct{ Response model.AuthResponse }
	LoginFailure struct{ Err apperror.Payload }

	SignupRequest struct{}
	SignupSuccess struct{ Response model.AuthResponse }
	SignupFailure struct{ Err apperror.Payload }

	LogoutRequest struct{}
	LogoutSuccess struct{}
	// LogoutFailure still logs the user out locally.
	LogoutFailure struct{ Err apperror.Payload }

	SessionExpired struct{ Err apperror.Payload }

	ClearError struct{}
)

func (InitializeRequest) action() {}
func (InitializeSuccess) action() {}
func (InitializeFailure) action() {}
func (LoginRequest) action()      {}
func (LoginSuccess) action()      {}
func (LoginFailure) action()      {}
func (SignupRequest) action()     {}
func (SignupSuccess) action()     {}
func (SignupFailure) action()     {}
func (LogoutRequest) action()     {}
func (LogoutSuccess) action()     {}
func (LogoutFailure) action()     {}
func (SessionExpired) action()    {}
func (ClearError) action()        {}

// Reduce returns the state after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case InitializeRequest, LoginRequest, SignupRequest:
		s.Status = StatusLoading
		s.Error = nil

	case InitializeSuccess:
		s.IsInitialized = true
		if a.User == nil {
			s.Status = StatusUnauthenticated
			break
		}
		s = signedIn(s, *a.User, a.ExpiresAt)

	case InitializeFailure:
		s.IsInitialized = true
		s = signedOut(s, &a.Err)

	case LoginSuccess:
		s = signedIn(s, a.Response.User, a.Response.ExpiresAt)
	case SignupSuccess:
		s = signedIn(s, a.Response.User, a.Response.ExpiresAt)

	case LoginFailure:
		s = signedOut(s, &a.Err)
	case SignupFailure:
		s = signedOut(s, &a.Err)

	case LogoutRequest:
		// The user stays visible until the logout resolves.
		s.Error = nil
	case LogoutSuccess:
		s = signedOut(s, nil)
	case LogoutFailure:
		s = signedOut(s, &a.Err)

	case SessionExpired:
		s = signedOut(s, &a.Err)

	case ClearError:
		s.Error = nil
	}
	return s
}

func signedIn(s State, user model.User, expiresAt time.Time) State {
	s.CurrentUser = &user
	s.SessionExpiresAt = &expiresAt
	s.Status = StatusAuthenticated
	s.Error = nil
	return s
}

func signedOut(s State, err *apperror.Payload) State {
	s.CurrentUser = nil
	s.SessionExpiresAt = nil
	s.Status = StatusUnauthenticated
	s.Error = err
	return s
}
