package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
)

var (
	fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	ann      = model.User{ID: "u1", Email: "a@b.com", Name: "Ann", Role: model.RoleAdmin, CreatedAt: fixedNow}
)

func authResponse(expiresAt time.Time) model.AuthResponse {
	return model.AuthResponse{User: ann, SessionToken: "tok-1", ExpiresAt: expiresAt}
}

func authenticated() State {
	exp := fixedNow.Add(time.Hour)
	return State{CurrentUser: &ann, Status: StatusAuthenticated, IsInitialized: true, SessionExpiresAt: &exp}
}

// =========================================================================
// REDUCER
// =========================================================================

func TestReduce(t *testing.T) {
	failure := apperror.InvalidCredentials(nil).Payload()
	expired := apperror.SessionExpired().Payload()
	withErr := State{Status: StatusUnauthenticated, Error: &failure, IsInitialized: true}

	tests := []struct {
		name   string
		from   State
		action Action
		check  func(t *testing.T, s State)
	}{
		{
			name:   "initialize request",
			from:   InitialState(),
			action: InitializeRequest{},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusLoading, s.Status)
				assert.False(t, s.IsInitialized)
			},
		},
		{
			name:   "initialize without session",
			from:   State{Status: StatusLoading},
			action: InitializeSuccess{},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusUnauthenticated, s.Status)
				assert.True(t, s.IsInitialized)
				assert.Nil(t, s.CurrentUser)
			},
		},
		{
			name:   "initialize with session",
			from:   State{Status: StatusLoading},
			action: InitializeSuccess{User: &ann, ExpiresAt: fixedNow},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusAuthenticated, s.Status)
				assert.True(t, s.IsInitialized)
				require.NotNil(t, s.SessionExpiresAt)
				assert.True(t, s.SessionExpiresAt.Equal(fixedNow))
			},
		},
		{
			name:   "initialize failure",
			from:   State{Status: StatusLoading},
			action: InitializeFailure{Err: failure},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusUnauthenticated, s.Status)
				assert.True(t, s.IsInitialized)
				require.NotNil(t, s.Error)
			},
		},
		{
			name:   "login request clears error",
			from:   withErr,
			action: LoginRequest{},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusLoading, s.Status)
				assert.Nil(t, s.Error)
				assert.True(t, s.IsInitialized)
			},
		},
		{
			name:   "login success",
			from:   State{Status: StatusLoading, IsInitialized: true},
			action: LoginSuccess{Response: authResponse(fixedNow)},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusAuthenticated, s.Status)
				require.NotNil(t, s.CurrentUser)
				assert.Equal(t, "u1", s.CurrentUser.ID)
			},
		},
		{
			name:   "signup failure clears user",
			from:   authenticated(),
			action: SignupFailure{Err: failure},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusUnauthenticated, s.Status)
				assert.Nil(t, s.CurrentUser)
				assert.Nil(t, s.SessionExpiresAt)
				assert.Equal(t, apperror.CodeInvalidCredentials, s.Error.Code)
			},
		},
		{
			name:   "logout request keeps user",
			from:   authenticated(),
			action: LogoutRequest{},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusAuthenticated, s.Status)
				assert.NotNil(t, s.CurrentUser)
			},
		},
		{
			name:   "logout success",
			from:   authenticated(),
			action: LogoutSuccess{},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusUnauthenticated, s.Status)
				assert.Nil(t, s.CurrentUser)
				assert.Nil(t, s.Error)
				assert.True(t, s.IsInitialized)
			},
		},
		{
			name:   "session expired",
			from:   authenticated(),
			action: SessionExpired{Err: expired},
			check: func(t *testing.T, s State) {
				assert.Equal(t, StatusUnauthenticated, s.Status)
				assert.Nil(t, s.SessionExpiresAt)
				assert.Equal(t, apperror.CodeSessionExpired, s.Error.Code)
			},
		},
		{
			name:   "clear error",
			from:   withErr,
			action: ClearError{},
			check: func(t *testing.T, s State) {
				assert.Nil(t, s.Error)
				assert.Equal(t, StatusUnauthenticated, s.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Reduce(tt.from, tt.action))
		})
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	from := authenticated()
	user := from.CurrentUser

	next := Reduce(from, LoginSuccess{Response: model.AuthResponse{User: model.User{ID: "u2"}, ExpiresAt: fixedNow}})

	assert.Equal(t, "u2", next.CurrentUser.ID)
	assert.Equal(t, "u1", user.ID)
	assert.Same(t, user, from.CurrentUser)
}
