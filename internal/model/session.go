package model

import "time"

// Session is a time-bounded proof of authentication. ID and Token are the
// same value; the token doubles as the primary key.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Session) Key() string { return s.ID }

// Valid reports whether the session is still usable at now.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// LoginCredentials is the login payload sent by the UI.
type LoginCredentials struct {
	Email      string `json:"email"      validate:"required,email_simple"`
	Password   string `json:"password"   validate:"required,min=8,password_policy"`
	RememberMe bool   `json:"rememberMe"`
}

// SignupData is the signup payload sent by the UI.
type SignupData struct {
	Email       string `json:"email"       validate:"required,email_simple"`
	Password    string `json:"password"    validate:"required,min=8,password_policy"`
	Name        string `json:"name"        validate:"required,min=2"`
	AcceptTerms bool   `json:"acceptTerms" validate:"accepted"`
}

// AuthResponse is returned by a successful signup or login.
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthSession is a resolved session: the owner and when it lapses.
type AuthSession struct {
	User      User
	ExpiresAt time.Time
}
