package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// tokenBytes of entropy per session token; hex doubles the length.
	tokenBytes = 32

	// SessionDuration is how long a normal session lasts.
	SessionDuration = 24 * time.Hour

	// RememberMeDuration is how long a "remember me" session lasts.
	RememberMeDuration = 30 * 24 * time.Hour
)

// GenerateSessionToken returns 64 hex characters from crypto/rand. The
// token is opaque: it means nothing until it is looked up in the sessions
// collection.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SessionExpiry returns the absolute instant a session created at now
// stops being valid.
func SessionExpiry(now time.Time, rememberMe bool) time.Time {
	if rememberMe {
		return now.Add(RememberMeDuration)
	}
	return now.Add(SessionDuration)
}
