package auth

import (
	"encoding/hex"
	"testing"
	"time"
)

func TestGenerateSessionToken(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		tok, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("GenerateSessionToken() error = %v", err)
		}
		if len(tok) != 64 {
			t.Fatalf("token length = %d, want 64", len(tok))
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("token %q is not hex: %v", tok, err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	if got, want := SessionExpiry(now, false), now.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("SessionExpiry(now, false) = %v, want %v", got, want)
	}
	if got, want := SessionExpiry(now, true), now.AddDate(0, 0, 30); !got.Equal(want) {
		t.Errorf("SessionExpiry(now, true) = %v, want %v", got, want)
	}
}
