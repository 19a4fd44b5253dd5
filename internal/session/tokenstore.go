package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sakif/newsdesk/internal/model"
)

// StoredToken is the session remembered across restarts.
type StoredToken struct {
	Token     string     `json:"token"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// TokenStore persists at most one StoredToken. Load returns nil when there
// is none or when it has expired.
type TokenStore interface {
	Load() (*StoredToken, error)
	Save(StoredToken) error
	Clear() error
}

// FileTokenStore keeps the token in a JSON file readable only by the owner.
type FileTokenStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, now: time.Now}
}

func (f *FileTokenStore) Load() (*StoredToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: reading token file: %w", err)
	}

	var tok StoredToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("session: decoding token file: %w", err)
	}
	if !f.now().Before(tok.ExpiresAt) {
		return nil, f.remove()
	}
	return &tok, nil
}

// Save replaces the file atomically: a crash leaves either the old token
// or the new one, never half of either.
func (f *FileTokenStore) Save(tok StoredToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("session: encoding token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("session: chmod temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("session: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("session: replacing token file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove()
}

func (f *FileTokenStore) remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: removing token file: %w", err)
	}
	return nil
}

// MemoryTokenStore forgets the token when the process exits.
type MemoryTokenStore struct {
	mu  sync.Mutex
	tok *StoredToken
	now func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{now: time.Now}
}

func (m *MemoryTokenStore) Load() (*StoredToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return nil, nil
	}
	if !m.now().Before(m.tok.ExpiresAt) {
		m.tok = nil
		return nil, nil
	}
	tok := *m.tok
	return &tok, nil
}

func (m *MemoryTokenStore) Save(tok StoredToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = &tok
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	return nil
}
