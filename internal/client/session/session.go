// Package session holds the authenticated client context: the bearer token and
// the user it belongs to. A Session is created at login, read by every
// authenticated call and destroyed at logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
)

var ErrNoSession = errors.New("not logged in")

type Session struct {
	mu    sync.RWMutex
	token string
	user  api.User
}

func New(token string, user api.User) *Session {
	return &Session{token: token, user: user}
}

// Token implements api.TokenSource. It is empty once the session is cleared.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Active() bool {
	return s.Token() != ""
}

// Invalidate drops the credential, e.g. after the server answered 401.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

type fileFormat struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Store persists one session as a JSON file readable only by its owner.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if f.Token == "" {
		return nil, ErrNoSession
	}
	return New(f.Token, f.User), nil
}

func (s *Store) Save(sess *Session) error {
	if !sess.Active() {
		return ErrNoSession
	}
	raw, err := json.MarshalIndent(fileFormat{Token: sess.Token(), User: sess.User()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
