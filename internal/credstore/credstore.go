// ABOUTME: Persisted bearer token storage in the operator's config directory.
// ABOUTME: Keeps the admin session alive across console invocations.

package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const tokenFileName = "token"

// FileStore persists a single bearer token as a file on disk. An absent
// file means logged out.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at $XDG_CONFIG_HOME/cosmic-watch
// (falling back to ~/.config/cosmic-watch).
func NewFileStore() (*FileStore, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return &FileStore{dir: filepath.Join(configDir, "cosmic-watch")}, nil
}

// NewFileStoreAt returns a store rooted at an explicit directory.
func NewFileStoreAt(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, tokenFileName)
}

// Load returns the persisted token, or "" when none is stored.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save persists the token, creating the config directory if needed.
func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(s.Path(), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Clear removes the persisted token. Clearing an absent token is not an
// error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// TokenExpiry reads the expiry claim out of a JWT-shaped token without
// verifying its signature. The token stays opaque for authentication
// purposes; this exists only so status output can show when a session
// will lapse. Returns false for tokens that are not JWTs or carry no
// expiry.
func TokenExpiry(token string) (expiry int64, ok bool) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}
	return claims.ExpiresAt.Unix(), true
}
