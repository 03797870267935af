// Package auth stores the bearer token used to download remote artifacts.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// EnvToken overrides any stored token.
	EnvToken = "FRAUDBOARD_ARTIFACT_TOKEN"

	keyringService = "fraudboard"
	keyringUser    = "artifact_token"
	tokenFileName  = "artifact_token"
	tokenFileMode  = 0600
)

var ErrNoToken = errors.New("no artifact token configured")

// Store keeps the token in the OS keychain and falls back to a file in dir
// when no keychain is available.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, tokenFileName)
}

// Save stores token, removing any file copy once the keychain accepts it.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return s.saveFile(token)
	}

	os.Remove(s.path())
	return nil
}

// Get returns the token from the environment, the keychain or the file,
// in that order. A file token is migrated to the keychain when possible.
func (s *Store) Get() (string, error) {
	if t := strings.TrimSpace(os.Getenv(EnvToken)); t != "" {
		return t, nil
	}

	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	token, err = s.readFile()
	if err != nil {
		return "", err
	}

	if migrateErr := keyring.Set(keyringService, keyringUser, token); migrateErr == nil {
		slog.Info("migrated artifact token from file to OS keychain")
		os.Remove(s.path())
	}

	return token, nil
}

// Lookup is Get without the not-found error.
func (s *Store) Lookup() string {
	t, err := s.Get()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			slog.Debug("reading artifact token", "error", err)
		}
		return ""
	}
	return t
}

// Delete removes the token from both the keychain and the file.
func (s *Store) Delete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting token from keychain: %w", err)
	}
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting token file: %w", err)
	}
	return nil
}

func (s *Store) saveFile(token string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating token dir %s: %w", s.dir, err)
	}
	return os.WriteFile(s.path(), []byte(token), tokenFileMode)
}

func (s *Store) readFile() (string, error) {
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token file %s: %w", s.path(), err)
	}
	t := strings.TrimSpace(string(b))
	if t == "" {
		return "", ErrNoToken
	}
	return t, nil
}
