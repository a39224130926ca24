// Package filestore persists provider sessions as JSON files so a CLI invocation can resume
// the session of the previous one.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ErrNotFound is returned when no session is stored under a key.
var ErrNotFound = errors.New("session not found")

// SessionStore implements ports.SessionStore with one 0600 file per key.
type SessionStore struct {
	dir string
	now func() time.Time
}

// NewSessionStore creates the directory (0700) if needed.
func NewSessionStore(dir string) (*SessionStore, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &SessionStore{dir: dir, now: time.Now}, nil
}

func (s *SessionStore) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Save writes the session atomically.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.PersistedSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess.Key == "" {
		return errors.New("session key cannot be empty")
	}
	if sess.RefreshToken == "" && sess.Expired(s.now()) {
		return errors.New("session is expired")
	}
	path, err := s.path(sess.Key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get loads the session stored under key. Unresumable expired sessions are removed.
func (s *SessionStore) Get(ctx context.Context, key string) (domainauth.PersistedSession, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.PersistedSession{}, err
	}
	path, err := s.path(key)
	if err != nil {
		return domainauth.PersistedSession{}, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domainauth.PersistedSession{}, ErrNotFound
	}
	if err != nil {
		return domainauth.PersistedSession{}, fmt.Errorf("read session: %w", err)
	}

	var sess domainauth.PersistedSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.PersistedSession{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.RefreshToken == "" && sess.Expired(s.now()) {
		if err := s.Delete(ctx, key); err != nil {
			return domainauth.PersistedSession{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.PersistedSession{}, ErrNotFound
	}
	return sess, nil
}

// Delete removes the session; deleting a missing key is not an error.
func (s *SessionStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
