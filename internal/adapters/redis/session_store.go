package redis

// Package redis provides Redis-based adapters for the dashboard.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
)

// DefaultSessionTTL bounds how long a persisted provider session survives without a refresh.
// Refresh tokens outlive the ID token they were issued with, so the key TTL is not tied to ExpiresAt.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionStoreOptions configures the Redis session store.
type SessionStoreOptions struct {
	Prefix string
	TTL    time.Duration
}

// SessionStore persists provider sessions as JSON documents with a sliding TTL.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSessionStore creates a Redis session store with the default prefix and TTL.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithOptions(client, SessionStoreOptions{})
}

// NewSessionStoreWithOptions creates a Redis session store with a custom key prefix and TTL.
func NewSessionStoreWithOptions(client redis.UniversalClient, opts SessionStoreOptions) *SessionStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "dashboard:session:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

// Save writes the session and resets its TTL.
// A session without a refresh token cannot be resumed, so it is only kept until its ID token expires.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.PersistedSession) error {
	if sess.Key == "" {
		return errors.New("session key cannot be empty")
	}

	ttl := s.ttl
	if sess.RefreshToken == "" {
		ttl = time.Until(sess.ExpiresAt)
		if ttl <= 0 {
			return errors.New("session is expired")
		}
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+sess.Key, data, ttl).Err()
}

// Get loads the session stored under key. Missing keys return ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, key string) (domainauth.PersistedSession, error) {
	if key == "" {
		return domainauth.PersistedSession{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.PersistedSession{}, ErrNotFound
		}
		return domainauth.PersistedSession{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.PersistedSession
	if unmarshalErr := json.Unmarshal(data, &sess); unmarshalErr != nil {
		return domainauth.PersistedSession{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	if sess.RefreshToken == "" && sess.Expired(time.Now()) {
		if deleteErr := s.Delete(ctx, key); deleteErr != nil {
			return domainauth.PersistedSession{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.PersistedSession{}, ErrNotFound
	}
	return sess, nil
}

// Delete removes the session; deleting a missing key is not an error.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}

type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

// ErrNotFound is returned when a session is not found.
var ErrNotFound error = notFoundError{}
