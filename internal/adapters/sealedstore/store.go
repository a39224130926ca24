// Package sealedstore encrypts the tokens of persisted sessions before they reach
// the underlying store. Profile fields stay readable so stores remain inspectable.
package sealedstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicetouch/dashboard/internal/cryptoutil"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

// Store wraps a ports.SessionStore and seals IDToken and RefreshToken.
type Store struct {
	inner ports.SessionStore
	enc   cryptoutil.Encryptor
}

var _ ports.SessionStore = (*Store)(nil)

// New returns a Store sealing tokens with enc before delegating to inner.
func New(inner ports.SessionStore, enc cryptoutil.Encryptor) (*Store, error) {
	if inner == nil {
		return nil, errors.New("sealed session store requires an inner store")
	}
	if enc == nil {
		return nil, errors.New("sealed session store requires an encryptor")
	}
	return &Store{inner: inner, enc: enc}, nil
}

// Save seals the tokens, binding each to the session key and field name.
func (s *Store) Save(ctx context.Context, sess domainauth.PersistedSession) error {
	var err error
	if sess.IDToken, err = s.seal(sess.Key, "id_token", sess.IDToken); err != nil {
		return err
	}
	if sess.RefreshToken, err = s.seal(sess.Key, "refresh_token", sess.RefreshToken); err != nil {
		return err
	}
	return s.inner.Save(ctx, sess)
}

// Get opens the tokens. A session sealed under another key fails to open and is
// reported as an error, which providers treat as signed out.
func (s *Store) Get(ctx context.Context, key string) (domainauth.PersistedSession, error) {
	sess, err := s.inner.Get(ctx, key)
	if err != nil {
		return domainauth.PersistedSession{}, err
	}
	if sess.IDToken, err = s.open(key, "id_token", sess.IDToken); err != nil {
		return domainauth.PersistedSession{}, err
	}
	if sess.RefreshToken, err = s.open(key, "refresh_token", sess.RefreshToken); err != nil {
		return domainauth.PersistedSession{}, err
	}
	return sess, nil
}

// Delete delegates to the inner store.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Store) seal(key, field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	out, err := s.enc.Seal([]byte(value), associatedData(key, field))
	if err != nil {
		return "", fmt.Errorf("seal %s: %w", field, err)
	}
	return out, nil
}

func (s *Store) open(key, field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	out, err := s.enc.Open(value, associatedData(key, field))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	return string(out), nil
}

func associatedData(key, field string) []byte {
	return []byte(key + "\x00" + field)
}
