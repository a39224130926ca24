package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

func newStore(t *testing.T) (*SessionStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sessions")
	s, err := NewSessionStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestSessionStore_RoundTrip(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	sess := domainauth.PersistedSession{
		Key:          "identitytoolkit",
		UserID:       "u1",
		Email:        "a@x.com",
		Providers:    []string{"password"},
		IDToken:      "id",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(-time.Minute).UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Save(ctx, sess))

	info, err := os.Stat(filepath.Join(dir, "identitytoolkit.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := s.Get(ctx, "identitytoolkit")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, s.Delete(ctx, "identitytoolkit"))
	_, err = s.Get(ctx, "identitytoolkit")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(ctx, "identitytoolkit"))
}

func TestSessionStore_ExpiredWithoutRefreshToken(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	err := s.Save(ctx, domainauth.PersistedSession{Key: "dev", ExpiresAt: now.Add(-time.Second)})
	require.Error(t, err)

	require.NoError(t, s.Save(ctx, domainauth.PersistedSession{Key: "dev", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))
	_, err = s.Get(ctx, "dev")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Get(ctx, "dev")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_InvalidKeys(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.Save(ctx, domainauth.PersistedSession{Key: "../escape", RefreshToken: "r"})
	require.Error(t, err)
	require.Error(t, s.Save(ctx, domainauth.PersistedSession{RefreshToken: "r"}))

	_, err = s.Get(ctx, "../escape")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, ""))
}

func TestSessionStore_CorruptFile(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o600))

	_, err := s.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewSessionStore_RequiresDir(t *testing.T) {
	_, err := NewSessionStore("")
	require.Error(t, err)
}
