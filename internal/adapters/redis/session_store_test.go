package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/testutil"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func testSession(key string) domainauth.PersistedSession {
	return domainauth.PersistedSession{
		Key:           key,
		UserID:        "user-123",
		Email:         "user@example.com",
		EmailVerified: true,
		DisplayName:   "Ann",
		Providers:     []string{domainauth.MethodPassword},
		IDToken:       "id-token",
		RefreshToken:  "refresh-token",
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	sess := testSession("save-get")
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "save-get")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Email, got.Email)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, sess.Providers, got.Providers)
	assert.Equal(t, sess.RefreshToken, got.RefreshToken)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	ttl := client.TTL(ctx, "dashboard:session:save-get").Val()
	assert.Greater(t, ttl, time.Hour)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	_, err := NewSessionStore(client).Get(context.Background(), "missing")
	assert.Equal(t, ErrNotFound, err)
}

func TestSessionStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("delete-me")))
	require.NoError(t, store.Delete(ctx, "delete-me"))

	_, err := store.Get(ctx, "delete-me")
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_WithoutRefreshTokenExpiresWithIDToken(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	sess := testSession("short")
	sess.RefreshToken = ""
	sess.ExpiresAt = time.Now().Add(100 * time.Millisecond)
	require.NoError(t, store.Save(ctx, sess))

	time.Sleep(200 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.Equal(t, ErrNotFound, err)
}

func TestSessionStore_ExpiredIDTokenWithRefreshTokenIsKept(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	sess := testSession("refreshable")
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "refreshable")
	require.NoError(t, err)
	assert.True(t, got.Expired(time.Now()))
	assert.Equal(t, "refresh-token", got.RefreshToken)
}

func TestSessionStore_CustomPrefixAndTTL(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStoreWithOptions(client, SessionStoreOptions{Prefix: "test-prefix:", TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("prefixed")))
	assert.Equal(t, int64(1), client.Exists(ctx, "test-prefix:prefixed").Val())
	assert.LessOrEqual(t, client.TTL(ctx, "test-prefix:prefixed").Val(), time.Minute)
}

func TestSessionStore_Validation(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	err := store.Save(ctx, testSession(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session key cannot be empty")

	expired := testSession("expired")
	expired.RefreshToken = ""
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	err = store.Save(ctx, expired)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session is expired")

	_, err = store.Get(ctx, "")
	assert.Equal(t, ErrNotFound, err)
}
