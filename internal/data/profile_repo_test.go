package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/billing"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	fakes "github.com/nicetouch/dashboard/internal/mocks/auth"
	"github.com/nicetouch/dashboard/internal/testutil"
)

func newProfileRepo(t *testing.T) (*ProfileRepo, *FixedTimeProvider) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clock := NewFixedTimeProvider(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewProfileRepoWithTimeProvider(db, clock), clock
}

func TestProfileRepo_GetMissing(t *testing.T) {
	repo, _ := newProfileRepo(t)

	_, err := repo.Get(context.Background(), *fakes.StaticIdentity("u1", "a@x.com"))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, IsProfileNotFound(err))
}

func TestProfileRepo_SyncUpserts(t *testing.T) {
	repo, clock := newProfileRepo(t)
	ctx := context.Background()

	id := fakes.StaticIdentity("u1", "a@x.com")
	id.DisplayName = "Ann"
	rec, err := repo.Sync(ctx, *id)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "Ann", rec.DisplayName)
	assert.Equal(t, "free", rec.Extra[profile.ExtraSubscriptionTier])
	assert.Equal(t, clock.Now(), rec.UpdatedAt)

	clock.Advance(time.Hour)
	id.DisplayName = ""
	id.Email = "ann@x.com"
	id.EmailVerified = true
	rec, err = repo.Sync(ctx, *id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", rec.DisplayName, "empty provider name keeps the stored one")
	assert.Equal(t, "ann@x.com", rec.Email)
	assert.True(t, rec.EmailVerified)
	assert.Equal(t, clock.Now(), rec.UpdatedAt)

	got, err := repo.Get(ctx, *id)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestProfileRepo_SyncEmailConflict(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()

	_, err := repo.Sync(ctx, *fakes.StaticIdentity("u1", "a@x.com"))
	require.NoError(t, err)

	_, err = repo.Sync(ctx, *fakes.StaticIdentity("u2", "A@x.com"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
}

func TestProfileRepo_Update(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()
	id := *fakes.StaticIdentity("u1", "a@x.com")

	name := "Bo"
	_, err := repo.Update(ctx, id, profile.Update{DisplayName: &name})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.Sync(ctx, id)
	require.NoError(t, err)

	rec, err := repo.Update(ctx, id, profile.Update{
		DisplayName: &name,
		Preferences: map[string]any{"theme": "dark", "digest": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bo", rec.DisplayName)
	assert.Equal(t, map[string]any{"theme": "dark", "digest": true}, rec.Extra[profile.ExtraPreferences])

	rec, err = repo.Update(ctx, id, profile.Update{Preferences: map[string]any{"digest": nil, "lang": "en"}})
	require.NoError(t, err)
	assert.Equal(t, "Bo", rec.DisplayName)
	assert.Equal(t, map[string]any{"theme": "dark", "lang": "en"}, rec.Extra[profile.ExtraPreferences])
}

func TestProfileRepo_SubscriptionTier(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()
	id := *fakes.StaticIdentity("u1", "a@x.com")

	_, err := repo.Sync(ctx, id)
	require.NoError(t, err)
	_, err = repo.DB.ExecContext(ctx, `UPDATE profiles SET subscription_tier = 'pro' WHERE user_id = $1`, id.ID)
	require.NoError(t, err)

	tier, err := repo.SubscriptionTier(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, billing.TierPro, tier)
}

func TestProfileRepo_RequiresLiveSession(t *testing.T) {
	repo := NewProfileRepo(nil)

	id := domainauth.Identity{ID: "u1", Tokens: domainauth.TokenSourceFunc(func(context.Context) (string, error) {
		return "", &apperrors.ProviderError{Code: "TOKEN_EXPIRED"}
	})}
	_, err := repo.Get(context.Background(), id)
	assert.True(t, apperrors.IsReauthRequired(err))

	_, err = repo.Sync(context.Background(), domainauth.Identity{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestMergePreferences(t *testing.T) {
	current := map[string]any{"a": 1, "b": 2}
	out := mergePreferences(current, map[string]any{"b": nil, "c": 3})
	assert.Equal(t, map[string]any{"a": 1, "c": 3}, out)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, current)
	assert.Empty(t, mergePreferences(nil, nil))
}
