package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/mocks"
)

var errNetwork = apperrors.New(apperrors.ErrCodeNetworkUnavailable, "network down")

func testIdentity() domainauth.Identity {
	return domainauth.Identity{ID: "u1", Email: "a@x.com"}
}

func newDefaultChain(t *testing.T, backend *mocks.MockProfileBackend) *ReconcileChain {
	t.Helper()
	chain, err := NewReconcileChain(ReconcileChainOptions{
		Strategies: DefaultStrategies(backend),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	return chain
}

func TestReconcileChain_SyncSuccessShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockProfileBackend(ctrl)

	backend.EXPECT().Sync(gomock.Any(), testIdentity()).
		Return(profile.Record{UserID: "u1", Email: "a@x.com", DisplayName: "Ann"}, nil).
		Times(1)
	backend.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

	res, err := newDefaultChain(t, backend).Run(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, StrategySync, res.Strategy)
	assert.Equal(t, profile.ProvenanceSynced, res.Record.Provenance)
	assert.Equal(t, "Ann", res.Record.DisplayName)
	assert.Len(t, res.Attempts, 1)
	assert.NoError(t, res.Failures())
}

func TestReconcileChain_SyncFailsFetchSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockProfileBackend(ctrl)

	gomock.InOrder(
		backend.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(profile.Record{}, errNetwork).Times(1),
		backend.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(profile.Record{DisplayName: "Ann"}, nil).
			Times(1),
	)

	res, err := newDefaultChain(t, backend).Run(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, StrategyFetch, res.Strategy)
	assert.Equal(t, profile.Record{
		UserID:      "u1",
		Email:       "a@x.com",
		DisplayName: "Ann",
		Provenance:  profile.ProvenanceSynced,
	}, res.Record)
	require.Len(t, res.Attempts, 2)
	assert.ErrorIs(t, res.Attempts[0].Err, errNetwork)
}

func TestReconcileChain_BothFailUsesLocalFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockProfileBackend(ctrl)

	backend.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(profile.Record{}, errNetwork).Times(1)
	backend.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(profile.Record{}, apperrors.NotFound("no profile")).
		Times(1)

	res, err := newDefaultChain(t, backend).Run(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, StrategyLocalFallback, res.Strategy)
	assert.Equal(t, "a@x.com", res.Record.Email)
	assert.Empty(t, res.Record.DisplayName)
	assert.Equal(t, profile.ProvenanceLocalFallback, res.Record.Provenance)
	assert.False(t, res.Record.IsAuthoritative())

	failures := res.Failures()
	require.Error(t, failures)
	assert.True(t, apperrors.IsNotFound(failures))
	assert.True(t, apperrors.IsNetworkUnavailable(failures))
}

func TestReconcileChain_EmptySyncPayloadFallsThroughToFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockProfileBackend(ctrl)

	backend.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(profile.Record{}, nil).Times(1)
	backend.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(profile.Record{UserID: "u1", Email: "a@x.com", DisplayName: "Ann"}, nil).
		Times(1)

	res, err := newDefaultChain(t, backend).Run(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, StrategyFetch, res.Strategy)
	assert.ErrorIs(t, res.Attempts[0].Err, ErrEmptySyncPayload)
}

func TestReconcileChain_SparseSyncPayloadIsAdopted(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockProfileBackend(ctrl)

	backend.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(profile.Record{DisplayName: "Ann"}, nil).Times(1)
	backend.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

	res, err := newDefaultChain(t, backend).Run(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, StrategySync, res.Strategy)
	assert.Equal(t, profile.Record{
		UserID:      "u1",
		Email:       "a@x.com",
		DisplayName: "Ann",
		Provenance:  profile.ProvenanceSynced,
	}, res.Record)
}

type failingStrategy struct{ name string }

func (f failingStrategy) Name() string { return f.name }

func (f failingStrategy) Resolve(context.Context, domainauth.Identity) (profile.Record, error) {
	return profile.Record{}, errors.New(f.name + " failed")
}

func TestReconcileChain_AllStrategiesFailIsInternal(t *testing.T) {
	chain, err := NewReconcileChain(ReconcileChainOptions{
		Strategies: []ReconcileStrategy{failingStrategy{"a"}, failingStrategy{"b"}},
	})
	require.NoError(t, err)

	res, err := chain.Run(context.Background(), testIdentity())
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
	assert.Len(t, res.Attempts, 2)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
}

func TestNewReconcileChain_Validation(t *testing.T) {
	_, err := NewReconcileChain(ReconcileChainOptions{})
	require.Error(t, err)

	_, err = NewReconcileChain(ReconcileChainOptions{Strategies: []ReconcileStrategy{nil}})
	require.Error(t, err)
}

func TestReconcileChain_Names(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := newDefaultChain(t, mocks.NewMockProfileBackend(ctrl))
	assert.Equal(t, []string{StrategySync, StrategyFetch, StrategyLocalFallback}, chain.Names())
}
