package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nicetouch/dashboard/internal/domain/billing"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/mocks"
	fakes "github.com/nicetouch/dashboard/internal/mocks/auth"
)

func newBillingHarness(t *testing.T) (*BillingService, *mocks.MockBillingBackend, *fakes.FakeIdentityProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBillingBackend(ctrl)
	sm, provider := newStartedSessionManager(t)

	svc, err := NewBillingService(BillingServiceOptions{Sessions: sm, Backend: backend, Logger: discardLogger()})
	require.NoError(t, err)
	provider.Emit(fakes.StaticIdentity("u1", "a@x.com"))
	return svc, backend, provider
}

func TestBillingService_Overview(t *testing.T) {
	svc, backend, _ := newBillingHarness(t)

	backend.EXPECT().SubscriptionTier(gomock.Any(), gomock.Any()).Return(billing.TierPro, nil).Times(1)
	backend.EXPECT().Subscription(gomock.Any(), gomock.Any()).
		Return(&billing.Subscription{ID: "sub_1", Status: "active", Tier: billing.TierPro}, nil).
		Times(1)
	backend.EXPECT().Customer(gomock.Any(), gomock.Any()).
		Return(&billing.Customer{ID: "cus_1", Email: "a@x.com"}, nil).
		Times(1)

	out, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, billing.TierPro, out.Tier)
	require.NotNil(t, out.Subscription)
	assert.Equal(t, "sub_1", out.Subscription.ID)
	require.NotNil(t, out.Customer)
	assert.Equal(t, "cus_1", out.Customer.ID)
}

func TestBillingService_OverviewFailure(t *testing.T) {
	svc, backend, _ := newBillingHarness(t)

	backend.EXPECT().SubscriptionTier(gomock.Any(), gomock.Any()).Return(billing.Tier(""), errors.New("boom")).Times(1)
	backend.EXPECT().Subscription(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	backend.EXPECT().Customer(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := svc.Overview(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendUnavailable(err))
}

func TestBillingService_PortalURL(t *testing.T) {
	svc, backend, _ := newBillingHarness(t)

	backend.EXPECT().CreatePortalSession(gomock.Any(), gomock.Any(), "https://app/account").
		Return(billing.SessionURL{URL: "https://billing/portal/1"}, nil).
		Times(1)

	url, err := svc.PortalURL(context.Background(), "https://app/account")
	require.NoError(t, err)
	assert.Equal(t, "https://billing/portal/1", url)
}

func TestBillingService_CheckoutURL(t *testing.T) {
	svc, backend, _ := newBillingHarness(t)

	_, err := svc.CheckoutURL(context.Background(), billing.CheckoutRequest{})
	assert.True(t, apperrors.IsValidation(err))

	backend.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any(), billing.CheckoutRequest{PriceID: "price_1"}).
		Return(billing.SessionURL{}, nil).
		Times(1)
	_, err = svc.CheckoutURL(context.Background(), billing.CheckoutRequest{PriceID: " price_1 "})
	assert.True(t, apperrors.IsBackendUnavailable(err))
}

func TestBillingService_RequiresIdentity(t *testing.T) {
	svc, _, provider := newBillingHarness(t)
	provider.Emit(nil)

	_, err := svc.PortalURL(context.Background(), "")
	require.ErrorIs(t, err, ErrNoIdentity)
}
