package ports

import (
	"context"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/billing"
)

// BillingBackend is the request/response contract of the billing API.
type BillingBackend interface {
	SubscriptionTier(ctx context.Context, id domainauth.Identity) (billing.Tier, error)
	Subscription(ctx context.Context, id domainauth.Identity) (*billing.Subscription, error)
	Customer(ctx context.Context, id domainauth.Identity) (*billing.Customer, error)
	CreatePortalSession(ctx context.Context, id domainauth.Identity, returnURL string) (billing.SessionURL, error)
	CreateCheckoutSession(ctx context.Context, id domainauth.Identity, req billing.CheckoutRequest) (billing.SessionURL, error)
}
