package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nicetouch/dashboard/internal/domain/billing"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/ports"
)

// BillingServiceOptions groups dependencies for BillingService.
type BillingServiceOptions struct {
	Sessions IdentitySource
	Backend  ports.BillingBackend
	Logger   *slog.Logger
}

// BillingService exposes the billing backend for the current identity.
type BillingService struct {
	sessions IdentitySource
	backend  ports.BillingBackend
	logger   *slog.Logger
}

// NewBillingService constructs a BillingService.
func NewBillingService(opts BillingServiceOptions) (*BillingService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("Sessions is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("Backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingService{
		sessions: opts.Sessions,
		backend:  opts.Backend,
		logger:   logger.With("component", "billing_service"),
	}, nil
}

// Overview fetches tier, subscription and customer concurrently.
func (b *BillingService) Overview(ctx context.Context) (billing.Overview, error) {
	id, _, err := currentIdentity(ctx, b.sessions)
	if err != nil {
		return billing.Overview{}, err
	}

	var out billing.Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tier, err := b.backend.SubscriptionTier(gctx, id)
		if err != nil {
			return err
		}
		out.Tier = tier
		return nil
	})
	g.Go(func() error {
		sub, err := b.backend.Subscription(gctx, id)
		if err != nil {
			return err
		}
		out.Subscription = sub
		return nil
	})
	g.Go(func() error {
		cust, err := b.backend.Customer(gctx, id)
		if err != nil {
			return err
		}
		out.Customer = cust
		return nil
	})

	if err := g.Wait(); err != nil {
		err = backendError(err)
		b.logger.WarnContext(ctx, "billing overview failed", "user_id", id.ID, "error", err)
		return billing.Overview{}, err
	}
	return out, nil
}

// PortalURL returns the hosted billing portal URL.
func (b *BillingService) PortalURL(ctx context.Context, returnURL string) (string, error) {
	id, _, err := currentIdentity(ctx, b.sessions)
	if err != nil {
		return "", err
	}
	sess, err := b.backend.CreatePortalSession(ctx, id, returnURL)
	if err != nil {
		return "", backendError(err)
	}
	if sess.URL == "" {
		return "", apperrors.BackendUnavailable(nil, "Billing backend returned no portal URL")
	}
	return sess.URL, nil
}

// CheckoutURL returns a hosted checkout URL for priceID.
func (b *BillingService) CheckoutURL(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	req.PriceID = strings.TrimSpace(req.PriceID)
	if req.PriceID == "" {
		return "", apperrors.ValidationField("priceId", "price id is required")
	}
	id, _, err := currentIdentity(ctx, b.sessions)
	if err != nil {
		return "", err
	}
	sess, err := b.backend.CreateCheckoutSession(ctx, id, req)
	if err != nil {
		return "", backendError(err)
	}
	if sess.URL == "" {
		return "", apperrors.BackendUnavailable(nil, "Billing backend returned no checkout URL")
	}
	return sess.URL, nil
}
