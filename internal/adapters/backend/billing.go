package backend

import (
	"context"
	"net/http"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/billing"
)

// SubscriptionTier returns the user's tier; a missing tier is the free tier.
func (c *Client) SubscriptionTier(ctx context.Context, id domainauth.Identity) (billing.Tier, error) {
	doc, err := c.do(ctx, id, http.MethodGet, c.userPath+"/subscription-tier", nil)
	if err != nil {
		return "", err
	}
	v, err := search("data.tier", doc)
	if err != nil {
		return "", err
	}
	tier, _ := v.(string)
	if tier == "" {
		return billing.TierFree, nil
	}
	return billing.Tier(tier), nil
}

type subscriptionWire struct {
	ID                string       `json:"id"`
	Status            string       `json:"status"`
	Tier              billing.Tier `json:"tier"`
	PriceID           string       `json:"priceId"`
	CurrentPeriodEnd  any          `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool         `json:"cancelAtPeriodEnd"`
}

// Subscription returns the subscription details, or nil when the user has none.
func (c *Client) Subscription(ctx context.Context, id domainauth.Identity) (*billing.Subscription, error) {
	doc, err := c.do(ctx, id, http.MethodGet, "/billing/subscription", nil)
	if err != nil {
		return nil, err
	}
	v, err := search("data.subscription", doc)
	if err != nil || v == nil {
		return nil, err
	}
	var wire subscriptionWire
	if err := decode(v, &wire); err != nil {
		return nil, err
	}
	return &billing.Subscription{
		ID:                wire.ID,
		Status:            wire.Status,
		Tier:              wire.Tier,
		PriceID:           wire.PriceID,
		CurrentPeriodEnd:  parseTimestamp(wire.CurrentPeriodEnd),
		CancelAtPeriodEnd: wire.CancelAtPeriodEnd,
	}, nil
}

// Customer returns the billing customer, or nil when none exists yet.
func (c *Client) Customer(ctx context.Context, id domainauth.Identity) (*billing.Customer, error) {
	doc, err := c.do(ctx, id, http.MethodGet, "/billing/customer", nil)
	if err != nil {
		return nil, err
	}
	v, err := search("data.customer", doc)
	if err != nil || v == nil {
		return nil, err
	}
	var cust billing.Customer
	if err := decode(v, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

// CreatePortalSession returns the hosted billing portal URL.
func (c *Client) CreatePortalSession(ctx context.Context, id domainauth.Identity, returnURL string) (billing.SessionURL, error) {
	var body any
	if returnURL != "" {
		body = map[string]string{"returnUrl": returnURL}
	}
	return c.sessionURL(ctx, id, "/billing/create-portal-session", body)
}

// CreateCheckoutSession returns the hosted checkout URL for req.PriceID.
func (c *Client) CreateCheckoutSession(ctx context.Context, id domainauth.Identity, req billing.CheckoutRequest) (billing.SessionURL, error) {
	return c.sessionURL(ctx, id, "/billing/create-checkout-session", req)
}

func (c *Client) sessionURL(ctx context.Context, id domainauth.Identity, path string, body any) (billing.SessionURL, error) {
	doc, err := c.do(ctx, id, http.MethodPost, path, body)
	if err != nil {
		return billing.SessionURL{}, err
	}
	v, err := search("data.url", doc)
	if err != nil {
		return billing.SessionURL{}, err
	}
	url, _ := v.(string)
	return billing.SessionURL{URL: url}, nil
}

// parseTimestamp accepts RFC 3339 strings and unix timestamps in seconds or milliseconds.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC()
		}
		if t > 0 {
			return time.Unix(int64(t), 0).UTC()
		}
	}
	return time.Time{}
}
