// Package billing contains the request/response shapes of the billing backend.
package billing

import "time"

// Tier is a subscription tier identifier as reported by the backend.
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// DisplayName returns the human-readable tier name.
func (t Tier) DisplayName() string {
	switch t {
	case TierFree, "":
		return "Free"
	case TierStarter:
		return "Starter"
	case TierPro:
		return "Pro"
	case TierEnterprise:
		return "Enterprise"
	default:
		return string(t)
	}
}

// IsPaid reports whether the tier is a paid plan.
func (t Tier) IsPaid() bool { return t != "" && t != TierFree }

// Subscription describes the user's current subscription.
type Subscription struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	Tier              Tier      `json:"tier"`
	PriceID           string    `json:"priceId,omitempty"`
	CurrentPeriodEnd  time.Time `json:"currentPeriodEnd,omitzero"`
	CancelAtPeriodEnd bool      `json:"cancelAtPeriodEnd"`
}

// Customer is the billing customer record.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SessionURL is a redirect URL to a hosted billing page.
type SessionURL struct {
	URL string `json:"url"`
}

// CheckoutRequest starts a hosted checkout for a price.
type CheckoutRequest struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// Overview aggregates the billing views shown on the account page.
type Overview struct {
	Tier         Tier
	Subscription *Subscription
	Customer     *Customer
}
