// Package mocks provides mock implementations for testing the dashboard services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	backend := mocks.NewMockProfileBackend(ctrl)
//	backend.EXPECT().Sync(gomock.Any(), gomock.Any()).Return(rec, nil).Times(1)
package mocks

// Generate mock for IdentityProvider interface from internal/ports package.
// This creates MockIdentityProvider with methods for all IdentityProvider interface methods:
// Subscribe, SignInWithCredentials, SignUp, SignInWithFederated, SignOut, ChangePassword,
// SendVerificationEmail, ListSignInMethods, LinkCredential
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/nicetouch/dashboard/internal/ports IdentityProvider

// Generate mock for ProfileBackend interface from internal/ports package.
// This creates MockProfileBackend with methods for all ProfileBackend interface methods:
// Get, Sync, Update
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_backend_mock.go github.com/nicetouch/dashboard/internal/ports ProfileBackend

// Generate mock for BillingBackend interface from internal/ports package.
// This creates MockBillingBackend with methods for all BillingBackend interface methods:
// SubscriptionTier, Subscription, Customer, CreatePortalSession, CreateCheckoutSession
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=billing_backend_mock.go github.com/nicetouch/dashboard/internal/ports BillingBackend
