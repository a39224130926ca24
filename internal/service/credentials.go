package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/observability/metrics"
	"github.com/nicetouch/dashboard/internal/observability/statsd"
	"github.com/nicetouch/dashboard/internal/ports"
)

// CredentialLinkerOptions groups dependencies for CredentialLinker.
type CredentialLinkerOptions struct {
	Sessions IdentitySource
	Provider ports.IdentityProvider
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// CredentialLinker manages the sign-in methods of the current identity's account.
// Provider errors are normalized and surfaced without retry.
type CredentialLinker struct {
	sessions IdentitySource
	provider ports.IdentityProvider
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewCredentialLinker constructs a CredentialLinker.
func NewCredentialLinker(opts CredentialLinkerOptions) (*CredentialLinker, error) {
	if opts.Sessions == nil {
		return nil, errors.New("Sessions is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("Provider is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialLinker{
		sessions: opts.Sessions,
		provider: opts.Provider,
		logger:   logger.With("component", "credential_linker"),
		metrics:  opts.Metrics,
	}, nil
}

// ListSignInMethods returns the methods registered for email. The result is never cached.
func (c *CredentialLinker) ListSignInMethods(ctx context.Context, email string) (domainauth.SignInMethods, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}

	methods, err := c.provider.ListSignInMethods(ctx, email)
	if err != nil {
		err = apperrors.NormalizeProvider(err)
		c.logger.WarnContext(ctx, "list sign-in methods failed",
			"code", apperrors.GetCode(err),
			"error", err)
		return nil, err
	}
	return domainauth.NewSignInMethods(methods...), nil
}

// CanLinkPassword reports whether a password can be attached to the current identity's account.
func (c *CredentialLinker) CanLinkPassword(ctx context.Context) (bool, error) {
	id, _, err := currentIdentity(ctx, c.sessions)
	if err != nil {
		return false, err
	}
	methods, err := c.ListSignInMethods(ctx, id.Email)
	if err != nil {
		return false, err
	}
	return methods.CanLinkPassword(), nil
}

// LinkPasswordCredential attaches an email/password credential to the account of identity.
// The method set is refreshed first; the link is refused without calling the provider when
// a password already exists or no federated method does.
func (c *CredentialLinker) LinkPasswordCredential(ctx context.Context, identity domainauth.Identity, email, password string) error {
	start := time.Now()
	err := c.linkPassword(ctx, identity, email, password)
	metrics.EmitOperation(c.metrics, metrics.OperationMetric{
		Component: "credentials",
		Operation: "link_password",
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "link password credential failed",
			"user_id", identity.ID,
			"code", apperrors.GetCode(err),
			"error", err)
		return err
	}
	c.logger.InfoContext(ctx, "password credential linked", "user_id", identity.ID)
	return nil
}

func (c *CredentialLinker) linkPassword(ctx context.Context, identity domainauth.Identity, email, password string) error {
	if password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		email = identity.Email
	}

	current, _, err := currentIdentity(ctx, c.sessions)
	if err != nil {
		return err
	}
	if current.ID != identity.ID {
		return apperrors.New(apperrors.ErrCodeReauthRequired, "Please sign in again before linking a password")
	}

	methods, err := c.ListSignInMethods(ctx, email)
	if err != nil {
		return err
	}
	if methods.Has(domainauth.MethodPassword) {
		return apperrors.New(apperrors.ErrCodeAlreadyLinked, "This account already has a password")
	}
	if !methods.HasFederated() {
		return apperrors.Validation("Account has no federated sign-in method to link a password to")
	}

	cred := domainauth.NewPasswordCredential(email, password)
	return apperrors.NormalizeProvider(c.provider.LinkCredential(ctx, identity, cred))
}

// ChangePassword sets a new password for the current identity.
func (c *CredentialLinker) ChangePassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	return c.withCurrent(ctx, "change_password", func(ctx context.Context, id domainauth.Identity) error {
		return c.provider.ChangePassword(ctx, id, newPassword)
	})
}

// SendVerificationEmail asks the provider to email a verification link to the current identity.
func (c *CredentialLinker) SendVerificationEmail(ctx context.Context) error {
	return c.withCurrent(ctx, "send_verification", c.provider.SendVerificationEmail)
}

func (c *CredentialLinker) withCurrent(ctx context.Context, op string, fn func(context.Context, domainauth.Identity) error) error {
	id, _, err := currentIdentity(ctx, c.sessions)
	if err != nil {
		return err
	}

	start := time.Now()
	err = apperrors.NormalizeProvider(fn(ctx, id))
	metrics.EmitOperation(c.metrics, metrics.OperationMetric{
		Component: "credentials",
		Operation: op,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "credential operation failed",
			"operation", op,
			"user_id", id.ID,
			"code", apperrors.GetCode(err),
			"error", err)
		return err
	}
	return nil
}
