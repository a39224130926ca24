package oidc

// Package oidc drives the federated (authorization code + PKCE) sign-in flow against an
// OpenID provider such as Google and hands back the verified ID token as a credential.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

// DefaultScope is requested when ProviderConfig.Scope is empty.
const DefaultScope = "openid email profile"

// Provider implements ports.FederatedProvider using go-oidc and oauth2.
type Provider struct {
	config     *oauth2.Config
	providerID string
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	// ProviderID names the sign-in method the credential belongs to; defaults to google.com.
	ProviderID string
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a new OIDC provider. Discovery is fetched once here.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	providerID := config.ProviderID
	if providerID == "" {
		providerID = domainauth.MethodGoogle
	}
	scope := config.Scope
	if strings.TrimSpace(scope) == "" {
		scope = DefaultScope
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscoveryURL(config.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		providerID:   providerID,
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

func issuerFromDiscoveryURL(u string) string {
	issuer := strings.TrimSuffix(u, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, ".well-known/openid-configuration")
}

// Begin starts the flow. The redirect URL from the input overrides the configured one so a
// loopback listener on an ephemeral port can receive the callback.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (ports.BeginOutput, error) {
	redirect := in.RedirectURL
	if redirect == "" {
		redirect = p.config.RedirectURL
	}
	if redirect == "" {
		return ports.BeginOutput{}, errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return ports.BeginOutput{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return ports.BeginOutput{}, fmt.Errorf("generate nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("redirect_uri", redirect),
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.S256ChallengeOption(verifier),
	)

	return ports.BeginOutput{
		AuthURL:     authURL,
		State:       state,
		Nonce:       nonce,
		Verifier:    verifier,
		RedirectURL: redirect,
	}, nil
}

// Exchange redeems the code, verifies the ID token signature, audience and nonce, and
// returns the credential to present to the identity provider.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.FederatedCredential, error) {
	if in.Code == "" {
		return domainauth.FederatedCredential{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.FederatedCredential{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.FederatedCredential{}, errors.New("nonce is required")
	}

	opts := []oauth2.AuthCodeOption{}
	if in.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(in.Verifier))
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", in.RedirectURL))
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code, opts...)
	if err != nil {
		return domainauth.FederatedCredential{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return domainauth.FederatedCredential{}, fmt.Errorf("extract id_token: %w", err)
	}
	claims, err := p.verify(ctx, rawID, in.Nonce)
	if err != nil {
		return domainauth.FederatedCredential{}, err
	}
	if claims.Email == "" {
		return domainauth.FederatedCredential{}, errors.New("id_token has no email claim")
	}

	return domainauth.FederatedCredential{
		ProviderID:  p.providerID,
		IDToken:     rawID,
		AccessToken: token.AccessToken,
		Nonce:       in.Nonce,
	}, nil
}

// idTokenClaims are the standard OpenID claims the flow relies on.
type idTokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

func (p *Provider) verify(ctx context.Context, rawID, expectedNonce string) (idTokenClaims, error) {
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return idTokenClaims{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return idTokenClaims{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return idTokenClaims{}, errors.New("invalid nonce")
	}
	return claims, nil
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
