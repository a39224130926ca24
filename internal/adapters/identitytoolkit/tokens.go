package identitytoolkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// refreshSkew refreshes ID tokens slightly before they expire.
const refreshSkew = time.Minute

// tokenClaims are the ID token claims the provider reads.
type tokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

// tokenSet is the credential material of a signed-in user.
type tokenSet struct {
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

func tokensFromAuth(resp authResponse, now time.Time) tokenSet {
	return tokenSet{
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    now.Add(parseExpiresIn(resp.ExpiresIn)),
	}
}

// parseExpiresIn reads the seconds-as-string lifetime; one hour when missing.
func parseExpiresIn(s string) time.Duration {
	secs, err := strconv.Atoi(s)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// verifyToken checks signature, issuer, audience and expiry of an ID token.
func (p *Provider) verifyToken(ctx context.Context, raw string) (tokenClaims, error) {
	idTok, err := p.verifier.Verify(gooidc.ClientContext(ctx, p.httpClient), raw)
	if err != nil {
		return tokenClaims{}, fmt.Errorf("verify id token: %w", err)
	}
	var claims tokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return tokenClaims{}, fmt.Errorf("parse id token claims: %w", claimsErr)
	}
	if claims.Subject == "" {
		return tokenClaims{}, errors.New("id token has no subject")
	}
	return claims, nil
}

// refresh exchanges a refresh token at the secure-token endpoint.
func (p *Provider) refresh(ctx context.Context, refreshToken string) (tokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return tokenSet{}, providerError(retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return tokenSet{}, err
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		idToken = tok.AccessToken
	}
	next := tokenSet{
		idToken:      idToken,
		refreshToken: tok.RefreshToken,
		expiresAt:    tok.Expiry,
	}
	if next.refreshToken == "" {
		next.refreshToken = refreshToken
	}
	if next.expiresAt.IsZero() {
		next.expiresAt = p.now().Add(time.Hour)
	}
	return next, nil
}
