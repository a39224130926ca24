// Package oidctest runs an in-process OpenID issuer for adapter tests. It serves discovery,
// a JWKS document and a token endpoint, and signs ID tokens with a throwaway RSA key.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const keyID = "oidctest-key"

// Issuer is a minimal OpenID Connect issuer backed by httptest.
type Issuer struct {
	Server *httptest.Server

	key *rsa.PrivateKey

	mu        sync.Mutex
	codes     map[string]jwt.MapClaims
	verifiers map[string]string
}

// New starts an issuer that is shut down when the test ends.
func New(t testing.TB) *Issuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	iss := &Issuer{
		key:       key,
		codes:     make(map[string]jwt.MapClaims),
		verifiers: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", iss.discovery)
	mux.HandleFunc("GET /jwks", iss.jwks)
	mux.HandleFunc("POST /token", iss.token)
	iss.Server = httptest.NewServer(mux)
	t.Cleanup(iss.Server.Close)
	return iss
}

// URL is the issuer identifier.
func (i *Issuer) URL() string { return i.Server.URL }

// JWKSURL is where the signing key is published.
func (i *Issuer) JWKSURL() string { return i.Server.URL + "/jwks" }

// Sign returns an RS256 token over claims, filling iss, iat and exp when absent.
func (i *Issuer) Sign(claims jwt.MapClaims) string {
	now := time.Now()
	out := jwt.MapClaims{"iss": i.URL(), "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}
	for k, v := range claims {
		out[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, out)
	tok.Header["kid"] = keyID
	signed, err := tok.SignedString(i.key)
	if err != nil {
		panic(err)
	}
	return signed
}

// IssueCode registers an authorization code; exchanging it yields an ID token over claims.
func (i *Issuer) IssueCode(code string, claims jwt.MapClaims) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[code] = claims
}

// Verifier returns the PKCE code_verifier presented when code was exchanged.
func (i *Issuer) Verifier(code string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.verifiers[code]
}

func (i *Issuer) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                i.URL(),
		"authorization_endpoint":                i.URL() + "/auth",
		"token_endpoint":                        i.URL() + "/token",
		"jwks_uri":                              i.JWKSURL(),
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (i *Issuer) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := i.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": keyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (i *Issuer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	code := r.PostForm.Get("code")

	i.mu.Lock()
	claims, ok := i.codes[code]
	if ok {
		delete(i.codes, code)
		i.verifiers[code] = r.PostForm.Get("code_verifier")
	}
	i.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "access-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     i.Sign(claims),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
