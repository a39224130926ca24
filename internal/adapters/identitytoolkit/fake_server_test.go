package identitytoolkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nicetouch/dashboard/internal/testutil/oidctest"
)

const testProject = "demo-project"

type fakeAccount struct {
	uid       string
	email     string
	password  string
	verified  bool
	providers []string
}

// fakeToolkit emulates the accounts:* and secure-token endpoints.
type fakeToolkit struct {
	iss    *oidctest.Issuer
	server *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	idTokens  map[string]string
	refreshes map[string]string
	calls     map[string]int
	oob       []string
	nextUID   int
}

func newFakeToolkit(t *testing.T) *fakeToolkit {
	t.Helper()
	f := &fakeToolkit{
		iss:       oidctest.New(t),
		accounts:  make(map[string]*fakeAccount),
		idTokens:  make(map[string]string),
		refreshes: make(map[string]string),
		calls:     make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/{method}", f.handleAccounts)
	mux.HandleFunc("POST /token", f.handleRefresh)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeToolkit) config() Config {
	return Config{
		APIKey:         "test-key",
		ProjectID:      testProject,
		BaseURL:        f.server.URL + "/v1",
		SecureTokenURL: f.server.URL + "/token",
		JWKSURL:        f.iss.JWKSURL(),
		Issuer:         f.iss.URL(),
	}
}

func (f *fakeToolkit) addAccount(email, password string, providers ...string) *fakeAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addAccountLocked(email, password, providers...)
}

func (f *fakeToolkit) addAccountLocked(email, password string, providers ...string) *fakeAccount {
	f.nextUID++
	acc := &fakeAccount{uid: fmt.Sprintf("uid-%d", f.nextUID), email: email, password: password, providers: providers}
	f.accounts[email] = acc
	return acc
}

func (f *fakeToolkit) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// issueLocked mints a signed ID token and an opaque refresh token for acc.
func (f *fakeToolkit) issueLocked(acc *fakeAccount, provider string) (string, string) {
	refresh := fmt.Sprintf("refresh-%s-%d", acc.uid, len(f.refreshes))
	idToken := f.iss.Sign(jwt.MapClaims{
		"jti":            refresh,
		"aud":            testProject,
		"sub":            acc.uid,
		"email":          acc.email,
		"email_verified": acc.verified,
		"firebase":       map[string]any{"sign_in_provider": provider},
	})
	f.idTokens[idToken] = acc.email
	f.refreshes[refresh] = acc.email
	return idToken, refresh
}

func (f *fakeToolkit) authResponseLocked(acc *fakeAccount, provider string) map[string]any {
	idToken, refresh := f.issueLocked(acc, provider)
	return map[string]any{
		"localId":      acc.uid,
		"email":        acc.email,
		"idToken":      idToken,
		"refreshToken": refresh,
		"expiresIn":    "3600",
	}
}

func (f *fakeToolkit) handleAccounts(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.PathValue("method"), "accounts:")
	if r.URL.Query().Get("key") != "test-key" {
		writeError(w, http.StatusBadRequest, "API_KEY_INVALID")
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}
	str := func(k string) string { s, _ := body[k].(string); return s }

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++

	switch method {
	case "signInWithPassword":
		acc, ok := f.accounts[str("email")]
		if !ok || acc.password == "" || acc.password != str("password") {
			writeError(w, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
			return
		}
		writeJSON(w, f.authResponseLocked(acc, "password"))
	case "signUp":
		if _, ok := f.accounts[str("email")]; ok {
			writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		acc := f.addAccountLocked(str("email"), str("password"), "password")
		writeJSON(w, f.authResponseLocked(acc, "password"))
	case "signInWithIdp":
		form, _ := url.ParseQuery(str("postBody"))
		if form.Get("id_token") == "" || form.Get("providerId") != "google.com" {
			writeError(w, http.StatusBadRequest, "INVALID_IDP_RESPONSE")
			return
		}
		acc, ok := f.accounts["g@example.com"]
		if !ok {
			acc = f.addAccountLocked("g@example.com", "", "google.com")
			acc.verified = true
		}
		writeJSON(w, f.authResponseLocked(acc, "google.com"))
	case "lookup":
		acc, ok := f.accounts[f.idTokens[str("idToken")]]
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_ID_TOKEN")
			return
		}
		infos := []map[string]string{}
		hash := ""
		for _, p := range acc.providers {
			if p == "password" {
				hash = "hashed"
				continue
			}
			infos = append(infos, map[string]string{"providerId": p})
		}
		writeJSON(w, map[string]any{"users": []map[string]any{{
			"localId":          acc.uid,
			"email":            acc.email,
			"emailVerified":    acc.verified,
			"passwordHash":     hash,
			"providerUserInfo": infos,
		}}})
	case "update":
		acc, ok := f.accounts[f.idTokens[str("idToken")]]
		if !ok {
			writeError(w, http.StatusBadRequest, "CREDENTIAL_TOO_OLD_LOGIN_AGAIN")
			return
		}
		if email := str("email"); email != "" && email != acc.email {
			if _, taken := f.accounts[email]; taken {
				writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
				return
			}
		}
		if pw := str("password"); pw != "" {
			acc.password = pw
			if !contains(acc.providers, "password") {
				acc.providers = append(acc.providers, "password")
			}
		}
		writeJSON(w, f.authResponseLocked(acc, "password"))
	case "sendOobCode":
		acc, ok := f.accounts[f.idTokens[str("idToken")]]
		if !ok || str("requestType") != "VERIFY_EMAIL" {
			writeError(w, http.StatusBadRequest, "INVALID_ID_TOKEN")
			return
		}
		f.oob = append(f.oob, acc.email)
		writeJSON(w, map[string]any{"email": acc.email})
	case "createAuthUri":
		methods := []string{}
		if acc, ok := f.accounts[str("identifier")]; ok {
			methods = append(methods, acc.providers...)
		}
		writeJSON(w, map[string]any{"registered": len(methods) > 0, "signinMethods": methods})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND")
	}
}

func (f *fakeToolkit) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		writeError(w, http.StatusBadRequest, "INVALID_GRANT_TYPE")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["refresh"]++

	email, ok := f.refreshes[r.PostForm.Get("refresh_token")]
	if !ok {
		writeError(w, http.StatusBadRequest, "TOKEN_EXPIRED")
		return
	}
	acc := f.accounts[email]
	idToken, refresh := f.issueLocked(acc, "password")
	writeJSON(w, map[string]any{
		"access_token":  idToken,
		"id_token":      idToken,
		"refresh_token": refresh,
		"expires_in":    "3600",
		"token_type":    "Bearer",
		"user_id":       acc.uid,
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}
