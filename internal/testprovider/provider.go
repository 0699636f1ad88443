// Package testprovider runs an in-process OpenID Connect provider shaped like
// the Microsoft identity platform's multi-tenant endpoint, plus a Graph style
// /me endpoint, for tests.
package testprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const graphSelect = "$select=id,mail,givenName,surname,companyName,jobTitle,userPrincipalName"

// User is an identity the provider can sign in.
type User struct {
	ObjectID          string
	TenantID          string
	Subject           string
	Name              string
	PreferredUsername string
	Email             string

	// Profile is returned by the /me endpoint.
	Profile map[string]any
}

type codeGrant struct {
	user        User
	redirectURI string
	scope       string
}

type Provider struct {
	server *httptest.Server
	keys   *keyPair

	clientID     string
	clientSecret string

	mu             sync.Mutex
	codes          map[string]codeGrant
	accessTokens   map[string]User
	refreshTokens  map[string]codeGrant
	loginUser      *User
	accessTokenTTL time.Duration
	graphStatus    int
	refreshCount   int
	graphRequests  int
}

// New starts a provider that accepts the given client credentials. The
// server is closed when the test finishes.
func New(t testing.TB, clientID, clientSecret string) *Provider {
	t.Helper()
	keys, err := generateKeyPair(uuid.New().String())
	if err != nil {
		t.Fatalf("testprovider: %v", err)
	}
	p := &Provider{
		keys:           keys,
		clientID:       clientID,
		clientSecret:   clientSecret,
		codes:          make(map[string]codeGrant),
		accessTokens:   make(map[string]User),
		refreshTokens:  make(map[string]codeGrant),
		accessTokenTTL: time.Hour,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{tenant}/v2.0/.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("GET /{tenant}/discovery/v2.0/keys", p.jwks)
	mux.HandleFunc("GET /{tenant}/oauth2/v2.0/authorize", p.authorize)
	mux.HandleFunc("POST /{tenant}/oauth2/v2.0/token", p.token)
	mux.HandleFunc("GET /v1.0/me", p.me)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// URL is the provider's base URL.
func (p *Provider) URL() string { return p.server.URL }

// Authority is the multi-tenant discovery base.
func (p *Provider) Authority() string { return p.server.URL + "/common/v2.0" }

// Issuer is the id_token issuer for a tenant.
func (p *Provider) Issuer(tenantID string) string {
	return p.server.URL + "/" + tenantID + "/v2.0"
}

// GraphEndpoint is the profile endpoint with the usual field selection.
func (p *Provider) GraphEndpoint() string {
	return p.server.URL + "/v1.0/me?" + graphSelect
}

// HTTPClient returns a client that trusts the provider.
func (p *Provider) HTTPClient() *http.Client { return p.server.Client() }

// SetLoginUser selects the user the authorize endpoint signs in.
func (p *Provider) SetLoginUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loginUser = &u
}

// SetAccessTokenTTL changes the lifetime of access tokens issued from now on.
func (p *Provider) SetAccessTokenTTL(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokenTTL = d
}

// SetGraphStatus forces the /me endpoint to answer with status. Zero restores normal behaviour.
func (p *Provider) SetGraphStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graphStatus = status
}

// IssueCode registers an authorization code for user bound to redirectURI.
func (p *Provider) IssueCode(u User, redirectURI string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueCodeLocked(u, redirectURI, "")
}

func (p *Provider) issueCodeLocked(u User, redirectURI, scope string) string {
	code := uuid.New().String()
	p.codes[code] = codeGrant{user: u, redirectURI: redirectURI, scope: scope}
	return code
}

// RefreshCount is the number of refresh_token grants served.
func (p *Provider) RefreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCount
}

// GraphRequests is the number of /me requests served.
func (p *Provider) GraphRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graphRequests
}

func (p *Provider) discovery(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	base := p.server.URL + "/" + tenant
	issuer := p.Issuer(tenant)
	if tenant == "common" || tenant == "organizations" {
		issuer = p.server.URL + "/{tenantid}/v2.0"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                base + "/oauth2/v2.0/authorize",
		"token_endpoint":                        base + "/oauth2/v2.0/token",
		"jwks_uri":                              base + "/discovery/v2.0/keys",
		"end_session_endpoint":                  base + "/oauth2/v2.0/logout",
		"response_types_supported":              []string{"code", "id_token", "code id_token"},
		"subject_types_supported":               []string{"pairwise"},
		"id_token_signing_alg_values_supported": []string{RS256},
		"scopes_supported":                      []string{"openid", "profile", "email", "offline_access"},
	})
}

func (p *Provider) jwks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JWKS{Keys: []JWK{p.keys.toJWK()}})
}

func (p *Provider) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || q.Get("redirect_uri") == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}
	back := redirectURI.Query()
	back.Set("state", q.Get("state"))

	p.mu.Lock()
	switch {
	case q.Get("client_id") != p.clientID:
		back.Set("error", "unauthorized_client")
		back.Set("error_description", "unknown client")
	case p.loginUser == nil:
		back.Set("error", "access_denied")
		back.Set("error_description", "the user cancelled sign in")
	default:
		back.Set("code", p.issueCodeLocked(*p.loginUser, q.Get("redirect_uri"), q.Get("scope")))
	}
	p.mu.Unlock()

	redirectURI.RawQuery = back.Encode()
	http.Redirect(w, r, redirectURI.String(), http.StatusFound)
}

func (p *Provider) authenticateClient(r *http.Request) bool {
	id, secret, ok := r.BasicAuth()
	if ok {
		id, _ = url.QueryUnescape(id)
		secret, _ = url.QueryUnescape(secret)
	} else {
		id, secret = r.PostFormValue("client_id"), r.PostFormValue("client_secret")
	}
	return id == p.clientID && secret == p.clientSecret
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if !p.authenticateClient(r) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.PostFormValue("grant_type") {
	case "authorization_code":
		code := r.PostFormValue("code")
		grant, ok := p.codes[code]
		if !ok {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "AADSTS70000: the provided authorization code is invalid or has expired")
			return
		}
		delete(p.codes, code)
		if grant.redirectURI != r.PostFormValue("redirect_uri") {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "AADSTS50011: redirect_uri does not match")
			return
		}
		if scope := r.PostFormValue("scope"); scope != "" {
			grant.scope = scope
		}
		idToken, err := p.keys.sign(p.idTokenClaims(grant.user))
		if err != nil {
			writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		resp := p.issueTokensLocked(grant)
		resp.IDToken = idToken
		writeJSON(w, http.StatusOK, resp)

	case "refresh_token":
		refresh := r.PostFormValue("refresh_token")
		grant, ok := p.refreshTokens[refresh]
		if !ok {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "AADSTS70008: the refresh token has expired or is invalid")
			return
		}
		delete(p.refreshTokens, refresh)
		p.refreshCount++
		writeJSON(w, http.StatusOK, p.issueTokensLocked(grant))

	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
	}
}

func (p *Provider) issueTokensLocked(grant codeGrant) tokenResponse {
	resp := tokenResponse{
		AccessToken:  uuid.New().String(),
		TokenType:    "Bearer",
		ExpiresIn:    int(p.accessTokenTTL.Seconds()),
		RefreshToken: uuid.New().String(),
		Scope:        grant.scope,
	}
	p.accessTokens[resp.AccessToken] = grant.user
	p.refreshTokens[resp.RefreshToken] = grant
	return resp
}

func (p *Provider) idTokenClaims(u User) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":                p.Issuer(u.TenantID),
		"aud":                p.clientID,
		"sub":                u.Subject,
		"oid":                u.ObjectID,
		"tid":                u.TenantID,
		"name":               u.Name,
		"preferred_username": u.PreferredUsername,
		"iat":                now.Unix(),
		"nbf":                now.Unix(),
		"exp":                now.Add(time.Hour).Unix(),
		"ver":                "2.0",
	}
	if u.Email != "" {
		claims["email"] = u.Email
	}
	return claims
}

func (p *Provider) me(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graphRequests++

	if p.graphStatus != 0 {
		writeJSON(w, p.graphStatus, map[string]any{"error": map[string]string{"code": "Forced"}})
		return
	}
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "InvalidAuthenticationToken"}})
		return
	}
	u, ok := p.accessTokens[auth[len(prefix):]]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "InvalidAuthenticationToken"}})
		return
	}

	profile := map[string]any{
		"id":                u.ObjectID,
		"userPrincipalName": u.PreferredUsername,
	}
	for k, v := range u.Profile {
		profile[k] = v
	}
	writeJSON(w, http.StatusOK, profile)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
