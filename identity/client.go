package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"golang.org/x/oauth2"
)

const (
	tenantIDPlaceholder = "{tenantid}"

	defaultCacheTTL        = time.Hour
	defaultCacheMaxEntries = 10000
)

// reservedScopes are requested on every authorization so that the token
// response carries an id_token and a refresh token.
var reservedScopes = []string{oidc.ScopeOpenID, "profile", oidc.ScopeOfflineAccess}

// Options configures a Client.
type Options struct {
	// Authority is the issuer discovery base, e.g. https://login.microsoftonline.com/common/v2.0
	Authority    string
	ClientID     string
	ClientSecret string

	// HTTPClient is used for discovery, key fetches and token requests.
	// Defaults to a pooled go-cleanhttp client.
	HTTPClient *http.Client

	// CacheTTL and CacheMaxEntries bound the account token cache.
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// Client runs the authorization-code flow against a multi-tenant OpenID
// Connect provider and keeps the resulting tokens so they can be reacquired
// silently.
type Client struct {
	clientID     string
	clientSecret string
	authority    string

	endpoint           oauth2.Endpoint
	verifier           *oidc.IDTokenVerifier
	issuerTemplate     string
	endSessionEndpoint string

	httpClient *http.Client
	cache      *AccountCache
}

// New discovers the provider configuration for the authority.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("[identity New] client id and secret are required: %w", apperrors.ErrMissingConfig)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	authority := strings.TrimSuffix(opts.Authority, "/")
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	cacheMaxEntries := opts.CacheMaxEntries
	if cacheMaxEntries <= 0 {
		cacheMaxEntries = defaultCacheMaxEntries
	}

	// The multi-tenant discovery document reports a templated issuer, so the
	// authority is accepted as the issuer here and checked per token instead.
	discoveryCtx := oidc.InsecureIssuerURLContext(oidc.ClientContext(ctx, httpClient), authority)
	provider, err := oidc.NewProvider(discoveryCtx, authority)
	if err != nil {
		return nil, fmt.Errorf("[identity New] failed to create OIDC provider: %w", err)
	}

	var metadata struct {
		Issuer             string `json:"issuer"`
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return nil, fmt.Errorf("[identity New] failed to read provider metadata: %w", err)
	}

	endSession := metadata.EndSessionEndpoint
	if endSession == "" {
		endSession = strings.TrimSuffix(authority, "/v2.0") + "/oauth2/v2.0/logout"
	}

	return &Client{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		authority:    authority,
		endpoint:     provider.Endpoint(),
		verifier: provider.Verifier(&oidc.Config{
			ClientID:        opts.ClientID,
			SkipIssuerCheck: true,
		}),
		issuerTemplate:     metadata.Issuer,
		endSessionEndpoint: endSession,
		httpClient:         httpClient,
		cache:              NewAccountCache(cacheMaxEntries, cacheTTL),
	}, nil
}

func (c *Client) oauth2Config(scopes []string, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     c.endpoint,
		RedirectURL:  redirectURI,
		Scopes:       withReservedScopes(scopes),
	}
}

// AuthCodeURL builds the authorization redirect. The account chooser is
// always shown.
func (c *Client) AuthCodeURL(scopes []string, state, redirectURI string) string {
	return c.oauth2Config(scopes, redirectURI).AuthCodeURL(state,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// ExchangeCode redeems an authorization code and returns the verified
// id_token claims. Token endpoint rejections are returned as *ProviderError.
func (c *Client) ExchangeCode(ctx context.Context, code string, scopes []string, redirectURI string) (Claims, error) {
	conf := c.oauth2Config(scopes, redirectURI)
	ctx = oidc.ClientContext(ctx, c.httpClient)

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, asProviderError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("[identity ExchangeCode] %w", apperrors.ErrNoIDToken)
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[identity ExchangeCode] %w: %v", apperrors.ErrInvalidToken, err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[identity ExchangeCode] %w: %v", apperrors.ErrInvalidToken, err)
	}
	if err := c.checkIssuer(idToken.Issuer, claims.TenantID()); err != nil {
		return nil, err
	}

	if claims.ObjectID() != "" && claims.TenantID() != "" {
		c.cache.store(cachedAccount{
			account: Account{
				HomeAccountID: claims.HomeAccountID(),
				Username:      claims.PreferredUsername(),
				TenantID:      claims.TenantID(),
			},
			token:    token,
			scopes:   conf.Scopes,
			redirect: redirectURI,
			cachedAt: time.Now(),
		})
	}
	return claims, nil
}

func (c *Client) checkIssuer(issuer, tenantID string) error {
	expected := c.issuerTemplate
	if strings.Contains(expected, tenantIDPlaceholder) {
		if tenantID == "" {
			return fmt.Errorf("[identity checkIssuer] %w: token has no tid claim", apperrors.ErrIssuerMismatch)
		}
		expected = strings.ReplaceAll(expected, tenantIDPlaceholder, tenantID)
	}
	if issuer != expected {
		return fmt.Errorf("[identity checkIssuer] %w: got %q, expected %q", apperrors.ErrIssuerMismatch, issuer, expected)
	}
	return nil
}

// SilentToken returns an access token for a cached account without user
// interaction, refreshing it when it has expired.
func (c *Client) SilentToken(ctx context.Context, scopes []string, account Account) (*oauth2.Token, error) {
	entry, err := c.cache.get(account.HomeAccountID)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[identity SilentToken] %s", account.HomeAccountID)
	}
	if !containsAll(entry.scopes, scopes) {
		return nil, fmt.Errorf("[identity SilentToken] %w: scopes %v not granted", apperrors.ErrNoCachedToken, scopes)
	}

	conf := c.oauth2Config(entry.scopes, entry.redirect)
	token, err := conf.TokenSource(oidc.ClientContext(ctx, c.httpClient), entry.token).Token()
	if err != nil {
		return nil, asProviderError(err)
	}
	if token.AccessToken != entry.token.AccessToken {
		c.cache.updateToken(account.HomeAccountID, token)
	}
	return token, nil
}

// Accounts lists the accounts that tokens have been cached for.
func (c *Client) Accounts() []Account {
	return c.cache.Accounts()
}

// EndSessionURL is the provider logout URL that returns the browser to
// postLogoutRedirectURI afterwards.
func (c *Client) EndSessionURL(postLogoutRedirectURI string) string {
	u, err := url.Parse(c.endSessionEndpoint)
	if err != nil {
		return c.endSessionEndpoint + "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirectURI)
	}
	q := u.Query()
	q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	u.RawQuery = q.Encode()
	return u.String()
}

func withReservedScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes)+len(reservedScopes))
	seen := make(map[string]struct{}, cap(out))
	for _, s := range append(append([]string{}, scopes...), reservedScopes...) {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func containsAll(granted, requested []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
