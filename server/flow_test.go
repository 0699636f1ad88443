package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-landing-page/identity"
	"github.com/jrsteele09/go-landing-page/internal/config"
	"github.com/jrsteele09/go-landing-page/internal/testprovider"
	"github.com/jrsteele09/go-landing-page/profile"
	"github.com/jrsteele09/go-landing-page/server/sessionstore"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow_WithProvider(t *testing.T) {
	cfg := testConfig()
	p := testprovider.New(t, cfg.ClientID, cfg.ClientSecret)
	p.SetLoginUser(testprovider.User{
		ObjectID:          "o1",
		TenantID:          "t1",
		Subject:           "s1",
		Name:              "Ada Lovelace",
		PreferredUsername: "ada@contoso.com",
		Profile:           map[string]any{"jobTitle": "Analyst"},
	})

	idc, err := identity.New(context.Background(), identity.Options{
		Authority:    p.Authority(),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   p.HTTPClient(),
	})
	require.NoError(t, err)
	enricher := profile.NewEnricher(idc, profile.NewGraphClient(p.GraphEndpoint(), p.HTTPClient()), config.Scopes)

	store := sessionstore.NewInMemoryRepo(100, time.Hour)
	s, err := New(cfg, idc, store, enricher)
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	defer ts.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	// "/" -> provider authorize -> callback -> "/"
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, ts.URL+"/", resp.Request.URL.String())
	require.Contains(t, string(body), "Tenant=t1<br>")
	require.Contains(t, string(body), "name=Ada Lovelace<br>")
	require.Contains(t, string(body), "<h2>Microsoft Graph</h2>")
	require.Contains(t, string(body), "Analyst")
	require.Equal(t, 1, p.GraphRequests())

	require.Len(t, idc.Accounts(), 1)
	require.Equal(t, "o1.t1", idc.Accounts()[0].HomeAccountID)

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err = client.Get(ts.URL + RouteLogout)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, p.URL()+"/common/oauth2/v2.0/logout", loc.Scheme+"://"+loc.Host+loc.Path)
	require.Equal(t, ts.URL+RouteLogout, loc.Query().Get("post_logout_redirect_uri"))

	resp, err = client.Get(ts.URL + RouteLogout)
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Logged out...")
}

func TestLoginFlow_UserCancels(t *testing.T) {
	cfg := testConfig()
	p := testprovider.New(t, cfg.ClientID, cfg.ClientSecret)

	idc, err := identity.New(context.Background(), identity.Options{
		Authority:    p.Authority(),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   p.HTTPClient(),
	})
	require.NoError(t, err)

	s, err := New(cfg, idc, sessionstore.NewInMemoryRepo(100, time.Hour), &fakeEnricher{})
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	defer ts.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, RouteCallback, resp.Request.URL.Path)
	require.Contains(t, string(body), `Error: {`)
	require.Contains(t, string(body), `"error":"access_denied"`)
}
