package profile_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-landing-page/identity"
	"github.com/jrsteele09/go-landing-page/internal/config"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"github.com/jrsteele09/go-landing-page/internal/testprovider"
	"github.com/jrsteele09/go-landing-page/profile"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testClientID     = "client-1"
	testClientSecret = "secret-1"
	testRedirectURI  = "http://localhost:5000/signin_oidc"
	testTenantID     = "72f988bf-86f1-41af-91ab-2d7cd011db47"
)

var testScopes = []string{"User.Read"}

// spyAccounts records calls and hands out a fixed token.
type spyAccounts struct {
	accounts    []identity.Account
	token       *oauth2.Token
	err         error
	listCalls   int
	silentCalls int
}

func (s *spyAccounts) Accounts() []identity.Account {
	s.listCalls++
	return s.accounts
}

func (s *spyAccounts) SilentToken(ctx context.Context, scopes []string, account identity.Account) (*oauth2.Token, error) {
	s.silentCalls++
	return s.token, s.err
}

type spyFetcher struct {
	profile map[string]any
	err     error
	tokens  []string
}

func (s *spyFetcher) Me(ctx context.Context, accessToken string) (map[string]any, error) {
	s.tokens = append(s.tokens, accessToken)
	return s.profile, s.err
}

func orgClaims() identity.Claims {
	return identity.Claims{"tid": testTenantID, "oid": "o1", "sub": "s1", "name": "A", "preferred_username": "a@x"}
}

func TestEnricher_Enrich(t *testing.T) {
	t.Run("personal accounts are skipped", func(t *testing.T) {
		accounts := &spyAccounts{}
		fetcher := &spyFetcher{}
		e := profile.NewEnricher(accounts, fetcher, testScopes)

		claims := identity.Claims{"tid": config.PersonalAccountTenantID, "oid": "o1"}
		require.Nil(t, e.Enrich(context.Background(), claims))
		_, err := e.Lookup(context.Background(), claims)
		require.True(t, apperrors.Is(err, apperrors.ErrPersonalAccount))
		require.Zero(t, accounts.listCalls)
		require.Empty(t, fetcher.tokens)
	})

	t.Run("no matching account", func(t *testing.T) {
		accounts := &spyAccounts{accounts: []identity.Account{{HomeAccountID: "other." + testTenantID}}}
		e := profile.NewEnricher(accounts, &spyFetcher{}, testScopes)

		_, err := e.Lookup(context.Background(), orgClaims())
		require.True(t, apperrors.Is(err, apperrors.ErrAccountNotFound))
		require.Zero(t, accounts.silentCalls)
	})

	t.Run("silent token failure", func(t *testing.T) {
		accounts := &spyAccounts{
			accounts: []identity.Account{{HomeAccountID: "o1." + testTenantID}},
			err:      apperrors.ErrNoCachedToken,
		}
		fetcher := &spyFetcher{}
		e := profile.NewEnricher(accounts, fetcher, testScopes)

		require.Nil(t, e.Enrich(context.Background(), orgClaims()))
		require.Equal(t, 1, accounts.silentCalls)
		require.Empty(t, fetcher.tokens)
	})

	t.Run("fetch failure", func(t *testing.T) {
		accounts := &spyAccounts{
			accounts: []identity.Account{{HomeAccountID: "o1." + testTenantID}},
			token:    &oauth2.Token{AccessToken: "at-1"},
		}
		fetcher := &spyFetcher{err: errors.New("boom")}
		e := profile.NewEnricher(accounts, fetcher, testScopes)

		require.Nil(t, e.Enrich(context.Background(), orgClaims()))
		require.Equal(t, []string{"at-1"}, fetcher.tokens)
	})

	t.Run("returns the profile", func(t *testing.T) {
		accounts := &spyAccounts{
			accounts: []identity.Account{{HomeAccountID: "o1." + testTenantID}},
			token:    &oauth2.Token{AccessToken: "at-1"},
		}
		fetcher := &spyFetcher{profile: map[string]any{"jobTitle": "Engineer"}}
		e := profile.NewEnricher(accounts, fetcher, testScopes)

		require.Equal(t, map[string]any{"jobTitle": "Engineer"}, e.Enrich(context.Background(), orgClaims()))
	})
}

func TestEnricher_WithProvider(t *testing.T) {
	p := testprovider.New(t, testClientID, testClientSecret)
	client, err := identity.New(context.Background(), identity.Options{
		Authority:    p.Authority(),
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient:   p.HTTPClient(),
	})
	require.NoError(t, err)

	user := testprovider.User{
		ObjectID:          "o1",
		TenantID:          testTenantID,
		Subject:           "s1",
		Name:              "Ada Lovelace",
		PreferredUsername: "ada@contoso.com",
		Profile:           map[string]any{"jobTitle": "Analyst", "surname": "Lovelace"},
	}
	claims, err := client.ExchangeCode(context.Background(), p.IssueCode(user, testRedirectURI), testScopes, testRedirectURI)
	require.NoError(t, err)

	e := profile.NewEnricher(client, profile.NewGraphClient(p.GraphEndpoint(), p.HTTPClient()), testScopes)

	t.Run("profile is fetched with the cached token", func(t *testing.T) {
		got := e.Enrich(context.Background(), claims)
		require.Equal(t, "o1", got["id"])
		require.Equal(t, "Analyst", got["jobTitle"])
		require.Equal(t, "ada@contoso.com", got["userPrincipalName"])
	})

	t.Run("graph errors degrade to nothing", func(t *testing.T) {
		p.SetGraphStatus(http.StatusForbidden)
		defer p.SetGraphStatus(0)
		_, err := e.Lookup(context.Background(), claims)
		require.True(t, apperrors.Is(err, apperrors.ErrProfileFetch))
		require.Nil(t, e.Enrich(context.Background(), claims))
	})

	t.Run("unknown user", func(t *testing.T) {
		other := identity.Claims{"tid": testTenantID, "oid": "someone-else"}
		require.Nil(t, e.Enrich(context.Background(), other))
	})
}
