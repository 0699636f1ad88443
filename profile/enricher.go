package profile

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-landing-page/identity"
	"github.com/jrsteele09/go-landing-page/internal/config"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// AccountSource is the part of the identity client used to obtain a token for
// an already signed-in user.
type AccountSource interface {
	Accounts() []identity.Account
	SilentToken(ctx context.Context, scopes []string, account identity.Account) (*oauth2.Token, error)
}

type Fetcher interface {
	Me(ctx context.Context, accessToken string) (map[string]any, error)
}

// Enricher adds directory profile data to a signed-in user's claims.
type Enricher struct {
	accounts AccountSource
	fetcher  Fetcher
	scopes   []string
}

func NewEnricher(accounts AccountSource, fetcher Fetcher, scopes []string) *Enricher {
	return &Enricher{accounts: accounts, fetcher: fetcher, scopes: scopes}
}

// Enrich returns the user's profile, or nil when there is none to show.
// Failures are logged and never reach the user.
func (e *Enricher) Enrich(ctx context.Context, claims identity.Claims) map[string]any {
	profile, err := e.Lookup(ctx, claims)
	if err != nil {
		log.Debug().Err(err).Str("home_account_id", claims.HomeAccountID()).Msg("No profile enrichment")
		return nil
	}
	return profile
}

// Lookup is Enrich with the reason for an empty result.
func (e *Enricher) Lookup(ctx context.Context, claims identity.Claims) (map[string]any, error) {
	if claims.TenantID() == config.PersonalAccountTenantID {
		return nil, apperrors.ErrPersonalAccount
	}

	homeAccountID := claims.HomeAccountID()
	var account *identity.Account
	for _, a := range e.accounts.Accounts() {
		if a.HomeAccountID == homeAccountID {
			account = &a
			break
		}
	}
	if account == nil {
		return nil, fmt.Errorf("[profile Lookup] %w: %s", apperrors.ErrAccountNotFound, homeAccountID)
	}

	token, err := e.accounts.SilentToken(ctx, e.scopes, *account)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[profile Lookup] silent token")
	}
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("[profile Lookup] %w", apperrors.ErrNoCachedToken)
	}
	return e.fetcher.Me(ctx, token.AccessToken)
}
