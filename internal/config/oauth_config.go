package config

import "time"

const (
	// DefaultAuthority is the multi-tenant Microsoft identity platform endpoint.
	DefaultAuthority = "https://login.microsoftonline.com/common/v2.0"

	// DefaultGraphEndpoint is the Microsoft Graph profile endpoint with a fixed field selection.
	DefaultGraphEndpoint = "https://graph.microsoft.com/v1.0/me?$select=id,mail,givenName,surname,companyName,jobTitle,userPrincipalName"

	// PersonalAccountTenantID is the tenant that personal Microsoft accounts sign in through.
	// Graph has nothing beyond the id_token claims for these accounts.
	PersonalAccountTenantID = "9188040d-6c67-4c5b-b112-36a304b66dad"
)

// Scopes requested on login and for silent token acquisition.
var Scopes = []string{"User.Read"}

// OAuth holds the app registration. Authority and GraphEndpoint default to
// DefaultAuthority and DefaultGraphEndpoint when unset.
type OAuth struct {
	ClientID      string        `env:"LANDING_PAGE_CLIENT_ID,required,notEmpty"`
	ClientSecret  string        `env:"LANDING_PAGE_CLIENT_SECRET,required,notEmpty"`
	Authority     string        `env:"LANDING_PAGE_AUTHORITY"`
	GraphEndpoint string        `env:"LANDING_PAGE_GRAPH_ENDPOINT"`
	HTTPTimeout   time.Duration `env:"LANDING_PAGE_HTTP_TIMEOUT" envDefault:"30s"`
}

func (o OAuth) GetScopes() []string {
	scopes := make([]string, len(Scopes))
	copy(scopes, Scopes)
	return scopes
}
