package testprovider

// tokenResponse is the token endpoint response body (RFC 6749 section 5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// IDToken is only returned for the authorization_code grant
	IDToken string `json:"id_token,omitempty"`
}
