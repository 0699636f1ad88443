package identity

import (
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"golang.org/x/oauth2"
)

// ProviderError is an error response from the token endpoint.
type ProviderError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("identity provider error: %s", e.Code)
	}
	return fmt.Sprintf("identity provider error: %s: %s", e.Code, e.Description)
}

func (e *ProviderError) Unwrap() error {
	return apperrors.ErrProviderError
}

// asProviderError converts an oauth2 token endpoint failure into a ProviderError.
// Transport failures are reported with the "request_failed" code.
func asProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		pe = &ProviderError{
			Code:        re.ErrorCode,
			Description: re.ErrorDescription,
			URI:         re.ErrorURI,
		}
		if re.Response != nil {
			pe.StatusCode = re.Response.StatusCode
		}
		if pe.Code == "" {
			pe.Code = "invalid_response"
			pe.Description = string(re.Body)
		}
		return pe
	}
	return &ProviderError{Code: "request_failed", Description: err.Error()}
}
