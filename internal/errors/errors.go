package errors

import (
	"errors"
	"fmt"
)

// Common error types for the landing page
var (
	// Configuration errors
	ErrMissingConfig = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Callback protocol errors
	ErrInvalidState  = errors.New("invalid state parameter value")
	ErrMissingCode   = errors.New("missing code parameter")
	ErrProviderError = errors.New("identity provider returned an error")

	// Token errors
	ErrNoIDToken      = errors.New("no id_token in token response")
	ErrInvalidToken   = errors.New("invalid token")
	ErrIssuerMismatch = errors.New("issuer does not match tenant")
	ErrNoCachedToken  = errors.New("no cached token for account")

	// Profile errors
	ErrPersonalAccount = errors.New("personal accounts have no profile data")
	ErrAccountNotFound = errors.New("account not found")
	ErrProfileFetch    = errors.New("profile request failed")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
