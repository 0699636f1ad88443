package config

import (
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
)

// Config is loaded once at startup and shared read-only by the identity
// client and the route controller.
type Config struct {
	EnvVars
	OAuth
	Security
}

// Load reads the configuration from the environment. A missing client id or
// client secret is fatal.
func Load() (*Config, error) {
	c := Config{
		OAuth: OAuth{
			Authority:     DefaultAuthority,
			GraphEndpoint: DefaultGraphEndpoint,
		},
	}
	if err := env.Parse(&c); err != nil {
		return nil, parseError(err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values env.Parse cannot check on its own.
func (c *Config) Validate() error {
	var result *multierror.Error
	if err := validateURL("authority", c.Authority); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validateURL("graph endpoint", c.GraphEndpoint); err != nil {
		result = multierror.Append(result, err)
	}
	if c.BaseURL != "" {
		if err := validateURL("base url", c.BaseURL); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.SessionTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: session ttl must be positive", apperrors.ErrInvalidConfig))
	}
	if c.SessionMaxEntries <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: session max entries must be positive", apperrors.ErrInvalidConfig))
	}
	if c.HTTPTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: http timeout must not be negative", apperrors.ErrInvalidConfig))
	}
	return result.ErrorOrNil()
}

// parseError classifies env.Parse failures: unset or empty required variables
// are missing config, anything that failed to parse is invalid config.
func parseError(err error) error {
	var agg env.AggregateError
	if !apperrors.As(err, &agg) {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "[config Load] %v", err)
	}
	var result *multierror.Error
	for _, e := range agg.Errors {
		switch e.(type) {
		case env.VarIsNotSetError, env.EmptyVarError:
			result = multierror.Append(result, fmt.Errorf("%w: %v", apperrors.ErrMissingConfig, e))
		default:
			result = multierror.Append(result, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, e))
		}
	}
	return result.ErrorOrNil()
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidConfig, name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute url", apperrors.ErrInvalidConfig, name)
	}
	return nil
}
