package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	Port    string `env:"PORT" envDefault:"5000"`
	AppName string `env:"APP_NAME" envDefault:"Landing Page"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// BaseURL overrides the scheme and host used to build the callback and
	// post-logout redirect URIs, e.g. "https://landing.example.com".
	BaseURL string `env:"LANDING_PAGE_BASE_URL"`
}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "5000"
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

// GetBaseURL returns the configured external base URL without a trailing slash.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.BaseURL, "/")
}
