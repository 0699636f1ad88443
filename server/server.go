package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/jrsteele09/go-landing-page/identity"
	"github.com/jrsteele09/go-landing-page/internal/config"
	"github.com/jrsteele09/go-landing-page/server/sessionstore"
	"github.com/rs/zerolog/log"
)

// IdentityClient is the authorization-code flow as seen by the routes.
type IdentityClient interface {
	AuthCodeURL(scopes []string, state, redirectURI string) string
	ExchangeCode(ctx context.Context, code string, scopes []string, redirectURI string) (identity.Claims, error)
	EndSessionURL(postLogoutRedirectURI string) string
}

// ProfileEnricher returns extra profile data for a signed-in user, or nil.
type ProfileEnricher interface {
	Enrich(ctx context.Context, claims identity.Claims) map[string]any
}

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   *config.Config
	identity IdentityClient
	sessions sessionstore.Repo
	profiles ProfileEnricher
	cookies  *securecookie.SecureCookie

	indexTmpl     *template.Template
	loggedOutTmpl *template.Template
}

func New(cfg *config.Config, idc IdentityClient, sessions sessionstore.Repo, profiles ProfileEnricher) (*Server, error) {
	hashKey, blockKey, err := cfg.CookieKeys()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create cookie keys: %w", err)
	}
	indexTmpl, err := ParseTemplate("index.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse index template: %w", err)
	}
	loggedOutTmpl, err := ParseTemplate("logged_out.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse logged out template: %w", err)
	}

	cookies := securecookie.New(hashKey, blockKey)
	cookies.MaxAge(int(cfg.SessionTTL.Seconds()))

	s := &Server{
		env:           cfg.GetEnv(),
		mux:           http.NewServeMux(),
		config:        cfg,
		identity:      idc,
		sessions:      sessions,
		profiles:      profiles,
		cookies:       cookies,
		indexTmpl:     indexTmpl,
		loggedOutTmpl: loggedOutTmpl,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// externalURL is the absolute URL of path as the browser reaches this server.
func (s *Server) externalURL(r *http.Request, path string) string {
	if base := s.config.GetBaseURL(); base != "" {
		return base + path
	}
	return getScheme(r) + "://" + r.Host + path
}
