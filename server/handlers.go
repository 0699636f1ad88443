package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-landing-page/identity"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"github.com/jrsteele09/go-landing-page/server/sessionstore"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// IndexPageData is what the landing page shows for a signed-in user
type IndexPageData struct {
	TenantID          string
	ObjectID          string
	Subject           string
	Name              string
	PreferredUsername string
	Email             string
	Graph             string // JSON profile, empty when there is none
}

// IndexHandler sends anonymous users to the identity provider and shows the
// claims of signed-in users.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.sessionID(w, r)
		record, err := s.sessions.Get(sessionID)
		if err != nil || !record.Authenticated() {
			s.startLogin(w, r, sessionID)
			return
		}

		claims := record.Claims
		data := IndexPageData{
			TenantID:          claims.TenantID(),
			ObjectID:          claims.ObjectID(),
			Subject:           claims.Subject(),
			Name:              claims.Name(),
			PreferredUsername: claims.PreferredUsername(),
			Email:             claims.Email(),
		}
		if profile := s.profiles.Enrich(r.Context(), claims); profile != nil {
			if b, err := json.Marshal(profile); err == nil {
				data.Graph = string(b)
			}
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := s.indexTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render index template")
		}
	}
}

func (s *Server) startLogin(w http.ResponseWriter, r *http.Request, sessionID string) {
	state := newState()
	if err := s.sessions.Set(sessionID, sessionstore.Record{State: state}); err != nil {
		log.Err(err).Msg("Failed to store login state")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	authURL := s.identity.AuthCodeURL(s.config.GetScopes(), state, s.externalURL(r, RouteCallback))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler is the redirect target of the authorization request.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		sessionID := s.sessionID(w, r)

		// The state must round-trip unchanged from the login redirect
		record, err := s.sessions.Get(sessionID)
		if err != nil || record.State == "" || query.Get("state") != record.State {
			writeError(w, apperrors.ErrInvalidState.Error())
			return
		}

		if query.Has("error") {
			writeError(w, queryJSON(query))
			return
		}

		code := query.Get("code")
		if code == "" {
			writeError(w, apperrors.ErrMissingCode.Error())
			return
		}

		claims, err := s.identity.ExchangeCode(r.Context(), code, s.config.GetScopes(), s.externalURL(r, RouteCallback))
		if err != nil {
			log.Warn().Err(err).Msg("Authorization code exchange failed")
			writeError(w, exchangeErrorJSON(err))
			return
		}

		// Signed-in sessions get a fresh id so a pre-login cookie never carries the claims
		loginSessionID := uuid.New().String()
		if err := s.sessions.Set(loginSessionID, sessionstore.Record{Claims: claims}); err != nil {
			log.Err(err).Msg("Failed to store claims")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		if err := s.sessions.Clear(sessionID); err != nil {
			log.Warn().Err(err).Msg("Failed to clear pre-login session")
		}
		s.setSessionCookie(w, r, loginSessionID)
		http.Redirect(w, r, RouteIndex, http.StatusFound)
	}
}

// LogoutHandler ends the local session and then the provider session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.sessionID(w, r)
		record, err := s.sessions.Get(sessionID)
		if err != nil || !record.Authenticated() {
			w.Header().Set("Content-Type", contentTypeHTML)
			if err := s.loggedOutTmpl.Execute(w, map[string]string{"IndexURL": RouteIndex}); err != nil {
				log.Err(err).Msg("Failed to render logged out template")
			}
			return
		}

		if err := s.sessions.Clear(sessionID); err != nil {
			log.Err(err).Msg("Failed to clear session")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, s.identity.EndSessionURL(s.externalURL(r, RouteLogout)), http.StatusFound)
	}
}

func writeError(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Error: " + description))
}

// queryJSON renders the first value of every query parameter as a JSON object.
func queryJSON(query url.Values) string {
	flat := make(map[string]string, len(query))
	for k := range query {
		flat[k] = query.Get(k)
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return err.Error()
	}
	return string(b)
}

func exchangeErrorJSON(err error) string {
	var v any = map[string]string{"error": "exchange_failed", "error_description": err.Error()}
	var pe *identity.ProviderError
	if apperrors.As(err, &pe) {
		v = pe
	}
	b, mErr := json.Marshal(v)
	if mErr != nil {
		return err.Error()
	}
	return string(b)
}
