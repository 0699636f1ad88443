package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sessionCookieName is the cookie carrying the encrypted session id
const sessionCookieName = "landing_session"

// sessionID returns the id of the caller's session, starting a new one when
// the request carries no valid session cookie.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := s.readSessionCookie(r); ok {
		return id
	}
	id := uuid.New().String()
	s.setSessionCookie(w, r, id)
	return id
}

func (s *Server) readSessionCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var id string
	if err := s.cookies.Decode(sessionCookieName, cookie.Value, &id); err != nil {
		log.Debug().Err(err).Msg("Ignoring undecodable session cookie")
		return "", false
	}
	return id, id != ""
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	encoded, err := s.cookies.Encode(sessionCookieName, id)
	if err != nil {
		log.Err(err).Msg("Failed to encode session cookie")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		// Lax so the cookie comes back on the provider's top-level redirect
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.SessionTTL.Seconds()),
	})
}

// newState returns a random anti-forgery value for the authorization request.
func newState() string {
	return uuid.New().String()
}
