package sessionstore

import (
	"time"

	"github.com/jrsteele09/go-landing-page/identity"
)

// Record is the server-side state of one browser session.
type Record struct {
	// State is the anti-forgery value sent with the authorization request.
	// It is only set between the login redirect and the callback.
	State string

	// Claims are the id_token claims once the user has signed in.
	Claims identity.Claims

	CreatedAt time.Time
}

// Authenticated reports whether the session holds a signed-in user.
func (r Record) Authenticated() bool {
	return len(r.Claims) > 0
}

type Repo interface {
	Get(sessionID string) (Record, error)
	Set(sessionID string, record Record) error
	Clear(sessionID string) error
}
