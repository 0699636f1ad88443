package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

const (
	cookieHashKeyLength  = 64
	cookieBlockKeyLength = 32
)

type Security struct {
	// SessionSecret seeds the session cookie keys. When empty the keys are
	// random and sessions do not survive a restart.
	SessionSecret     string        `env:"LANDING_PAGE_SESSION_SECRET"`
	SessionTTL        time.Duration `env:"LANDING_PAGE_SESSION_TTL" envDefault:"1h"`
	SessionMaxEntries int           `env:"LANDING_PAGE_SESSION_MAX" envDefault:"10000"`
}

// CookieKeys returns the HMAC and AES keys for the session cookie codec.
func (s Security) CookieKeys() (hashKey, blockKey []byte, err error) {
	if s.SessionSecret == "" {
		hashKey = securecookie.GenerateRandomKey(cookieHashKeyLength)
		blockKey = securecookie.GenerateRandomKey(cookieBlockKeyLength)
		if hashKey == nil || blockKey == nil {
			return nil, nil, fmt.Errorf("[config CookieKeys] failed to generate random keys")
		}
		return hashKey, blockKey, nil
	}

	kdf := hkdf.New(sha256.New, []byte(s.SessionSecret), nil, []byte("landing-page session cookie"))
	hashKey = make([]byte, cookieHashKeyLength)
	blockKey = make([]byte, cookieBlockKeyLength)
	if _, err := io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, fmt.Errorf("[config CookieKeys] derive hash key: %w", err)
	}
	if _, err := io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, fmt.Errorf("[config CookieKeys] derive block key: %w", err)
	}
	return hashKey, blockKey, nil
}
