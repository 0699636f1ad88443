package identity

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
	"golang.org/x/oauth2"
)

// Account is a handle to a previously signed-in user that tokens can be
// reacquired for without user interaction.
type Account struct {
	HomeAccountID string
	Username      string
	TenantID      string
}

type cachedAccount struct {
	account  Account
	token    *oauth2.Token
	scopes   []string
	redirect string
	cachedAt time.Time
}

// AccountCache is a thread-safe in-memory store of accounts and their tokens,
// keyed by home account id. Entries expire after the configured TTL and the
// least recently used account is evicted once maxEntries is reached.
type AccountCache struct {
	mu       sync.Mutex
	accounts *expirable.LRU[string, cachedAccount]
}

// NewAccountCache creates an empty account cache
func NewAccountCache(maxEntries int, ttl time.Duration) *AccountCache {
	return &AccountCache{
		accounts: expirable.NewLRU[string, cachedAccount](maxEntries, nil, ttl),
	}
}

func (c *AccountCache) store(entry cachedAccount) {
	c.accounts.Add(entry.account.HomeAccountID, entry)
}

func (c *AccountCache) get(homeAccountID string) (cachedAccount, error) {
	entry, ok := c.accounts.Get(homeAccountID)
	if !ok {
		return cachedAccount{}, apperrors.ErrNoCachedToken
	}
	return entry, nil
}

// updateToken replaces the cached token if the account is still present.
func (c *AccountCache) updateToken(homeAccountID string, token *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.accounts.Peek(homeAccountID); ok {
		entry.token = token
		c.accounts.Add(homeAccountID, entry)
	}
}

// Accounts returns the live cached accounts ordered by home account id.
func (c *AccountCache) Accounts() []Account {
	entries := c.accounts.Values()
	accounts := make([]Account, 0, len(entries))
	for _, entry := range entries {
		accounts = append(accounts, entry.account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].HomeAccountID < accounts[j].HomeAccountID
	})
	return accounts
}
