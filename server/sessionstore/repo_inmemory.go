package sessionstore

import (
	"fmt"
	"maps"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	apperrors "github.com/jrsteele09/go-landing-page/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps sessions in process memory. Entries expire after the
// configured TTL and the least recently used entry is evicted once maxEntries
// is reached.
type InMemoryRepo struct {
	sessions *expirable.LRU[string, Record]
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo(maxEntries int, ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		sessions: expirable.NewLRU[string, Record](maxEntries, nil, ttl),
	}
}

// Get retrieves a session record by session ID
func (r *InMemoryRepo) Get(sessionID string) (Record, error) {
	if sessionID == "" {
		return Record{}, fmt.Errorf("sessionID is required")
	}
	record, ok := r.sessions.Get(sessionID)
	if !ok {
		return Record{}, apperrors.ErrSessionNotFound
	}
	return copyRecord(record), nil
}

// Set creates or replaces a session record
func (r *InMemoryRepo) Set(sessionID string, record Record) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.sessions.Add(sessionID, copyRecord(record))
	return nil
}

// Clear removes a session record
func (r *InMemoryRepo) Clear(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	r.sessions.Remove(sessionID)
	return nil
}

// Len is the number of live sessions.
func (r *InMemoryRepo) Len() int {
	return r.sessions.Len()
}

// copyRecord prevents callers from mutating stored claims.
func copyRecord(record Record) Record {
	if record.Claims != nil {
		record.Claims = maps.Clone(record.Claims)
	}
	return record
}
