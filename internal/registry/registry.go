// Package registry holds the process-wide mapping from account id to its
// live provider session. It is the single place account→connection
// identity is resolved; callers must not cache a handle beyond the scope
// of one operation.
package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/domain"
	"github.com/wappgate/wappgate/internal/provider"
)

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]provider.Session
	log      zerolog.Logger
}

func New(log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]provider.Session),
		log:      log.With().Str("component", "registry").Logger(),
	}
}

// Put inserts the session for accountID, replacing any existing entry. A
// replaced session is destroyed best-effort so re-initialization never
// leaks the old connection.
func (r *Registry) Put(accountID string, sess provider.Session) {
	r.mu.Lock()
	old, had := r.sessions[accountID]
	r.sessions[accountID] = sess
	r.mu.Unlock()

	if had && old != sess {
		if err := old.Destroy(); err != nil {
			r.log.Warn().Err(err).Str("account", accountID).Msg("failed to destroy replaced session")
		}
	}
}

// Get returns the live session for accountID.
func (r *Registry) Get(accountID string) (provider.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[accountID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Remove tears down and deletes the entry for accountID. Teardown failure
// is logged and swallowed; the entry is always removed.
func (r *Registry) Remove(accountID string) {
	r.mu.Lock()
	sess, ok := r.sessions[accountID]
	delete(r.sessions, accountID)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := sess.Destroy(); err != nil {
		r.log.Warn().Err(err).Str("account", accountID).Msg("session teardown failed")
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
