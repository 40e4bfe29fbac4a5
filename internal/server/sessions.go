package server

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"retailbot/internal/conversation"
)

// sessionEntry serialises turns of one conversation.
type sessionEntry struct {
	mu      sync.Mutex
	session *conversation.Session
}

// sessionStore keeps conversations in memory and forgets them after ttl of inactivity.
type sessionStore struct {
	cache *cache.Cache
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{cache: cache.New(ttl, ttl/2)}
}

func (r *sessionStore) save(e *sessionEntry) {
	r.cache.Set(e.session.ID, e, cache.DefaultExpiration)
}

func (r *sessionStore) get(id string) (*sessionEntry, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*sessionEntry), true
	}
	return nil, false
}

func (r *sessionStore) delete(id string) {
	r.cache.Delete(id)
}
