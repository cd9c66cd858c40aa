package memory

import (
	"sync"
	"time"

	"github.com/letya999/support-rag-sub001/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
	locks *keyedMutex
}

func NewSessionRepository() *SessionRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
		locks: newKeyedMutex(),
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	session.UpdatedAt = time.Now()
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) GetOrCreate(sessionID, userID string) *store.Session {
	if s, found := r.Get(sessionID); found {
		return s
	}
	s := store.NewSession(sessionID, userID)
	r.Save(s)
	return s
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

// Lock serializes turn processing for one session. Concurrent messages for
// the same conversation wait; different conversations proceed in parallel.
func (r *SessionRepository) Lock(sessionID string) func() {
	return r.locks.lock(sessionID)
}

// keyedMutex ref-counts its entries: a conversation's lock exists only
// while turns hold or wait on it, so the map does not grow with every
// conversation ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
