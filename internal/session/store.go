package session

import (
	"errors"
	"sync"
	"time"
)

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// Defaults for MemoryStore construction when the caller passes zero values.
const (
	// DefaultTTL is the idle lifetime of a session before eviction.
	DefaultTTL = 2 * time.Hour

	// DefaultCapacity bounds the number of live sessions.
	DefaultCapacity = 1000

	// janitorInterval is how often expired sessions are swept.
	janitorInterval = time.Minute
)

// Session is a single conversation: an identifier and its history.
//
// LockTurn serializes turns within the session so two concurrent requests
// for the same session cannot interleave their history writes. Different
// sessions proceed in parallel.
type Session struct {
	ID      string
	History *History

	turnMu sync.Mutex
}

// LockTurn acquires the session's turn lock.
func (s *Session) LockTurn() { s.turnMu.Lock() }

// UnlockTurn releases the session's turn lock.
func (s *Session) UnlockTurn() { s.turnMu.Unlock() }

// Store is the session lookup interface the API layer depends on.
// MemoryStore satisfies it; a persistent implementation could replace it
// without touching the handlers.
type Store interface {
	// GetOrCreate returns the session with the given ID, creating an
	// empty one if it does not exist.
	GetOrCreate(id string) *Session

	// Get returns the session with the given ID, or false if absent.
	// It does not create and does not refresh the idle timer.
	Get(id string) (*Session, bool)

	// Delete removes the session. Returns ErrSessionNotFound if absent.
	Delete(id string) error

	// Len returns the number of live sessions.
	Len() int
}

// entry pairs a session with its idle timestamp. lastSeen is owned by the
// store's mutex, not the session, so eviction never races a running turn.
type entry struct {
	sess     *Session
	lastSeen time.Time
}

// MemoryStore is an in-memory Store with idle-TTL and capacity eviction.
//
// A background janitor sweeps expired sessions; when the store is full,
// creating a new session evicts the longest-idle one. Close stops the
// janitor.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	capacity int

	done    chan struct{}
	closeMu sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its janitor.
// Zero or negative ttl/capacity fall back to the package defaults.
func NewMemoryStore(ttl time.Duration, capacity int) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &MemoryStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		capacity: capacity,
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// GetOrCreate returns the session for id, creating it if needed, and
// refreshes its idle timer.
func (s *MemoryStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.sessions[id]; ok {
		e.lastSeen = now
		return e.sess
	}

	if len(s.sessions) >= s.capacity {
		s.evictOldestLocked()
	}

	sess := &Session{ID: id, History: NewHistory()}
	s.sessions[id] = &entry{sess: sess, lastSeen: now}
	return sess
}

// Get returns the session for id without creating or refreshing it.
func (s *MemoryStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// Delete removes the session for id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.closeMu.Do(func() { close(s.done) })
}

// evictOldestLocked removes the longest-idle session. Caller holds s.mu.
func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
	)
	for id, e := range s.sessions {
		if !found || e.lastSeen.Before(oldest) {
			oldestID = id
			oldest = e.lastSeen
			found = true
		}
	}
	if found {
		delete(s.sessions, oldestID)
	}
}

// janitor periodically sweeps sessions idle past the TTL.
func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep removes sessions idle past the TTL as of now.
func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
