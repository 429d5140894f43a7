package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL 管理员会话有效期
const DefaultTTL = 24 * time.Hour

// SweepInterval 后台清理过期会话的周期
const SweepInterval = 10 * time.Minute

type entry struct {
	expiresAt time.Time
}

// Store holds admin bearer tokens in memory. Each token expires a fixed
// duration after its last use; a background sweeper purges abandoned entries
// so the map cannot grow without bound.
type Store struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store with the given TTL (DefaultTTL when zero) and
// starts the sweeper.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.sweeper()
	return s
}

// Create issues a new session token.
func (s *Store) Create() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = entry{expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

// Validate reports whether token names a live session and, when it does,
// refreshes its expiry. Expired entries are removed on access.
func (s *Store) Validate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[token]
	if !ok {
		return false
	}
	now := s.now()
	if now.After(e.expiresAt) {
		delete(s.sessions, token)
		return false
	}
	s.sessions[token] = entry{expiresAt: now.Add(s.ttl)}
	return true
}

// Revoke removes a session token.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweeper() {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep removes every expired entry.
func (s *Store) sweep() {
	now := s.now()
	s.mu.Lock()
	for token, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()
}
