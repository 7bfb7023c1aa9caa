package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store, used by the server by default
// and by tests
type MemoryStore struct {
	sessions sync.Map
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

type sessionEntry struct {
	mu        sync.Mutex
	session   *Session
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithInterval(time.Minute)
}

// NewMemoryStoreWithInterval creates a store that sweeps expired sessions every interval
func NewMemoryStoreWithInterval(interval time.Duration) *MemoryStore {
	store := &MemoryStore{
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanup(interval)

	return store
}

// Get retrieves a copy of a session
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry := value.(*sessionEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.expiresAt.Before(time.Now()) {
		s.sessions.Delete(sessionID)
		return nil, ErrSessionExpired
	}

	return entry.session.Clone(), nil
}

// Set stores a copy of a session
func (s *MemoryStore) Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error {
	stored := session.Clone()
	stored.ExpiresAt = time.Now().UTC().Add(ttl)
	session.ExpiresAt = stored.ExpiresAt

	s.sessions.Store(sessionID, &sessionEntry{
		session:   stored,
		expiresAt: stored.ExpiresAt,
	})
	return nil
}

// Delete removes a session from memory
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.sessions.Delete(sessionID)
	return nil
}

// Refresh updates the expiration time of a session
func (s *MemoryStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	entry := value.(*sessionEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.expiresAt = time.Now().UTC().Add(ttl)
	entry.session.ExpiresAt = entry.expiresAt
	return nil
}

// Close stops the cleanup goroutine and clears all sessions
func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.sessions.Range(func(key, value interface{}) bool {
		s.sessions.Delete(key)
		return true
	})
	return nil
}

// cleanup periodically removes expired sessions
func (s *MemoryStore) cleanup(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.sessions.Range(func(key, value interface{}) bool {
		entry := value.(*sessionEntry)
		entry.mu.Lock()
		expired := entry.expiresAt.Before(now)
		entry.mu.Unlock()
		if expired {
			s.sessions.Delete(key)
		}
		return true
	})
}

// Count returns the number of stored sessions
func (s *MemoryStore) Count() int {
	count := 0
	s.sessions.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}
