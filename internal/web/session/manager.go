package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/rules"
)

// Manager serializes work on each session and keeps its TTL fresh. Two
// mutations of the same session never overlap; different sessions proceed
// in parallel.
type Manager struct {
	store  Store
	ttl    time.Duration
	locks  *keyedMutex
	logger *zap.Logger
}

// NewManager creates a manager over store
func NewManager(store Store, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		locks:  newKeyedMutex(),
		logger: logger,
	}
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	return m.store
}

// Create starts a session with a fresh random ID
func (m *Manager) Create(ctx context.Context, model string, columns []string) (*Session, error) {
	return m.CreateWithID(ctx, uuid.NewString(), model, columns)
}

// CreateWithID starts or replaces the session with the given ID
func (m *Manager) CreateWithID(ctx context.Context, id, model string, columns []string) (*Session, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	sess := NewSession(id, m.ttl)
	sess.Model = model
	if columns != nil {
		sess.Columns = append([]string(nil), columns...)
	}

	if err := m.store.Set(ctx, id, sess, m.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	m.logger.Debug("session created", zap.String("session_id", id), zap.String("model", model))
	return sess, nil
}

// Get returns a session without modifying it
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Open returns the session with the given ID, creating an empty one if it
// does not exist or has expired.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	return m.CreateWithID(ctx, id, "", nil)
}

// Update loads the session and its registry, applies fn and saves both.
// Nothing is saved when fn fails, so a failed mutation leaves the session as
// it was.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session, *rules.Registry) error) (*Session, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	reg, err := sess.Registry()
	if err != nil {
		return nil, fmt.Errorf("session %s has unreadable rules: %w", id, err)
	}

	if err := fn(sess, reg); err != nil {
		return nil, err
	}

	if err := sess.SetRegistry(reg); err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, id, sess, m.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// View loads the session and its registry for reading
func (m *Manager) View(ctx context.Context, id string) (*Session, *rules.Registry, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	reg, err := sess.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("session %s has unreadable rules: %w", id, err)
	}
	return sess, reg, nil
}

// Delete removes a session
func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock := m.locks.Lock(id)
	defer unlock()

	return m.store.Delete(ctx, id)
}

// Close closes the store
func (m *Manager) Close() error {
	return m.store.Close()
}

// IsNotFound reports whether err means the session is missing or expired
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired)
}

// keyedMutex hands out one mutex per key and forgets it once unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its release func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
