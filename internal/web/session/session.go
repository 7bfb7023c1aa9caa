package session

import (
	"context"
	"errors"
	"time"

	"github.com/DataVisuals/expectations/internal/document"
	"github.com/DataVisuals/expectations/internal/rules"
)

// ErrSessionNotFound is returned when a session is not found
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a session has expired
var ErrSessionExpired = errors.New("session expired")

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 7 * 24 * time.Hour

// Store defines the interface for session storage backends
type Store interface {
	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session with the given TTL
	Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error

	// Delete removes a session
	Delete(ctx context.Context, sessionID string) error

	// Refresh updates the expiration time of a session
	Refresh(ctx context.Context, sessionID string, ttl time.Duration) error

	// Close cleans up any resources used by the store
	Close() error
}

// Session is one rule-authoring session: the dataset it targets and the
// rules registered so far.
type Session struct {
	// ID is the unique session identifier
	ID string `json:"id"`

	// Model is the model name the document is rendered for
	Model string `json:"model"`

	// Columns are the dataset's header columns
	Columns []string `json:"columns"`

	// Rules is the registry in the flat expectations document form
	Rules string `json:"rules"`

	// CreatedAt is when the session was created
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the session expires
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a new session with the given ID and TTL
func NewSession(id string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Columns:   []string{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Registry decodes the stored rules into a fresh registry
func (s *Session) Registry() (*rules.Registry, error) {
	if s.Rules == "" {
		return rules.NewRegistry()
	}

	instances, err := document.Load([]byte(s.Rules))
	if err != nil {
		return nil, err
	}
	return rules.NewRegistry(instances...)
}

// SetRegistry stores the registry's current contents
func (s *Session) SetRegistry(reg *rules.Registry) error {
	text, err := document.EncodeFlat(reg.All())
	if err != nil {
		return err
	}
	s.Rules = string(text)
	return nil
}

// Clone returns a copy that shares nothing with s
func (s *Session) Clone() *Session {
	c := *s
	c.Columns = append([]string(nil), s.Columns...)
	return &c
}
