package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys
const DefaultKeyPrefix = "dqrules:session:"

// Hash fields of a stored session. Rules stay as YAML text so a session
// can be inspected with redis-cli HGET.
const (
	fieldModel     = "model"
	fieldColumns   = "columns"
	fieldRules     = "rules"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

// RedisStore keeps each session in a Redis hash that expires with the
// session's TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// PoolSize is the connection pool size
	PoolSize int

	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int

	// KeyPrefix is the prefix for all session keys
	KeyPrefix string
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig(addr string) *RedisConfig {
	return &RedisConfig{
		Addr:         addr,
		PoolSize:     20,
		MinIdleConns: 2,
		KeyPrefix:    DefaultKeyPrefix,
	}
}

// NewRedisStore creates a new Redis session store
func NewRedisStore(config *RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisStoreFromClient(client, config.KeyPrefix)
}

// NewRedisStoreFromClient creates a new Redis store from an existing client
func NewRedisStoreFromClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: keyPrefix}
}

// Get retrieves a session from Redis
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall error: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}

	session, err := decodeFields(sessionID, fields)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if session.IsExpired() {
		s.client.Del(ctx, s.key(sessionID))
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Set replaces the stored session and resets its expiry
func (s *RedisStore) Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error {
	session.ExpiresAt = time.Now().UTC().Add(ttl)

	fields, err := encodeFields(session)
	if err != nil {
		return err
	}

	key := s.key(sessionID)
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
		return nil
	}); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete removes a session from Redis
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Refresh extends a live session. The key is watched so a session deleted
// concurrently is not recreated.
func (s *RedisStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := s.key(sessionID)
	expiresAt := time.Now().UTC().Add(ttl)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldExpiresAt, expiresAt.Format(time.RFC3339Nano))
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return err
	case err != nil:
		return fmt.Errorf("redis refresh error: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func encodeFields(session *Session) (map[string]any, error) {
	columns, err := json.Marshal(session.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode columns: %w", err)
	}
	return map[string]any{
		fieldModel:     session.Model,
		fieldColumns:   string(columns),
		fieldRules:     session.Rules,
		fieldCreatedAt: session.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decodeFields(id string, fields map[string]string) (*Session, error) {
	session := &Session{
		ID:      id,
		Model:   fields[fieldModel],
		Rules:   fields[fieldRules],
		Columns: []string{},
	}

	if raw := fields[fieldColumns]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &session.Columns); err != nil {
			return nil, fmt.Errorf("invalid columns field: %w", err)
		}
	}

	var err error
	if session.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("invalid %s field: %w", fieldCreatedAt, err)
	}
	if session.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields[fieldExpiresAt]); err != nil {
		return nil, fmt.Errorf("invalid %s field: %w", fieldExpiresAt, err)
	}
	return session, nil
}
