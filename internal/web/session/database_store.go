package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DatabaseStore is a SQL-backed session store. Queries use $n placeholders,
// which both the sqlite3 and pgx drivers accept.
type DatabaseStore struct {
	db        *sql.DB
	tableName string
	ownsDB    bool
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
}

// DatabaseConfig holds database session store configuration
type DatabaseConfig struct {
	// DB is the database connection
	DB *sql.DB

	// TableName is the name of the sessions table
	TableName string

	// CleanupInterval is how often to run cleanup (0 = no auto cleanup)
	CleanupInterval time.Duration

	// CloseDB makes Close also close DB
	CloseDB bool

	// Logger receives cleanup failures
	Logger *zap.Logger
}

// DefaultDatabaseConfig returns default database configuration
func DefaultDatabaseConfig(db *sql.DB) *DatabaseConfig {
	return &DatabaseConfig{
		DB:              db,
		TableName:       "dq_sessions",
		CleanupInterval: 5 * time.Minute,
	}
}

// NewDatabaseStore creates a new database session store
func NewDatabaseStore(config *DatabaseConfig) (*DatabaseStore, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &DatabaseStore{
		db:        config.DB,
		tableName: config.TableName,
		ownsDB:    config.CloseDB,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}

	if err := store.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if config.CleanupInterval > 0 {
		store.wg.Add(1)
		go store.cleanup(config.CleanupInterval)
	}

	return store, nil
}

func (s *DatabaseStore) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			model VARCHAR(255) NOT NULL,
			columns TEXT NOT NULL,
			rules TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)
	`, s.tableName)

	if _, err := s.db.Exec(query); err != nil {
		return err
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_expires_at ON %s (expires_at)
	`, s.tableName, s.tableName)

	_, err := s.db.Exec(indexQuery)
	return err
}

// Get retrieves a live session
func (s *DatabaseStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT id, model, columns, rules, created_at, expires_at
		FROM %s
		WHERE id = $1 AND expires_at > $2
	`, s.tableName)

	var session Session
	var columnsJSON string

	err := s.db.QueryRowContext(ctx, query, sessionID, time.Now().UTC()).Scan(
		&session.ID,
		&session.Model,
		&columnsJSON,
		&session.Rules,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}

	if err := json.Unmarshal([]byte(columnsJSON), &session.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session columns: %w", err)
	}

	return &session, nil
}

// Set upserts a session
func (s *DatabaseStore) Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error {
	columns := session.Columns
	if columns == nil {
		columns = []string{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to marshal session columns: %w", err)
	}

	session.ExpiresAt = time.Now().UTC().Add(ttl)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, model, columns, rules, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			model = EXCLUDED.model,
			columns = EXCLUDED.columns,
			rules = EXCLUDED.rules,
			expires_at = EXCLUDED.expires_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		sessionID,
		session.Model,
		string(columnsJSON),
		session.Rules,
		session.CreatedAt.UTC(),
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("database insert error: %w", err)
	}

	return nil
}

// Delete removes a session from the database
func (s *DatabaseStore) Delete(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("database delete error: %w", err)
	}

	return nil
}

// Refresh updates the expiration time of a live session
func (s *DatabaseStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE %s SET expires_at = $1 WHERE id = $2 AND expires_at > $3
	`, s.tableName)

	result, err := s.db.ExecContext(ctx, query, now.Add(ttl), sessionID, now)
	if err != nil {
		return fmt.Errorf("database update error: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// Close stops the cleanup goroutine and, when the store opened it, the database
func (s *DatabaseStore) Close() error {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()

	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Purge deletes every expired session and reports how many were removed
func (s *DatabaseStore) Purge(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, s.tableName)

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("database cleanup error: %w", err)
	}
	return result.RowsAffected()
}

func (s *DatabaseStore) cleanup(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if n, err := s.Purge(context.Background()); err != nil {
				s.logger.Warn("session cleanup failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Debug("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
