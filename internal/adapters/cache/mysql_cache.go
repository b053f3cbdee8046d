package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLCache is a MySQL implementation of the VerificationCache
// interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newMySQLCache(db, logger, cleanupFreq)
}

// newMySQLCache wires up a cache on an open database handle
func newMySQLCache(db *sql.DB, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	// Create table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS verify_cache (
			address VARCHAR(255) PRIMARY KEY,
			result TEXT,
			inserted_at DATETIME,
			expires_at DATETIME,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached entry for an address, evicting it when expired
func (c *MySQLCache) Get(ctx context.Context, address string) (*core.CacheEntry, error) {
	var resultJSON string
	var insertedAt, expiresAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT result, inserted_at, expires_at
		FROM verify_cache
		WHERE address = ?
	`, address).Scan(&resultJSON, &insertedAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry := core.CacheEntry{Address: address}

	// Parse timestamps
	entry.InsertedAt, err = time.Parse(mysqlTimeFormat, insertedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inserted_at timestamp: %w", err)
	}
	entry.ExpiresAt, err = time.Parse(mysqlTimeFormat, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
	}

	if time.Now().After(entry.ExpiresAt) {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM verify_cache WHERE address = ?`, address); err != nil {
			c.logger.Warn("Failed to evict expired cache entry", zap.Error(err), zap.String("address", address))
		}
		return nil, ErrExpired
	}

	if err := json.Unmarshal([]byte(resultJSON), &entry.Result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}

	return &entry, nil
}

// Set stores a cache entry
func (c *MySQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO verify_cache (address, result, inserted_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			result = VALUES(result),
			inserted_at = VALUES(inserted_at),
			expires_at = VALUES(expires_at)
	`, entry.Address, string(resultJSON), entry.InsertedAt.Format(mysqlTimeFormat), entry.ExpiresAt.Format(mysqlTimeFormat))

	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verify_cache
		WHERE expires_at <= NOW()
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MySQLCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
