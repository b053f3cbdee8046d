package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/adapters/cache"
	"github.com/cloudwishcom/rcpt-verify/internal/config"
	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

// CacheFactory creates verification caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCache creates a verification cache based on the configuration.
// Returns a nil cache when caching is disabled.
func (f *CacheFactory) CreateCache() (core.VerificationCache, error) {
	if !f.cfg.GetBool("cache.enabled") {
		f.logger.Info("Verification cache disabled")
		return nil, nil
	}

	cacheType := f.cfg.GetString("cache.type")
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}

	switch cacheType {
	case "memory":
		return cache.NewMemoryCache(f.logger, cleanupFreq), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("cache.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(sqlitePath, f.logger, cleanupFreq)
	case "mysql":
		return cache.NewMySQLCache(f.cfg.GetString("cache.mysql_dsn"), f.logger, cleanupFreq)
	case "redis":
		return cache.NewRedisCache(
			f.cfg.GetString("cache.redis_addr"),
			f.cfg.GetString("cache.redis_password"),
			f.cfg.GetInt("cache.redis_db"),
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// GetTTLTable returns the configured per-classification TTLs
func (f *CacheFactory) GetTTLTable() (core.TTLTable, error) {
	ttl := core.TTLTable{}
	var err error

	if ttl.Deliverable, err = f.cfg.GetDuration("cache.ttl.deliverable"); err != nil {
		return ttl, fmt.Errorf("invalid deliverable TTL: %w", err)
	}
	if ttl.Undeliverable, err = f.cfg.GetDuration("cache.ttl.undeliverable"); err != nil {
		return ttl, fmt.Errorf("invalid undeliverable TTL: %w", err)
	}
	if ttl.Risky, err = f.cfg.GetDuration("cache.ttl.risky"); err != nil {
		return ttl, fmt.Errorf("invalid risky TTL: %w", err)
	}
	if ttl.Unknown, err = f.cfg.GetDuration("cache.ttl.unknown"); err != nil {
		return ttl, fmt.Errorf("invalid unknown TTL: %w", err)
	}

	return ttl, nil
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
