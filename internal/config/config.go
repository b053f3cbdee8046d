package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/rcpt-verify/")
	v.AddConfigPath("$HOME/.rcpt-verify")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("RCPT_VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a new configuration instance from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("RCPT_VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Verifier defaults. The API URL and key have no defaults: both
	// must be configured before verification runs.
	v.SetDefault("verifier.api_url", "")
	v.SetDefault("verifier.api_key", "")
	v.SetDefault("verifier.api_timeout", "5s")
	v.SetDefault("verifier.block_undeliverable", true)
	v.SetDefault("verifier.block_disposable", true)
	v.SetDefault("verifier.block_risky", false)
	v.SetDefault("verifier.skip_domains", []string{})

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.ttl.deliverable", "30m")
	v.SetDefault("cache.ttl.undeliverable", "1h")
	v.SetDefault("cache.ttl.risky", "15m")
	v.SetDefault("cache.ttl.unknown", "5m")
	v.SetDefault("cache.sqlite_path", "rcpt-verify.db")
	v.SetDefault("cache.mysql_dsn", "")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// Gateway defaults
	v.SetDefault("gateway.listen_address", "0.0.0.0:2525")
	v.SetDefault("gateway.domain", "localhost")
	v.SetDefault("gateway.users", map[string]string{})
	v.SetDefault("gateway.upstream.enabled", false)
	v.SetDefault("gateway.upstream.address", "127.0.0.1")
	v.SetDefault("gateway.upstream.port", 25)

	// Audit defaults
	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.amqp_url", "")
	v.SetDefault("audit.amqp_exchange", "rcpt-verify.audit")
	v.SetDefault("audit.amqp_routing_key", "verify")

	// Admin defaults
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.listen_address", "0.0.0.0:8025")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetStringMapString gets a string map value from the configuration
func (c *Config) GetStringMapString(key string) map[string]string {
	return c.v.GetStringMapString(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
