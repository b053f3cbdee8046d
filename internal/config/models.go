package config

// VerifierConfig represents the configuration for the verification API
type VerifierConfig struct {
	APIURL             string
	APIKey             string
	BlockUndeliverable bool
	BlockDisposable    bool
	BlockRisky         bool
	SkipDomains        []string
}

// CacheConfig represents the configuration for the verification cache
type CacheConfig struct {
	Enabled       bool
	Type          string
	SQLitePath    string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// GatewayConfig represents the configuration for the SMTP gateway
type GatewayConfig struct {
	ListenAddress   string
	Domain          string
	Users           map[string]string
	UpstreamEnabled bool
	UpstreamAddress string
	UpstreamPort    int
}

// AuditConfig represents the configuration for the audit sink
type AuditConfig struct {
	Sink           string
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// AdminConfig represents the configuration for the admin server
type AdminConfig struct {
	Enabled       bool
	ListenAddress string
}

// GetVerifier returns the verifier configuration
func (c *Config) GetVerifier() VerifierConfig {
	return VerifierConfig{
		APIURL:             c.GetString("verifier.api_url"),
		APIKey:             c.GetString("verifier.api_key"),
		BlockUndeliverable: c.GetBool("verifier.block_undeliverable"),
		BlockDisposable:    c.GetBool("verifier.block_disposable"),
		BlockRisky:         c.GetBool("verifier.block_risky"),
		SkipDomains:        c.GetStringSlice("verifier.skip_domains"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Enabled:       c.GetBool("cache.enabled"),
		Type:          c.GetString("cache.type"),
		SQLitePath:    c.GetString("cache.sqlite_path"),
		MySQLDSN:      c.GetString("cache.mysql_dsn"),
		RedisAddr:     c.GetString("cache.redis_addr"),
		RedisPassword: c.GetString("cache.redis_password"),
		RedisDB:       c.GetInt("cache.redis_db"),
	}
}

// GetGateway returns the gateway configuration
func (c *Config) GetGateway() GatewayConfig {
	return GatewayConfig{
		ListenAddress:   c.GetString("gateway.listen_address"),
		Domain:          c.GetString("gateway.domain"),
		Users:           c.GetStringMapString("gateway.users"),
		UpstreamEnabled: c.GetBool("gateway.upstream.enabled"),
		UpstreamAddress: c.GetString("gateway.upstream.address"),
		UpstreamPort:    c.GetInt("gateway.upstream.port"),
	}
}

// GetAudit returns the audit configuration
func (c *Config) GetAudit() AuditConfig {
	return AuditConfig{
		Sink:           c.GetString("audit.sink"),
		AMQPURL:        c.GetString("audit.amqp_url"),
		AMQPExchange:   c.GetString("audit.amqp_exchange"),
		AMQPRoutingKey: c.GetString("audit.amqp_routing_key"),
	}
}

// GetAdmin returns the admin configuration
func (c *Config) GetAdmin() AdminConfig {
	return AdminConfig{
		Enabled:       c.GetBool("admin.enabled"),
		ListenAddress: c.GetString("admin.listen_address"),
	}
}
