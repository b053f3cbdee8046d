package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/admin"
	"github.com/cloudwishcom/rcpt-verify/internal/adapters/gateway"
	"github.com/cloudwishcom/rcpt-verify/internal/adapters/verifyapi"
	"github.com/cloudwishcom/rcpt-verify/internal/config"
	"github.com/cloudwishcom/rcpt-verify/internal/core"
	"github.com/cloudwishcom/rcpt-verify/internal/factory"
	"github.com/cloudwishcom/rcpt-verify/internal/logging"
	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
	"github.com/cloudwishcom/rcpt-verify/internal/ports"
	"github.com/cloudwishcom/rcpt-verify/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics registry
	if err := container.Provide(metrics.NewRegistry); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAuditFactory); err != nil {
		return nil, err
	}

	// Register verification cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerificationCache, error) {
		return f.CreateCache()
	}); err != nil {
		return nil, err
	}

	// Register cache TTLs and enabled flag
	if err := container.Provide(func(f *factory.CacheFactory) (core.TTLTable, error) {
		return f.GetTTLTable()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) bool {
		return f.IsCacheEnabled()
	}); err != nil {
		return nil, err
	}

	// Register skip list
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		skipDomains := cfg.GetStringSlice("verifier.skip_domains")
		if len(skipDomains) > 0 {
			logger.Info("Loaded skip domains", zap.Strings("domains", skipDomains))
		}
		return whitelist.NewChecker(skipDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register session decision store
	if err := container.Provide(core.NewSessionStore); err != nil {
		return nil, err
	}

	// Register audit sink and auditor
	if err := container.Provide(func(f *factory.AuditFactory) (core.AuditSink, error) {
		return f.CreateSink()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewAuditor); err != nil {
		return nil, err
	}

	// Register verifier service. Missing API settings disable
	// verification while the gateway keeps accepting mail.
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		registry *metrics.Registry,
		cacheRepo core.VerificationCache,
		cacheEnabled bool,
		ttl core.TTLTable,
	) (*core.VerifierService, error) {
		verifierCfg := cfg.GetVerifier()
		if verifierCfg.APIURL == "" || verifierCfg.APIKey == "" {
			logger.Warn("Verification disabled: verifier.api_url and verifier.api_key are required")
			return nil, nil
		}

		timeout, err := cfg.GetDuration("verifier.api_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid API timeout: %w", err)
		}

		client, err := verifyapi.NewClient(
			verifierCfg.APIURL,
			verifierCfg.APIKey,
			core.Policy{
				BlockUndeliverable: verifierCfg.BlockUndeliverable,
				BlockDisposable:    verifierCfg.BlockDisposable,
				BlockRisky:         verifierCfg.BlockRisky,
			},
			timeout,
			logger,
		)
		if err != nil {
			return nil, err
		}

		return core.NewVerifierService(client, cacheRepo, logger, registry, cacheEnabled, ttl), nil
	}); err != nil {
		return nil, err
	}

	// Register gatekeeper
	if err := container.Provide(core.NewGatekeeper); err != nil {
		return nil, err
	}

	// Register SMTP gateway
	if err := container.Provide(func(gk *core.Gatekeeper, logger *zap.Logger, cfg *config.Config) ports.MailGateway {
		gatewayCfg := cfg.GetGateway()
		return gateway.NewSMTPGateway(
			gk,
			logger,
			gatewayCfg.ListenAddress,
			gatewayCfg.Domain,
			gatewayCfg.Users,
			gatewayCfg.UpstreamAddress,
			gatewayCfg.UpstreamPort,
			gatewayCfg.UpstreamEnabled,
		)
	}); err != nil {
		return nil, err
	}

	// Register admin server
	if err := container.Provide(func(cfg *config.Config, registry *metrics.Registry, logger *zap.Logger) *admin.Server {
		adminCfg := cfg.GetAdmin()
		return admin.NewServer(adminCfg.ListenAddress, adminCfg.Enabled, registry, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
